package mock

import (
	"slices"
	"sync"

	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/scratchpad"
)

// Scratchpads is an in-memory scratchpad.Store.
type Scratchpads struct {
	Pads map[string]scratchpad.Scratchpad
	// Updates counts Update calls per repository
	Updates map[string]int
	mu      sync.Mutex
}

func NewScratchpads() *Scratchpads {
	return &Scratchpads{
		Pads:    map[string]scratchpad.Scratchpad{},
		Updates: map[string]int{},
	}
}

func (s *Scratchpads) Get(repoID string) (scratchpad.Scratchpad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pad, ok := s.Pads[repoID]
	if !ok {
		return scratchpad.Scratchpad{Tags: []models.TagEntry{}}, nil
	}
	return scratchpad.Scratchpad{Tags: slices.Clone(pad.Tags)}, nil
}

func (s *Scratchpads) Update(repoID string, pad scratchpad.Scratchpad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pads[repoID] = scratchpad.Scratchpad{Tags: slices.Clone(pad.Tags)}
	s.Updates[repoID]++
	return nil
}
