// Package scratchpad stores the per-repository scratchpad document, which
// holds the repository tag list.
package scratchpad

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aceeric/layerimport/impl/globals"
	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/units"
)

const fileName = "scratchpad.json"

var ErrInvalidRepo = errors.New("invalid repository id")

// Scratchpad is the persisted per-repository document. Tags is serialized
// under the "tags" key.
type Scratchpad struct {
	Tags []models.TagEntry `json:"tags"`
}

// Store reads and replaces repository scratchpads.
type Store interface {
	Get(repoID string) (Scratchpad, error)
	Update(repoID string, pad Scratchpad) error
}

// FilesystemStore keeps each scratchpad at <root>/repos/<repoID>/scratchpad.json.
type FilesystemStore struct {
	root string
	mu   sync.Mutex
}

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: root}
}

// Get returns the scratchpad for 'repoID'. A repository that has never been
// updated has an empty scratchpad.
func (s *FilesystemStore) Get(repoID string) (Scratchpad, error) {
	path, err := s.path(repoID)
	if err != nil {
		return Scratchpad{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Scratchpad{Tags: []models.TagEntry{}}, nil
	} else if err != nil {
		return Scratchpad{}, &units.StorageError{Op: "read", Path: path, Err: err}
	}
	pad := Scratchpad{}
	if err := json.Unmarshal(b, &pad); err != nil {
		return Scratchpad{}, &units.StorageError{Op: "decode", Path: path, Err: err}
	}
	if pad.Tags == nil {
		pad.Tags = []models.TagEntry{}
	}
	return pad, nil
}

// Update replaces the scratchpad for 'repoID' in full.
func (s *FilesystemStore) Update(repoID string, pad Scratchpad) error {
	path, err := s.path(repoID)
	if err != nil {
		return err
	}
	if pad.Tags == nil {
		pad.Tags = []models.TagEntry{}
	}
	b, err := json.MarshalIndent(pad, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return units.WriteFileAtomic(path, b)
}

// ValidateRepoID returns ErrInvalidRepo unless 'repoID' can name a single
// directory under the repos dir.
func ValidateRepoID(repoID string) error {
	if repoID == "" || repoID == "." || repoID == ".." || strings.ContainsAny(repoID, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, repoID)
	}
	return nil
}

func (s *FilesystemStore) path(repoID string) (string, error) {
	if err := ValidateRepoID(repoID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, globals.ReposDir, repoID, fileName), nil
}
