package mock

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/aceeric/layerimport/impl/archive"
)

// MemArchive is an in-memory archive reader. It tracks how many entry
// streams are open so tests can check that every stream is closed.
type MemArchive struct {
	Entries map[string][]byte
	// Opened lists the entry names in open order
	Opened []string
	// FailRead makes reads of the named entries fail after the first chunk
	FailRead map[string]error
	mu       sync.Mutex
	open     int
	maxOpen  int
}

// NewMemArchive builds a MemArchive holding the json and layer.tar entries
// for 'images'.
func NewMemArchive(images []Image) *MemArchive {
	m := &MemArchive{
		Entries:  map[string][]byte{},
		FailRead: map[string]error{},
	}
	for _, img := range images {
		if !img.NoJSON {
			m.Entries[archive.ImageEntry(img.ID, archive.JSONEntry)] = imageJSON(img)
		}
		if !img.NoLayer {
			m.Entries[archive.ImageEntry(img.ID, archive.LayerEntry)] = img.Layer
		}
	}
	return m
}

func (m *MemArchive) OpenEntry(name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", archive.ErrArchiveEntryMissing, name)
	}
	m.Opened = append(m.Opened, name)
	m.open++
	if m.open > m.maxOpen {
		m.maxOpen = m.open
	}
	return &memEntry{m: m, r: bytes.NewReader(data), failErr: m.FailRead[name]}, nil
}

// OpenCount returns the number of entry streams not yet closed.
func (m *MemArchive) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// MaxOpen returns the largest number of streams that were open at once.
func (m *MemArchive) MaxOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOpen
}

type memEntry struct {
	m       *MemArchive
	r       *bytes.Reader
	failErr error
	reads   int
	closed  bool
}

func (e *memEntry) Read(p []byte) (int, error) {
	if e.failErr != nil && e.reads > 0 {
		return 0, e.failErr
	}
	e.reads++
	return e.r.Read(p)
}

func (e *memEntry) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.m.mu.Lock()
	e.m.open--
	e.m.mu.Unlock()
	return nil
}
