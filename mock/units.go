package mock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/units"
)

// UnitStore is an in-memory units.Units. Unit content is still written to the
// file system under Root so the importer can be tested end to end, but records
// are kept in memory along with a log of the calls the importer makes.
type UnitStore struct {
	Root    string
	Repo    string
	Records map[string]*units.Record
	// Saved lists the image ID of every Save call in call order
	Saved []string
	// FailSave makes Save fail for the image IDs in the map
	FailSave map[string]error
	mu       *sync.Mutex
}

func NewUnitStore(root string) *UnitStore {
	return &UnitStore{
		Root:     root,
		Records:  map[string]*units.Record{},
		FailSave: map[string]error{},
		mu:       &sync.Mutex{},
	}
}

func (s *UnitStore) ForRepo(repoID string) units.Store {
	return &repoView{UnitStore: s, repo: repoID}
}

// repoView saves into one repository while sharing the parent's state
type repoView struct {
	*UnitStore
	repo string
}

func (v *repoView) Save(unit *units.Unit) error {
	return v.UnitStore.save(unit, v.repo)
}

func (s *UnitStore) LocationFor(relativePath string) string {
	return filepath.Join(s.Root, filepath.FromSlash(relativePath))
}

func (s *UnitStore) Reserve(key models.UnitKey, metadata models.UnitMetadata, relativePath string) (*units.Unit, error) {
	return &units.Unit{
		TypeID:       models.ImageTypeID,
		UnitKey:      key,
		Metadata:     metadata,
		RelativePath: relativePath,
		StoragePath:  s.LocationFor(relativePath),
	}, nil
}

func (s *UnitStore) Exists(unit *units.Unit) (bool, error) {
	_, err := os.Stat(unit.StoragePath)
	return err == nil, nil
}

func (s *UnitStore) Save(unit *units.Unit) error {
	return s.save(unit, s.Repo)
}

func (s *UnitStore) save(unit *units.Unit, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := unit.ImageID()
	s.Saved = append(s.Saved, id)
	if err, ok := s.FailSave[id]; ok {
		return err
	}
	rec, ok := s.Records[id]
	if !ok {
		rec = &units.Record{
			TypeID:       unit.TypeID,
			UnitKey:      unit.UnitKey,
			RelativePath: unit.RelativePath,
			Repositories: []string{},
		}
		s.Records[id] = rec
	}
	rec.Metadata = unit.Metadata
	rec.SaveCount++
	if repo != "" && !slices.Contains(rec.Repositories, repo) {
		rec.Repositories = append(rec.Repositories, repo)
		sort.Strings(rec.Repositories)
	}
	return nil
}

func (s *UnitStore) Get(imageID string) (units.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[imageID]
	if !ok {
		return units.Record{}, fmt.Errorf("%w: %s", units.ErrNotFound, imageID)
	}
	return *rec, nil
}

func (s *UnitStore) List(repoID string) ([]units.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := []units.Record{}
	for _, rec := range s.Records {
		if repoID == "" || slices.Contains(rec.Repositories, repoID) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ImageID() < recs[j].ImageID()
	})
	return recs, nil
}

func (s *UnitStore) Associate(repoID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[imageID]
	if !ok {
		return fmt.Errorf("%w: %s", units.ErrNotFound, imageID)
	}
	if !slices.Contains(rec.Repositories, repoID) {
		rec.Repositories = append(rec.Repositories, repoID)
		sort.Strings(rec.Repositories)
	}
	return nil
}

func (s *UnitStore) Disassociate(repoID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.Records[imageID]
	if !ok {
		return fmt.Errorf("%w: %s", units.ErrNotFound, imageID)
	}
	rec.Repositories = slices.DeleteFunc(rec.Repositories, func(r string) bool {
		return r == repoID
	})
	return nil
}

// ErrInjected is a canned error for failure injection.
var ErrInjected = errors.New("injected failure")
