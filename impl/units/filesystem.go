package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aceeric/layerimport/impl/globals"
	"github.com/aceeric/layerimport/impl/models"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
)

// FilesystemStore keeps unit content under <root>/content and one record
// per unit under <root>/units. Stores returned by ForRepo share the
// record lock of the store they were derived from.
type FilesystemStore struct {
	root   string
	repoID string
	mu     *sync.Mutex
	now    func() time.Time
}

// NewFilesystemStore returns a store rooted at 'root'. Units saved through
// it are associated with 'repoID', which may be empty for a store that is
// only used as a Catalog.
func NewFilesystemStore(root string, repoID string) *FilesystemStore {
	return &FilesystemStore{
		root:   root,
		repoID: repoID,
		mu:     &sync.Mutex{},
		now:    time.Now,
	}
}

// ForRepo returns a store over the same root that saves into 'repoID'.
func (s *FilesystemStore) ForRepo(repoID string) Store {
	return &FilesystemStore{
		root:   s.root,
		repoID: repoID,
		mu:     s.mu,
		now:    s.now,
	}
}

func (s *FilesystemStore) LocationFor(relativePath string) string {
	return filepath.Join(s.root, globals.ContentDir, filepath.FromSlash(relativePath))
}

// ValidateImageID checks that 'imageID' is the hex encoding of a SHA-256
// digest, which is how the docker save format names image directories.
func ValidateImageID(imageID string) error {
	if err := digest.NewDigestFromEncoded(digest.SHA256, imageID).Validate(); err != nil {
		return fmt.Errorf("%w %q: %s", ErrInvalidImageID, imageID, err)
	}
	return nil
}

func (s *FilesystemStore) Reserve(key models.UnitKey, metadata models.UnitMetadata, relativePath string) (*Unit, error) {
	if err := ValidateImageID(key[models.ImageIDKey]); err != nil {
		return nil, err
	}
	return &Unit{
		TypeID:       models.ImageTypeID,
		UnitKey:      key,
		Metadata:     metadata,
		RelativePath: relativePath,
		StoragePath:  s.LocationFor(relativePath),
	}, nil
}

func (s *FilesystemStore) Exists(unit *Unit) (bool, error) {
	_, err := os.Stat(unit.StoragePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StorageError{Op: "stat", Path: unit.StoragePath, Err: err}
}

// Save creates or updates the record for 'unit' and associates it with the
// store's repository. Saving an already saved unit bumps its save count.
func (s *FilesystemStore) Save(unit *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imageID := unit.ImageID()
	rec, err := s.read(imageID)
	now := s.now().UTC()
	switch {
	case errors.Is(err, ErrNotFound):
		rec = Record{
			TypeID:       unit.TypeID,
			UnitKey:      unit.UnitKey,
			RelativePath: unit.RelativePath,
			Repositories: []string{},
			FirstSaved:   now,
		}
	case err != nil:
		return err
	}
	rec.Metadata = unit.Metadata
	rec.SaveCount++
	rec.LastSaved = now
	if s.repoID != "" && !slices.Contains(rec.Repositories, s.repoID) {
		rec.Repositories = append(rec.Repositories, s.repoID)
		sort.Strings(rec.Repositories)
	}
	return s.write(rec)
}

func (s *FilesystemStore) Get(imageID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(imageID)
}

// List returns all unit records sorted by image ID. If 'repoID' is not empty
// only the units associated with that repository are returned.
func (s *FilesystemStore) List(repoID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := []Record{}
	dir := filepath.Join(s.root, globals.UnitsDir)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rec, err := readRecord(path)
		if err != nil {
			return err
		}
		if repoID == "" || slices.Contains(rec.Repositories, repoID) {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Path: dir, Err: err}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ImageID() < records[j].ImageID()
	})
	return records, nil
}

func (s *FilesystemStore) Associate(repoID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read(imageID)
	if err != nil {
		return err
	}
	if slices.Contains(rec.Repositories, repoID) {
		return nil
	}
	rec.Repositories = append(rec.Repositories, repoID)
	sort.Strings(rec.Repositories)
	return s.write(rec)
}

// Disassociate removes 'repoID' from the unit's repositories. The unit
// content is left in place since other repositories may share it.
func (s *FilesystemStore) Disassociate(repoID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read(imageID)
	if err != nil {
		return err
	}
	idx := slices.Index(rec.Repositories, repoID)
	if idx < 0 {
		return nil
	}
	rec.Repositories = slices.Delete(rec.Repositories, idx, idx+1)
	return s.write(rec)
}

func (s *FilesystemStore) recordPath(imageID string) string {
	return filepath.Join(s.root, globals.UnitsDir, imageID+".json")
}

func (s *FilesystemStore) read(imageID string) (Record, error) {
	if err := ValidateImageID(imageID); err != nil {
		return Record{}, err
	}
	rec, err := readRecord(s.recordPath(imageID))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, imageID)
	}
	return rec, err
}

func readRecord(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	rec := Record{}
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, &StorageError{Op: "decode", Path: path, Err: err}
	}
	return rec, nil
}

// write replaces the record file by writing a temp file in the same
// directory and renaming it over the target.
func (s *FilesystemStore) write(rec Record) error {
	path := s.recordPath(rec.ImageID())
	log.Debugf("writing unit record %s", path)
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, b)
}

// WriteFileAtomic writes 'data' to 'path' by way of a temp file in the same
// directory, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "create", Path: dir, Err: err}
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &StorageError{Op: "write", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: "close", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
