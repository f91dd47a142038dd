// Package units persists imported image layers. A unit is one image layer:
// its content lives in a directory under the store's content root and its
// bookkeeping (which repositories it belongs to, how often it was saved) in
// a JSON record per image.
package units

import (
	"errors"
	"fmt"
	"time"

	"github.com/aceeric/layerimport/impl/models"
)

var (
	ErrNotFound       = errors.New("unit not found")
	ErrInvalidImageID = errors.New("invalid image id")
)

// Unit is a reserved storage location for one image layer.
type Unit struct {
	TypeID       string
	UnitKey      models.UnitKey
	Metadata     models.UnitMetadata
	RelativePath string
	StoragePath  string
}

// ImageID returns the image ID from the unit key.
func (u *Unit) ImageID() string {
	return u.UnitKey[models.ImageIDKey]
}

// Record is the persisted bookkeeping for a saved unit.
type Record struct {
	TypeID       string              `json:"type_id"`
	UnitKey      models.UnitKey      `json:"unit_key"`
	Metadata     models.UnitMetadata `json:"metadata"`
	RelativePath string              `json:"relative_path"`
	Repositories []string            `json:"repositories"`
	SaveCount    int                 `json:"save_count"`
	FirstSaved   time.Time           `json:"first_saved"`
	LastSaved    time.Time           `json:"last_saved"`
}

// ImageID returns the image ID from the record's unit key.
func (r Record) ImageID() string {
	return r.UnitKey[models.ImageIDKey]
}

// ParentID returns the parent image ID from the record metadata, or the
// empty string for a base layer.
func (r Record) ParentID() string {
	if p, ok := r.Metadata[models.ParentIDKey].(string); ok {
		return p
	}
	return ""
}

// Store is what the layer importer needs from unit storage.
type Store interface {
	LocationFor(relativePath string) string
	Reserve(key models.UnitKey, metadata models.UnitMetadata, relativePath string) (*Unit, error)
	Exists(unit *Unit) (bool, error)
	Save(unit *Unit) error
}

// Catalog queries and manages repository membership of saved units.
type Catalog interface {
	Get(imageID string) (Record, error)
	List(repoID string) ([]Record, error)
	Associate(repoID, imageID string) error
	Disassociate(repoID, imageID string) error
}

// Units is a catalog that can hand out a Store which saves units into a
// specific repository.
type Units interface {
	Catalog
	ForRepo(repoID string) Store
}

// StorageError reports a file system failure while reading or writing unit
// storage.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
