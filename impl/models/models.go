// Package models has the types shared by the import components: the image
// descriptor built for every layer being imported, the per-image metadata read
// from an archive, and the tag entries persisted in a repository scratchpad.
package models

import "path"

// ImageTypeID is the unit type for an imported image layer.
const ImageTypeID = "docker_image"

// JSON keys for tag entries and unit keys/metadata. Tags are persisted as a list
// of {tag, image_id} objects rather than a map because tag names may contain
// characters that are not valid as storage keys.
const (
	ImageTagKey    = "tag"
	ImageIDKey     = "image_id"
	ParentIDKey    = "parent_id"
	ImageSizeKey   = "size"
	ScratchpadTags = "tags"
)

// ImageMetadata is what the importer knows about one image in an archive before
// resolution. A nil Size means the archive did not provide one.
type ImageMetadata struct {
	Parent string
	Size   *int64
}

// UnitKey uniquely identifies a unit in the unit store.
type UnitKey map[string]string

// UnitMetadata is the non-key data stored with a unit.
type UnitMetadata map[string]any

// ImageDescriptor is one node of the layer graph. Descriptors are never
// modified after construction.
type ImageDescriptor struct {
	ImageID  string
	ParentID string
	Size     int64
}

// NewImageDescriptor returns a descriptor for the passed fields.
func NewImageDescriptor(imageID, parentID string, size int64) ImageDescriptor {
	return ImageDescriptor{
		ImageID:  imageID,
		ParentID: parentID,
		Size:     size,
	}
}

// UnitKey returns the key the unit store uses for the descriptor.
func (d ImageDescriptor) UnitKey() UnitKey {
	return UnitKey{ImageIDKey: d.ImageID}
}

// UnitMetadata returns the unit metadata for the descriptor. A descriptor
// without a parent stores a nil parent_id.
func (d ImageDescriptor) UnitMetadata() UnitMetadata {
	var parent any
	if d.ParentID != "" {
		parent = d.ParentID
	}
	return UnitMetadata{
		ParentIDKey:  parent,
		ImageSizeKey: d.Size,
	}
}

// RelativePath is where the unit's content lives relative to the content root.
func (d ImageDescriptor) RelativePath() string {
	return path.Join(ImageTypeID, d.ImageID)
}

// TagEntry maps one tag to an image.
type TagEntry struct {
	Tag     string `json:"tag" yaml:"tag"`
	ImageID string `json:"image_id" yaml:"image_id"`
}
