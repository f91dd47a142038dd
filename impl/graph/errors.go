package graph

import (
	"fmt"
	"strings"
)

// MissingAttributeError is returned when an image visited during resolution
// lacks an attribute that every image must have.
type MissingAttributeError struct {
	ImageID   string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("image %s is missing required attribute %q", e.ImageID, e.Attribute)
}

// GraphCycleError is returned when following parent links from an image leads
// back to an image already visited on the same walk.
type GraphCycleError struct {
	ImageID string
	Chain   []string
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("cycle in parent chain at image %s: %s -> %s", e.ImageID, strings.Join(e.Chain, " -> "), e.ImageID)
}

// UnknownImageError is returned when a walk reaches an image ID that has no
// metadata.
type UnknownImageError struct {
	ImageID string
}

func (e *UnknownImageError) Error() string {
	return fmt.Sprintf("no metadata for image %s", e.ImageID)
}
