package graph

import (
	"github.com/aceeric/layerimport/impl/models"
)

// Segment is a run of descriptors that is a prefix of a single ancestry chain,
// paired with that chain. For every i, Ancestry[i] is Descriptors[i].ImageID,
// and Ancestry[i:] is the ancestry to persist with Descriptors[i].
type Segment struct {
	Descriptors []models.ImageDescriptor
	Ancestry    []string
}

// Segments splits the output of Resolve into segments the importer can take one
// at a time. Because Resolve emits each chain leaf-first and never re-emits an
// ancestor, the descriptors newly emitted for a leaf are always a prefix of that
// leaf's ancestry, so a new segment begins wherever the next descriptor is not
// the next ancestor.
func Segments(descriptors []models.ImageDescriptor, metadata map[string]models.ImageMetadata) ([]Segment, error) {
	segments := []Segment{}
	for i := 0; i < len(descriptors); {
		ancestry, err := Ancestry(metadata, descriptors[i].ImageID)
		if err != nil {
			return nil, err
		}
		j := i + 1
		for j < len(descriptors) && j-i < len(ancestry) && descriptors[j].ImageID == ancestry[j-i] {
			j++
		}
		segments = append(segments, Segment{
			Descriptors: descriptors[i:j],
			Ancestry:    ancestry,
		})
		i = j
	}
	return segments, nil
}
