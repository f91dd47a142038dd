// Package tags maintains the repository tag list kept in the scratchpad.
package tags

import (
	"github.com/aceeric/layerimport/impl/models"
)

// Reconcile returns the tag list that results from applying 'newTags' to
// 'existing'. Last write wins: every existing entry whose tag is in 'newTags'
// is dropped and 'newTags' is appended in its given order. If 'newTags' names
// a tag more than once the tag appears once, at its first position, with the
// image ID of its last occurrence. Neither input is modified.
func Reconcile(existing []models.TagEntry, newTags []models.TagEntry) []models.TagEntry {
	pos := make(map[string]int, len(newTags))
	collapsed := make([]models.TagEntry, 0, len(newTags))
	for _, nt := range newTags {
		if i, ok := pos[nt.Tag]; ok {
			collapsed[i].ImageID = nt.ImageID
			continue
		}
		pos[nt.Tag] = len(collapsed)
		collapsed = append(collapsed, nt)
	}
	result := make([]models.TagEntry, 0, len(existing)+len(collapsed))
	for _, e := range existing {
		if _, replaced := pos[e.Tag]; !replaced {
			result = append(result, e)
		}
	}
	return append(result, collapsed...)
}

// RemoveImages returns 'existing' without the entries that point at any of
// 'imageIDs'. The input is not modified.
func RemoveImages(existing []models.TagEntry, imageIDs []string) []models.TagEntry {
	removed := make(map[string]struct{}, len(imageIDs))
	for _, id := range imageIDs {
		removed[id] = struct{}{}
	}
	result := make([]models.TagEntry, 0, len(existing))
	for _, e := range existing {
		if _, ok := removed[e.ImageID]; !ok {
			result = append(result, e)
		}
	}
	return result
}
