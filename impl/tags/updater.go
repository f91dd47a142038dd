package tags

import (
	"fmt"

	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/scratchpad"
	log "github.com/sirupsen/logrus"
)

// TagParser reads the tag entries from an archive.
type TagParser interface {
	Tags(archivePath string) ([]models.TagEntry, error)
}

// TagParserFunc adapts a function to a TagParser.
type TagParserFunc func(archivePath string) ([]models.TagEntry, error)

func (f TagParserFunc) Tags(archivePath string) ([]models.TagEntry, error) {
	return f(archivePath)
}

// Updater applies archive tags to repository scratchpads.
type Updater struct {
	pads   scratchpad.Store
	parser TagParser
}

func NewUpdater(pads scratchpad.Store, parser TagParser) *Updater {
	return &Updater{
		pads:   pads,
		parser: parser,
	}
}

// UpdateTags parses the tags in the archive at 'archivePath' and reconciles
// them into the scratchpad of 'repoID'.
func (u *Updater) UpdateTags(repoID string, archivePath string) error {
	newTags, err := u.parser.Tags(archivePath)
	if err != nil {
		return fmt.Errorf("unable to read tags from %s: %w", archivePath, err)
	}
	return u.apply(repoID, func(existing []models.TagEntry) []models.TagEntry {
		return Reconcile(existing, newTags)
	})
}

// RemoveTags drops the tags in 'repoID' that point at any of 'imageIDs'.
func (u *Updater) RemoveTags(repoID string, imageIDs []string) error {
	return u.apply(repoID, func(existing []models.TagEntry) []models.TagEntry {
		return RemoveImages(existing, imageIDs)
	})
}

// Tags returns the current tag list for 'repoID'.
func (u *Updater) Tags(repoID string) ([]models.TagEntry, error) {
	pad, err := u.pads.Get(repoID)
	if err != nil {
		return nil, err
	}
	return pad.Tags, nil
}

func (u *Updater) apply(repoID string, fn func([]models.TagEntry) []models.TagEntry) error {
	pad, err := u.pads.Get(repoID)
	if err != nil {
		return fmt.Errorf("unable to read scratchpad for %s: %w", repoID, err)
	}
	before := len(pad.Tags)
	pad.Tags = fn(pad.Tags)
	if err := u.pads.Update(repoID, pad); err != nil {
		return fmt.Errorf("unable to update scratchpad for %s: %w", repoID, err)
	}
	metrics.IncTagUpdates()
	log.Debugf("repository %s tags: %d before, %d after", repoID, before, len(pad.Tags))
	return nil
}
