// Package upload runs whole-archive operations against a repository: importing
// an archive, removing units, and copying units between repositories.
package upload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aceeric/layerimport/impl/archive"
	"github.com/aceeric/layerimport/impl/graph"
	"github.com/aceeric/layerimport/impl/importer"
	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/scratchpad"
	"github.com/aceeric/layerimport/impl/tags"
	"github.com/aceeric/layerimport/impl/tarutils"
	"github.com/aceeric/layerimport/impl/units"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNoRepo        = errors.New("repository id is required")
	ErrNotInSource   = errors.New("unit is not in the source repository")
	ErrSameRepo      = errors.New("source and destination repository are the same")
	ErrParentMissing = errors.New("parent unit is not in the source repository")
)

// Result summarizes one upload.
type Result struct {
	Repo        string
	Archive     string
	Descriptors int
	Extracted   int
	Skipped     int
	Bytes       int64
	Elapsed     time.Duration
}

type Uploader struct {
	units units.Units
	tags  *tags.Updater
	opts  importer.Options
}

// New returns an uploader over the passed unit and scratchpad stores. Tags are
// parsed from the archive's repositories file.
func New(u units.Units, pads scratchpad.Store, opts importer.Options) *Uploader {
	return &Uploader{
		units: u,
		tags:  tags.NewUpdater(pads, tags.TagParserFunc(tarutils.Tags)),
		opts:  opts,
	}
}

// Tags returns the tag updater for queries against repository tags.
func (u *Uploader) Tags() *tags.Updater {
	return u.tags
}

// Upload imports every image in the archive at 'archivePath' into 'repoID' and
// then applies the archive's tags to the repository. If 'maskID' is not empty,
// the walk up from each leaf stops at that image, so it and its ancestors are
// not imported.
func (u *Uploader) Upload(ctx context.Context, repoID, archivePath, maskID string) (Result, error) {
	res, err := u.upload(ctx, repoID, archivePath, maskID)
	if err != nil {
		metrics.IncUploadErrors()
		return res, err
	}
	metrics.IncUploadsByRepo(repoID)
	log.Infof("uploaded %s to repository %s: %d images, %d extracted, %d already present, %d bytes in %s",
		archivePath, repoID, res.Descriptors, res.Extracted, res.Skipped, res.Bytes, res.Elapsed)
	return res, nil
}

func (u *Uploader) upload(ctx context.Context, repoID, archivePath, maskID string) (Result, error) {
	start := time.Now()
	res := Result{Repo: repoID, Archive: archivePath}
	if err := validateRepo(repoID); err != nil {
		return res, err
	}
	if err := u.importArchive(ctx, repoID, archivePath, maskID, &res); err != nil {
		return res, err
	}
	if err := u.tags.UpdateTags(repoID, archivePath); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// validateRepo rejects repository IDs that could not be given a scratchpad, so
// that no unit is associated with a repository whose tags cannot be kept.
func validateRepo(repoID string) error {
	if repoID == "" {
		return ErrNoRepo
	}
	return scratchpad.ValidateRepoID(repoID)
}

// importArchive holds the archive open for the duration of the layer import
func (u *Uploader) importArchive(ctx context.Context, repoID, archivePath, maskID string, res *Result) error {
	ar, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer ar.Close()
	metadata, err := tarutils.Metadata(ar.FS())
	if err != nil {
		return err
	}
	leaves := tarutils.YoungestChildren(metadata)
	descriptors, err := graph.Resolve(metadata, leaves, maskID)
	if err != nil {
		return err
	}
	res.Descriptors = len(descriptors)
	segments, err := graph.Segments(descriptors, metadata)
	if err != nil {
		return err
	}
	log.Debugf("archive %s: %d leaves, %d images to import in %d segments", ar.Path(), len(leaves), len(descriptors), len(segments))
	im := importer.New(u.units.ForRepo(repoID), u.opts)
	for _, seg := range segments {
		stats, err := im.ImportLayers(ctx, seg.Descriptors, seg.Ancestry, ar)
		res.Extracted += stats.Extracted
		res.Skipped += stats.Skipped
		res.Bytes += stats.Bytes
		if err != nil {
			return err
		}
	}
	return nil
}

// Remove disassociates 'imageIDs' from 'repoID' and drops the repository tags
// that point at them.
func (u *Uploader) Remove(repoID string, imageIDs []string) error {
	if err := validateRepo(repoID); err != nil {
		return err
	}
	for _, id := range imageIDs {
		if err := u.units.Disassociate(repoID, id); err != nil {
			return fmt.Errorf("unable to remove image %s from %s: %w", id, repoID, err)
		}
	}
	if err := u.tags.RemoveTags(repoID, imageIDs); err != nil {
		return err
	}
	log.Infof("removed %d image(s) from repository %s", len(imageIDs), repoID)
	return nil
}

// Copy associates units of 'srcRepo' with 'dstRepo'. Each unit is copied along
// with its chain of ancestors since a layer is unusable without them. If
// 'imageIDs' is empty every unit in 'srcRepo' is copied. Returns the IDs
// copied, each requested unit followed by its ancestors.
func (u *Uploader) Copy(srcRepo, dstRepo string, imageIDs []string) ([]string, error) {
	for _, repoID := range []string{srcRepo, dstRepo} {
		if err := validateRepo(repoID); err != nil {
			return nil, err
		}
	}
	if srcRepo == dstRepo {
		return nil, ErrSameRepo
	}
	if len(imageIDs) == 0 {
		recs, err := u.units.List(srcRepo)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			imageIDs = append(imageIDs, rec.ImageID())
		}
	}
	copied := []string{}
	seen := map[string]bool{}
	for _, id := range imageIDs {
		chain := []string{}
		for cur := id; cur != "" && !seen[cur]; {
			rec, err := u.units.Get(cur)
			if err != nil {
				return copied, err
			}
			if !slices.Contains(rec.Repositories, srcRepo) {
				if cur == id {
					return copied, fmt.Errorf("%w: %s in %s", ErrNotInSource, cur, srcRepo)
				}
				return copied, fmt.Errorf("%w: %s (ancestor of %s) in %s", ErrParentMissing, cur, id, srcRepo)
			}
			if err := u.units.Associate(dstRepo, cur); err != nil {
				return copied, err
			}
			seen[cur] = true
			chain = append(chain, cur)
			cur = rec.ParentID()
		}
		copied = append(copied, chain...)
	}
	log.Infof("copied %d unit(s) from %s to %s", len(copied), srcRepo, dstRepo)
	return copied, nil
}
