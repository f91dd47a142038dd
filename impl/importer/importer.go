// Package importer extracts resolved image layers from an archive into unit
// storage. Layers already in storage are not extracted again, but every layer
// is saved so that the store can associate it with the importing repository.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aceeric/layerimport/impl/archive"
	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/stream"
	"github.com/aceeric/layerimport/impl/units"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Names of the files written into each unit's storage location
const (
	AncestryFile = "ancestry"
	JSONFile     = "json"
	LayerFile    = "layer"
)

// stagingInfix separates a location from the unique suffix of its staging directory
const stagingInfix = ".partial-"

var ErrAncestryMismatch = errors.New("ancestry does not match image descriptors")

// ArchiveReader opens archive entries for streaming.
type ArchiveReader interface {
	OpenEntry(name string) (io.ReadCloser, error)
}

// Options configure how layers are written.
type Options struct {
	// ChunkSize is the copy buffer size for layer content
	ChunkSize int
	// Codec compresses the layer file
	Codec stream.Codec
	// AtomicWrites stages each unit in a sibling directory and renames it into
	// place once complete, so a failed extraction leaves nothing behind. If false
	// the unit is written in place and a failure leaves a partial location.
	AtomicWrites bool
}

// DefaultOptions returns 4K chunks, gzip compression and atomic writes.
func DefaultOptions() Options {
	codec, _ := stream.CodecFor(stream.Gzip)
	return Options{
		ChunkSize:    stream.DefaultChunkSize,
		Codec:        codec,
		AtomicWrites: true,
	}
}

// Stats summarizes one import.
type Stats struct {
	Extracted int
	Skipped   int
	Bytes     int64
}

func (s *Stats) add(o Stats) {
	s.Extracted += o.Extracted
	s.Skipped += o.Skipped
	s.Bytes += o.Bytes
}

type Importer struct {
	store units.Store
	opts  Options
}

// New returns an importer that writes to 'store'. Zero valued options fall back
// to the defaults, except AtomicWrites which is used as passed.
func New(store units.Store, opts Options) *Importer {
	def := DefaultOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.Codec == nil {
		opts.Codec = def.Codec
	}
	return &Importer{
		store: store,
		opts:  opts,
	}
}

// ImportLayers imports 'descriptors' in order. 'ancestry' must be index aligned
// with 'descriptors': ancestry[i] is the image ID of descriptors[i], and the
// remainder of the list from i onward is the ancestry chain stored with that
// layer. Alignment is verified before storage is touched.
func (im *Importer) ImportLayers(ctx context.Context, descriptors []models.ImageDescriptor, ancestry []string, ar ArchiveReader) (Stats, error) {
	stats := Stats{}
	if err := checkAlignment(descriptors, ancestry); err != nil {
		return stats, err
	}
	for i, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s, err := im.importLayer(ctx, d, ancestry[i:], ar)
		stats.add(s)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func checkAlignment(descriptors []models.ImageDescriptor, ancestry []string) error {
	if len(ancestry) < len(descriptors) {
		return fmt.Errorf("%w: %d descriptors, %d ancestry entries", ErrAncestryMismatch, len(descriptors), len(ancestry))
	}
	for i, d := range descriptors {
		if ancestry[i] != d.ImageID {
			return fmt.Errorf("%w: position %d has image %s, ancestry has %s", ErrAncestryMismatch, i, d.ImageID, ancestry[i])
		}
	}
	return nil
}

func (im *Importer) importLayer(ctx context.Context, d models.ImageDescriptor, ancestry []string, ar ArchiveReader) (Stats, error) {
	stats := Stats{}
	unit, err := im.store.Reserve(d.UnitKey(), d.UnitMetadata(), d.RelativePath())
	if err != nil {
		return stats, fmt.Errorf("unable to reserve unit for image %s: %w", d.ImageID, err)
	}
	exists, err := im.store.Exists(unit)
	if err != nil {
		return stats, err
	}
	if exists {
		log.Debugf("image %s already in storage at %s", d.ImageID, unit.StoragePath)
		metrics.IncLayersSkipped()
		stats.Skipped++
	} else {
		n, err := im.extract(ctx, unit.StoragePath, d.ImageID, ancestry, ar)
		if err != nil {
			return stats, err
		}
		log.Debugf("extracted image %s (%d bytes) to %s", d.ImageID, n, unit.StoragePath)
		metrics.IncLayersImported()
		metrics.AddLayerBytes(float64(n))
		stats.Extracted++
		stats.Bytes += n
	}
	if err := im.store.Save(unit); err != nil {
		return stats, fmt.Errorf("unable to save unit for image %s: %w", d.ImageID, err)
	}
	return stats, nil
}

// extract writes the ancestry, json, and layer files for one image into
// 'location' and returns the number of layer bytes read from the archive.
func (im *Importer) extract(ctx context.Context, location, imageID string, ancestry []string, ar ArchiveReader) (int64, error) {
	target := location
	if im.opts.AtomicWrites {
		sweepStaging(location)
		target = location + stagingInfix + uuid.NewString()
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return 0, &units.StorageError{Op: "mkdir", Path: target, Err: err}
	}
	done := false
	if im.opts.AtomicWrites {
		defer func() {
			if !done {
				if err := os.RemoveAll(target); err != nil {
					log.Errorf("unable to remove staging directory %s: %s", target, err)
				}
			}
		}()
	}
	if err := writeAncestry(filepath.Join(target, AncestryFile), ancestry); err != nil {
		return 0, err
	}
	none, _ := stream.CodecFor(stream.None)
	if _, err := im.copyEntry(ctx, ar, archive.ImageEntry(imageID, archive.JSONEntry), filepath.Join(target, JSONFile), none); err != nil {
		return 0, err
	}
	n, err := im.copyEntry(ctx, ar, archive.ImageEntry(imageID, archive.LayerEntry), filepath.Join(target, LayerFile), im.opts.Codec)
	if err != nil {
		return 0, err
	}
	if im.opts.AtomicWrites {
		if err := os.Rename(target, location); err != nil {
			return 0, &units.StorageError{Op: "rename", Path: location, Err: err}
		}
	}
	done = true
	return n, nil
}

// sweepStaging removes staging directories for 'location' left behind by an
// import that was killed before it could clean up.
func sweepStaging(location string) {
	parent, base := filepath.Split(location)
	entries, err := os.ReadDir(parent)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base+stagingInfix) {
			continue
		}
		stale := filepath.Join(parent, e.Name())
		log.Warnf("removing stale staging directory %s", stale)
		if err := os.RemoveAll(stale); err != nil {
			log.Errorf("unable to remove stale staging directory %s: %s", stale, err)
		}
	}
}

func writeAncestry(path string, ancestry []string) error {
	b, err := json.Marshal(ancestry)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return &units.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// copyEntry streams archive entry 'name' through 'codec' into the file at
// 'dst'. Both ends are closed before returning.
func (im *Importer) copyEntry(ctx context.Context, ar ArchiveReader, name, dst string, codec stream.Codec) (int64, error) {
	src, err := ar.OpenEntry(name)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	f, err := os.Create(dst)
	if err != nil {
		return 0, &units.StorageError{Op: "create", Path: dst, Err: err}
	}
	defer f.Close()
	w, err := codec.NewWriter(f)
	if err != nil {
		return 0, err
	}
	n, err := stream.Copy(ctx, &storageWriter{w: w, path: dst}, src, im.opts.ChunkSize)
	if err != nil {
		w.Close()
		return n, fmt.Errorf("unable to copy %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return n, &units.StorageError{Op: "write", Path: dst, Err: err}
	}
	if err := f.Close(); err != nil {
		return n, &units.StorageError{Op: "close", Path: dst, Err: err}
	}
	return n, nil
}

// storageWriter reports write failures as storage errors so they can be told
// apart from archive read failures.
type storageWriter struct {
	w    io.Writer
	path string
}

func (s *storageWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		err = &units.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return n, err
}
