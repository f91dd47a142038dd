// Package archive opens an image archive produced by an image "save" operation
// for random access. Entries are exposed as streams so that layers are never
// read into memory in full.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/nlepage/go-tarfs"
)

const (
	// JSONEntry is the per-image metadata entry name under the image directory.
	JSONEntry = "json"
	// LayerEntry is the per-image layer payload entry name under the image directory.
	LayerEntry = "layer.tar"
	// RepositoriesEntry is the tag file at the root of the archive.
	RepositoriesEntry = "repositories"
)

// ErrArchiveEntryMissing is returned when an expected entry is not in the archive.
var ErrArchiveEntryMissing = errors.New("archive entry missing")

// Reader is a read-only view of a tar archive on the file system. The archive
// file stays open until Close is called.
type Reader struct {
	path string
	file *os.File
	fsys fs.FS
}

// Open opens the tar archive at the passed path and indexes its entries. Only
// plain (uncompressed) tar archives are supported.
func Open(archivePath string) (*Reader, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive %s: %w", archivePath, err)
	}
	// *os.File is an io.ReaderAt so tarfs reads entry content lazily
	fsys, err := tarfs.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unable to read archive %s: %w", archivePath, err)
	}
	return &Reader{
		path: archivePath,
		file: f,
		fsys: fsys,
	}, nil
}

// Path returns the file system path of the archive.
func (r *Reader) Path() string {
	return r.path
}

// FS exposes the archive as a file system for the archive parsing helpers.
func (r *Reader) FS() fs.FS {
	return r.fsys
}

// OpenEntry opens the named entry for streaming. The caller must close the
// returned reader. If the entry does not exist, the returned error wraps
// ErrArchiveEntryMissing.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	name = strings.TrimPrefix(path.Clean(name), "./")
	f, err := r.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s in %s", ErrArchiveEntryMissing, name, r.path)
		}
		return nil, fmt.Errorf("unable to open archive entry %s: %w", name, err)
	}
	return f, nil
}

// Close releases the archive file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ImageEntry returns the name of an entry in the passed image's directory.
func ImageEntry(imageID, entry string) string {
	return path.Join(imageID, entry)
}
