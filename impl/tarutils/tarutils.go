// Package tarutils reads what the importer needs from an image archive without
// extracting it: the per-image metadata from each "<id>/json" entry, the leaf
// images, and the tags in the "repositories" file.
package tarutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"

	"github.com/aceeric/layerimport/impl/archive"
	"github.com/aceeric/layerimport/impl/models"
)

// ErrRepositories is returned when the repositories file is missing or does not
// name exactly one repository.
var ErrRepositories = errors.New("invalid repositories file")

// imageJSON has the fields of interest in an image's json entry
type imageJSON struct {
	Parent string `json:"parent"`
	Size   *int64 `json:"Size"`
}

// Metadata returns the parent and size of every image in the archive, keyed by
// image ID. The image ID is the name of the directory holding the json entry.
func Metadata(fsys fs.FS) (map[string]models.ImageMetadata, error) {
	entries, err := fs.Glob(fsys, path.Join("*", archive.JSONEntry))
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]models.ImageMetadata, len(entries))
	for _, entry := range entries {
		b, err := fs.ReadFile(fsys, entry)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", entry, err)
		}
		var img imageJSON
		if err := json.Unmarshal(b, &img); err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", entry, err)
		}
		metadata[path.Dir(entry)] = models.ImageMetadata{
			Parent: img.Parent,
			Size:   img.Size,
		}
	}
	return metadata, nil
}

// YoungestChildren returns the IDs of the images that are not the parent of any
// other image in 'metadata', sorted so that repeated runs walk in the same order.
func YoungestChildren(metadata map[string]models.ImageMetadata) []string {
	parents := make(map[string]bool, len(metadata))
	for _, md := range metadata {
		if md.Parent != "" {
			parents[md.Parent] = true
		}
	}
	leaves := []string{}
	for imageID := range metadata {
		if !parents[imageID] {
			leaves = append(leaves, imageID)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Tags opens the archive at the passed path and returns its tags. See TagsFS.
func Tags(archivePath string) ([]models.TagEntry, error) {
	ar, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer ar.Close()
	return TagsFS(ar.FS())
}

// TagsFS parses the repositories file at the root of the archive. The file maps
// repository name to a map of tag to image ID, and must name exactly one
// repository. Tags are returned in the order they appear in the file.
func TagsFS(fsys fs.FS) ([]models.TagEntry, error) {
	f, err := fsys.Open(archive.RepositoriesEntry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s entry", ErrRepositories, archive.RepositoriesEntry)
		}
		return nil, err
	}
	defer f.Close()
	return parseRepositories(f)
}

// parseRepositories walks the JSON tokens rather than unmarshaling into a map
// so that the document order of the tags survives.
func parseRepositories(r io.Reader) ([]models.TagEntry, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var tags []models.TagEntry
	repoCount := 0
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrRepositories, err)
		}
		repoCount++
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrRepositories, err)
			}
			tag, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected token %v", ErrRepositories, tok)
			}
			var imageID string
			if err := dec.Decode(&imageID); err != nil {
				return nil, fmt.Errorf("%w: tag %s: %s", ErrRepositories, tag, err)
			}
			tags = append(tags, models.TagEntry{Tag: tag, ImageID: imageID})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if repoCount != 1 {
		return nil, fmt.Errorf("%w: expected exactly one repository, found %d", ErrRepositories, repoCount)
	}
	return tags, nil
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepositories, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != delim {
		return fmt.Errorf("%w: expected %q, got %v", ErrRepositories, delim, tok)
	}
	return nil
}
