package mock

import (
	"archive/tar"
	"encoding/json"
	"os"
	"path"
	"time"
)

// Image describes one image to place into a test archive.
type Image struct {
	ID     string
	Parent string
	// Size is written to the image json as "Size" unless nil
	Size  *int64
	Layer []byte
	// NoJSON and NoLayer leave the corresponding entry out of the archive
	NoJSON  bool
	NoLayer bool
}

// Size supports initializing Image.Size with a literal.
func Size(n int64) *int64 {
	return &n
}

// WriteArchive writes a tar archive in the layout produced by "docker save" to
// the passed path: a directory per image holding "json" and "layer.tar", and a
// "repositories" file at the root if 'repositories' is not empty.
func WriteArchive(archivePath string, images []Image, repositories string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	tw := tar.NewWriter(f)
	now := time.Now()
	for _, img := range images {
		if err := tw.WriteHeader(&tar.Header{Name: img.ID + "/", Typeflag: tar.TypeDir, Mode: 0755, ModTime: now}); err != nil {
			return err
		}
		if !img.NoJSON {
			if err := writeEntry(tw, path.Join(img.ID, "json"), imageJSON(img), now); err != nil {
				return err
			}
		}
		if !img.NoLayer {
			if err := writeEntry(tw, path.Join(img.ID, "layer.tar"), img.Layer, now); err != nil {
				return err
			}
		}
	}
	if repositories != "" {
		if err := writeEntry(tw, "repositories", []byte(repositories), now); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func writeEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// imageJSON returns the "<id>/json" entry content for 'img'.
func imageJSON(img Image) []byte {
	md := map[string]any{"id": img.ID}
	if img.Parent != "" {
		md["parent"] = img.Parent
	}
	if img.Size != nil {
		md["Size"] = *img.Size
	}
	b, _ := json.Marshal(md)
	return b
}
