package archive_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aceeric/layerimport/impl/archive"
	"github.com/aceeric/layerimport/mock"
)

func TestOpenEntry(t *testing.T) {
	td := t.TempDir()
	archivePath := filepath.Join(td, "image.tar")
	layer := bytes.Repeat([]byte("0123456789"), 1000)
	images := []mock.Image{{ID: "aaa", Size: mock.Size(int64(len(layer))), Layer: layer}}
	if err := mock.WriteArchive(archivePath, images, ""); err != nil {
		t.Fatalf("unable to write test archive: %s", err)
	}
	ar, err := archive.Open(archivePath)
	if err != nil {
		t.Fatalf("unable to open archive: %s", err)
	}
	defer ar.Close()

	rc, err := ar.OpenEntry(archive.ImageEntry("aaa", archive.LayerEntry))
	if err != nil {
		t.Fatalf("unable to open layer entry: %s", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("unable to read layer entry: %s", err)
	}
	if !bytes.Equal(got, layer) {
		t.Errorf("layer content mismatch")
	}
	if ar.Path() != archivePath {
		t.Errorf("unexpected path %s", ar.Path())
	}
}

func TestOpenEntryMissing(t *testing.T) {
	td := t.TempDir()
	archivePath := filepath.Join(td, "image.tar")
	images := []mock.Image{{ID: "aaa", Size: mock.Size(0), NoLayer: true}}
	if err := mock.WriteArchive(archivePath, images, ""); err != nil {
		t.Fatalf("unable to write test archive: %s", err)
	}
	ar, err := archive.Open(archivePath)
	if err != nil {
		t.Fatalf("unable to open archive: %s", err)
	}
	defer ar.Close()
	if _, err := ar.OpenEntry(archive.ImageEntry("aaa", archive.LayerEntry)); !errors.Is(err, archive.ErrArchiveEntryMissing) {
		t.Errorf("expected archive.ErrArchiveEntryMissing, got %v", err)
	}
	if _, err := ar.OpenEntry(archive.ImageEntry("aaa", archive.JSONEntry)); err != nil {
		t.Errorf("expected json entry to exist, got %v", err)
	}
}

func TestOpenNoFile(t *testing.T) {
	if _, err := archive.Open(filepath.Join(t.TempDir(), "frobozz.tar")); err == nil {
		t.Errorf("expected error opening a missing archive")
	}
}
