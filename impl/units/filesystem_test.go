package units

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceeric/layerimport/impl/models"
	"github.com/google/go-cmp/cmp"
	"github.com/opencontainers/go-digest"
)

func imageID(seed string) string {
	return digest.FromString(seed).Encoded()
}

func reserve(t *testing.T, s Store, id, parent string) *Unit {
	d := models.NewImageDescriptor(id, parent, 10)
	u, err := s.Reserve(d.UnitKey(), d.UnitMetadata(), d.RelativePath())
	if err != nil {
		t.Fatalf("reserve %s: %s", id, err)
	}
	return u
}

func TestReserveAndExists(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemStore(root, "repo1")
	id := imageID("a")
	u := reserve(t, s, id, "")
	expPath := filepath.Join(root, "content", "docker_image", id)
	if u.StoragePath != expPath {
		t.Errorf("expected storage path %s, got %s", expPath, u.StoragePath)
	}
	if u.TypeID != models.ImageTypeID || u.ImageID() != id {
		t.Errorf("unexpected unit %+v", u)
	}
	if exists, err := s.Exists(u); err != nil || exists {
		t.Errorf("expected no content, got %t, %v", exists, err)
	}
	if err := os.MkdirAll(u.StoragePath, 0755); err != nil {
		t.FailNow()
	}
	if exists, err := s.Exists(u); err != nil || !exists {
		t.Errorf("expected content, got %t, %v", exists, err)
	}
}

func TestReserveInvalidID(t *testing.T) {
	s := NewFilesystemStore(t.TempDir(), "repo1")
	for _, id := range []string{"", "abc", "../../etc", imageID("a") + "0"} {
		_, err := s.Reserve(models.UnitKey{models.ImageIDKey: id}, nil, "docker_image/"+id)
		if !errors.Is(err, ErrInvalidImageID) {
			t.Errorf("expected ErrInvalidImageID for %q, got %v", id, err)
		}
	}
}

func TestSaveBookkeeping(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemStore(root, "repo1")
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	base, child := imageID("base"), imageID("child")
	if err := s.Save(reserve(t, s, base, "")); err != nil {
		t.Fatalf("save: %s", err)
	}
	if err := s.Save(reserve(t, s, child, base)); err != nil {
		t.Fatalf("save: %s", err)
	}
	other := s.ForRepo("repo2")
	if err := other.Save(reserve(t, other, base, "")); err != nil {
		t.Fatalf("save: %s", err)
	}
	rec, err := s.Get(base)
	if err != nil {
		t.Fatalf("get: %s", err)
	}
	if rec.SaveCount != 2 {
		t.Errorf("expected save count 2, got %d", rec.SaveCount)
	}
	if diff := cmp.Diff([]string{"repo1", "repo2"}, rec.Repositories); diff != "" {
		t.Errorf("repositories mismatch (-want +got):\n%s", diff)
	}
	if !rec.LastSaved.After(rec.FirstSaved) {
		t.Errorf("expected last saved %s after first saved %s", rec.LastSaved, rec.FirstSaved)
	}
	rec, err = s.Get(child)
	if err != nil {
		t.Fatalf("get: %s", err)
	}
	if rec.ParentID() != base {
		t.Errorf("expected parent %s, got %s", base, rec.ParentID())
	}
	if _, err := s.Get(imageID("nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndAssociation(t *testing.T) {
	s := NewFilesystemStore(t.TempDir(), "repo1")
	recs, err := s.List("")
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty list on empty store, got %v, %v", recs, err)
	}
	a, b := imageID("a"), imageID("b")
	for _, id := range []string{a, b} {
		if err := s.Save(reserve(t, s, id, "")); err != nil {
			t.Fatalf("save: %s", err)
		}
	}
	if err := s.Associate("repo2", a); err != nil {
		t.Fatalf("associate: %s", err)
	}
	if err := s.Associate("repo2", a); err != nil {
		t.Fatalf("associate twice: %s", err)
	}
	if err := s.Disassociate("repo1", a); err != nil {
		t.Fatalf("disassociate: %s", err)
	}
	if err := s.Associate("repo2", imageID("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	tests := []struct {
		repo string
		want []string
	}{
		{"", sortedIDs(a, b)},
		{"repo1", []string{b}},
		{"repo2", []string{a}},
		{"repo3", []string{}},
	}
	for _, tt := range tests {
		recs, err := s.List(tt.repo)
		if err != nil {
			t.Fatalf("list %s: %s", tt.repo, err)
		}
		got := []string{}
		for _, r := range recs {
			got = append(got, r.ImageID())
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("list %q mismatch (-want +got):\n%s", tt.repo, diff)
		}
	}
}

func sortedIDs(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.json")
	for _, content := range []string{"first", "second"} {
		if err := WriteFileAtomic(path, []byte(content)); err != nil {
			t.Fatalf("write: %s", err)
		}
		b, err := os.ReadFile(path)
		if err != nil || string(b) != content {
			t.Errorf("expected %q, got %q, %v", content, b, err)
		}
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "sub"))
	if len(entries) != 1 {
		t.Errorf("expected temp files to be gone, found %d entries", len(entries))
	}
}
