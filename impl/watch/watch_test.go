package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	fail  error
	got   chan string
}

func (r *recorder) handle(_ context.Context, archivePath string) error {
	r.mu.Lock()
	r.paths = append(r.paths, archivePath)
	r.mu.Unlock()
	r.got <- archivePath
	return r.fail
}

func startWatcher(t *testing.T, dir string, r *recorder) (context.CancelFunc, chan error) {
	w := New(dir, r.handle)
	w.waitFor = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	return cancel, done
}

func waitFor(t *testing.T, ch chan string) string {
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for handler")
	}
	return ""
}

func TestWatchHandlesArchive(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{got: make(chan string, 10)}
	cancel, done := startWatcher(t, dir, r)
	defer func() {
		cancel()
		<-done
	}()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.FailNow()
	}
	archive := filepath.Join(dir, "image.tar")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.FailNow()
	}
	if got := waitFor(t, r.got); got != archive {
		t.Errorf("expected %s, got %s", archive, got)
	}
	// removal follows the handler return
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(archive); errors.Is(err, os.ErrNotExist) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("archive was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("expected non-archive file to be left alone")
	}
}

func TestWatchExistingAndFailure(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "existing.tar")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.FailNow()
	}
	r := &recorder{got: make(chan string, 10), fail: errors.New("bad archive")}
	cancel, done := startWatcher(t, dir, r)
	if got := waitFor(t, r.got); got != archive {
		t.Errorf("expected %s, got %s", archive, got)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("expected failed archive to be kept")
	}
}

func TestWatchNotADirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.FailNow()
	}
	if err := New(f, nil).Run(context.Background()); err == nil {
		t.Errorf("expected error watching a file")
	}
}

func TestWatchCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	r := &recorder{got: make(chan string, 1)}
	cancel, done := startWatcher(t, dir, r)
	time.Sleep(100 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("expected watch directory to be created")
	}
}

// Tests that when the file system watcher shuts down underneath Run, the
// in-flight handler is cancelled and waited for before Run returns
func TestWatchStopsWhenEventsClose(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "one.tar"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	var cancelled atomic.Bool
	w := New(dir, func(ctx context.Context, _ string) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	w.waitFor = 20 * time.Millisecond
	fsw := make(chan *fsnotify.Watcher, 1)
	w.watching = func(watcher *fsnotify.Watcher) {
		fsw <- watcher
	}
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background())
	}()
	watcher := <-fsw
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	watcher.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error %s", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the watcher closed")
	}
	if !cancelled.Load() {
		t.Error("handler was not cancelled before Run returned")
	}
	if _, err := os.Stat(filepath.Join(dir, "one.tar")); err != nil {
		t.Errorf("expected the cancelled archive to be kept: %s", err)
	}
}
