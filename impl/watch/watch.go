// Package watch uploads image archives as they are dropped into a directory.
//
// fsnotify can emit many events while a single file is being written. Events are
// de-duplicated with a per-file timer that is reset on every event, based on:
//
// https://github.com/fsnotify/fsnotify/blob/main/cmd/fsnotify/dedup.go
//
// De-duplication does not catch every duplicate, so archives that settle are
// queued to a single handler goroutine which processes them one at a time. A
// successfully handled archive is removed, so when a duplicate is dequeued the
// file is gone and the event is ignored.
package watch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// ArchiveExt is the extension of files the watcher picks up.
const ArchiveExt = ".tar"

// Handler processes one archive. Returning nil means the archive can be removed.
type Handler func(ctx context.Context, archivePath string) error

type Watcher struct {
	dir     string
	handler Handler
	waitFor time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	queue   chan string
	// watching, if set, is called with the file system watcher once it is watching
	watching func(*fsnotify.Watcher)
}

// New returns a watcher on 'dir' that passes settled archives to 'handler'.
func New(dir string, handler Handler) *Watcher {
	return &Watcher{
		dir:     dir,
		handler: handler,
		waitFor: 100 * time.Millisecond,
		timers:  make(map[string]*time.Timer),
		queue:   make(chan string, 64),
	}
}

// Run watches the directory, creating it if needed, until 'ctx' is done.
// Archives already in the directory when Run starts are queued first.
func (w *Watcher) Run(ctx context.Context) error {
	if fi, err := os.Stat(w.dir); err != nil {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return err
		}
	} else if !fi.Mode().IsDir() {
		return errors.New("path exists and is not a directory: " + w.dir)
	}
	log.Debugf("initializing watcher for %s", w.dir)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", w.dir, err)
	}

	if w.watching != nil {
		w.watching(watcher)
	}

	// the handler goroutine is stopped on every return path
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		w.stopTimers()
		wg.Wait()
		log.Debug("terminating watcher")
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.process(ctx)
	}()
	w.queueExisting()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				log.Warn("watcher error channel closed")
				return nil
			}
			log.Warnf("watcher error: %s", err)
		case event, ok := <-watcher.Events:
			if !ok {
				log.Warn("watcher event channel closed")
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.isArchive(event.Name) {
				continue
			}
			w.debounce(event.Name)
		}
	}
}

func (w *Watcher) isArchive(name string) bool {
	if fi, err := os.Stat(name); err == nil && fi.Mode().IsDir() {
		return false
	}
	if !strings.HasSuffix(name, ArchiveExt) {
		log.Warnf("file has unsupported extension. Ignoring: %s", name)
		return false
	}
	return true
}

func (w *Watcher) queueExisting() {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*"+ArchiveExt))
	if err != nil {
		return
	}
	for _, m := range matches {
		w.debounce(m)
	}
}

// debounce (re)starts the timer for 'name'. The archive is queued once no
// event for it has been seen for 'waitFor'.
func (w *Watcher) debounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.timers[name]
	if !ok {
		t = time.AfterFunc(math.MaxInt64, func() {
			w.mu.Lock()
			delete(w.timers, name)
			w.mu.Unlock()
			select {
			case w.queue <- name:
			default:
				log.Errorf("watch queue full, dropping %s", name)
			}
		})
		t.Stop()
		w.timers[name] = t
	}
	t.Reset(w.waitFor)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
}

func (w *Watcher) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-w.queue:
			w.handle(ctx, name)
		}
	}
}

// handle runs the handler on the archive and then removes it. If the archive
// does not exist the event was a duplicate and is ignored.
func (w *Watcher) handle(ctx context.Context, name string) {
	if _, err := os.Stat(name); err != nil {
		log.Debugf("file not found (already processed): %s", name)
		return
	}
	if err := w.handler(ctx, name); err != nil {
		log.Errorf("error handling archive %s: %s", name, err)
		return
	}
	log.Debugf("removing: %s", name)
	if err := os.Remove(name); err != nil {
		log.Errorf("error attempting to remove file %s: %s", name, err)
	}
}
