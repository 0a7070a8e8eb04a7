package ptyfile

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/shellbench/shellbench/internal/types"
)

// StaleFileNotifier is called when a pty file disappears out from under the
// store (an operator rm -rf of a screen dir, a stray cleanup script) so a
// caller can mark the line's cmd as needing a fresh ring file rather than
// silently recreating one on the next append.
type StaleFileNotifier func(screenId types.ScreenId, lineId types.LineId)

// Watcher watches every screen directory under a Store's homeDir for
// externally deleted pty files. Screen directories are added to the watch
// list as the Store creates them; Watcher never walks the filesystem itself.
type Watcher struct {
	fsw   *fsnotify.Watcher
	log   *slog.Logger
	store *Store

	OnStaleFile StaleFileNotifier

	mu      sync.Mutex
	watched map[string]bool
	done    chan struct{}
}

// NewWatcher creates a Watcher bound to s. Call Start to begin watching and
// Close to release the underlying inotify/kqueue descriptor.
func NewWatcher(s *Store, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, log: log, store: s, watched: make(map[string]bool), done: make(chan struct{})}
	s.dirWatcher = w
	return w, nil
}

// watchDir adds dir to the fsnotify watch list if not already watched. It is
// called by Store.screenDir right after a screen directory is created or
// first looked up, so Watcher never needs to scan homeDir itself.
func (w *Watcher) watchDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn("ptyfile: watch screen dir", "dir", dir, "error", err)
		return
	}
	w.watched[dir] = true
}

// Start runs the event loop until Close is called. Meant to be run in its
// own goroutine, supervised the same way the daemon's other background
// tasks are (see internal/daemon's errgroup wiring).
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("ptyfile: watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".pty") {
		return
	}
	screenId := types.ScreenId(filepath.Base(filepath.Dir(event.Name)))
	lineId := types.LineId(strings.TrimSuffix(base, ".pty"))

	w.log.Warn("ptyfile: pty file removed externally", "screenid", screenId, "lineid", lineId)
	if w.OnStaleFile != nil {
		w.OnStaleFile(screenId, lineId)
	}
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
