package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/linkcheck/internal/logger"
)

// DefaultDebounce groups bursts of editor writes into one batch.
const DefaultDebounce = 300 * time.Millisecond

// ErrWatcherClosed is returned when Watch is called after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports changes under a workspace root in debounced batches.
// Any non-hidden file counts, not only markdown, because link targets
// such as images can appear or disappear too.
type Watcher struct {
	root     string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher for root. A relative root is made absolute
// so that event paths can be checked with WithinRoot. A non-positive
// debounce uses DefaultDebounce.
func NewWatcher(root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Watcher{root: root, debounce: debounce}
}

// Watch starts watching and returns a channel of changed path batches.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.addTree(fsw, w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	w.watcher = fsw
	out := make(chan []string)
	go w.loop(ctx, fsw, out)
	return out, nil
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			path, relevant := w.handleFsEvent(fsw, event)
			if !relevant {
				continue
			}
			pending[path] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFsEvent filters an fsnotify event and returns the changed path.
// Newly created directories are added to the watch list.
func (w *Watcher) handleFsEvent(fsw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if event.Name == "" || !WithinRoot(w.root, event.Name) {
		return "", false
	}
	if isHidden(RelativePath(w.root, event.Name)) {
		return "", false
	}

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if fsw != nil {
				if err := w.addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
			}
		}
		return event.Name, true
	case event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		return event.Name, true
	default:
		return "", false
	}
}

// addTree registers dir and every non-hidden subdirectory.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(RelativePath(w.root, path)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
