// Package watch re-runs analysis when source files under a root change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/parser"
)

// DefaultDebounce is how long a file must stay unchanged before it is
// reported.
const DefaultDebounce = 500 * time.Millisecond

const tick = 100 * time.Millisecond

// ChangeFunc receives the files that changed since the last call, sorted.
type ChangeFunc func(paths []string)

// Watcher monitors a directory tree and reports settled source file changes
// in batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	logger    *slog.Logger
	debounce  time.Duration
	root      string
	file      string // set when root is a single file
	onChange  ChangeFunc

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle time. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for root, which may be a directory or a
// single file. A file is watched through its parent directory. onChange is
// called from Run's goroutine, so batches never overlap.
func NewWatcher(root string, cfg *config.Config, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  DefaultDebounce,
		root:      root,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}
	if !info.IsDir() {
		w.file = filepath.Clean(root)
		w.root = filepath.Dir(w.file)
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.config == nil {
		w.config = config.DefaultConfig()
	}
	w.logger = logging.OrDiscard(w.logger)
	return w, nil
}

// Run watches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	if w.file != "" {
		if err := w.fsWatcher.Add(w.root); err != nil {
			return err
		}
	} else if err := w.addTree(w.root); err != nil {
		return err
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case now := <-ticker.C:
			if ready := w.flush(now); len(ready) > 0 && w.onChange != nil {
				w.onChange(ready)
			}
		}
	}
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("watch: walk error", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.config.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name
	if w.file != "" && filepath.Clean(path) != w.file {
		return
	}
	if event.Op&fsnotify.Create != 0 && w.file == "" && isDir(path) {
		if !w.config.IsExcludedDir(filepath.Base(path)) {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("watch: adding directory", "path", path, "error", err)
			}
		}
		return
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	if w.config.ShouldExclude(rel) || !w.config.LanguageEnabled(parser.DetectLanguage(path)) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// flush removes and returns the pending paths that have been quiet for the
// debounce period as of now.
func (w *Watcher) flush(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	slices.Sort(ready)
	return ready
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the watched directories.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
