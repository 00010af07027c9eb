// Package ingest turns a watched folder into a queue of video submissions.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const defaultSettle = 2 * time.Second

// Watcher reports files that appear under the watched patterns once they have
// stopped changing for the settle period. Each path is reported once until it
// is removed or renamed away.
type Watcher struct {
	log      *slog.Logger
	fsw      *fsnotify.Watcher
	patterns []string
	dirs     []string
	settle   time.Duration

	files chan string

	mu      sync.Mutex
	pending map[string]time.Time
	seen    map[string]bool
}

type Option func(*Watcher)

// WithSettle sets how long a file must stay untouched before it is reported.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// NewWatcher watches the base directory of every pattern. Patterns support ** via
// doublestar; directories created later under a ** base are not followed.
func NewWatcher(log *slog.Logger, patterns []string, opts ...Option) (*Watcher, error) {
	const op = "ingest.NewWatcher"

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	w := &Watcher{
		log:     log,
		fsw:     fsw,
		settle:  defaultSettle,
		files:   make(chan string, 64),
		pending: make(map[string]time.Time),
		seen:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.settle <= 0 {
		w.settle = defaultSettle
	}

	for _, pattern := range patterns {
		abs, err := filepath.Abs(pattern)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !doublestar.ValidatePathPattern(abs) {
			fsw.Close()
			return nil, fmt.Errorf("%s: invalid pattern %q", op, pattern)
		}

		base, _ := doublestar.SplitPattern(filepath.ToSlash(abs))
		base = filepath.FromSlash(base)

		if err := fsw.Add(base); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("%s: watch %s: %w", op, base, err)
		}

		w.patterns = append(w.patterns, abs)
		w.dirs = append(w.dirs, base)
	}

	// Files already present are not new arrivals.
	for _, pattern := range w.patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, m := range matches {
			w.seen[m] = true
		}
	}

	return w, nil
}

// Files yields settled paths. It is closed when Start returns.
func (w *Watcher) Files() <-chan string {
	return w.files
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	return w.dirs
}

// Start listens for file events until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	const op = "ingest.Watcher.Start"

	log := w.log.With(slog.String("op", op))

	defer w.fsw.Close()
	defer close(w.files)

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", sl.Err(err))
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				select {
				case w.files <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.matches(ev.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, ev.Name)
		delete(w.seen, ev.Name)
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !w.seen[ev.Name] {
			w.pending[ev.Name] = time.Now()
		}
	}
}

func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}

		delete(w.pending, path)

		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}

		w.seen[path] = true
		ready = append(ready, path)
	}

	return ready
}

func (w *Watcher) matches(path string) bool {
	for _, pattern := range w.patterns {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
	}

	return false
}
