// Package watch rebuilds a relationship index whenever Python sources under
// a project root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
	"github.com/Sumatoshi-tech/relimport/pkg/walker"
)

// DefaultDebounce is the quiet period before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrNotReady is reported while no index has been built successfully.
	ErrNotReady = errors.New("index not built yet")
	errClosed   = errors.New("watcher channel closed")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithFilter sets the filter that decides which directories are watched and
// which file events trigger a rebuild. It should match the builder's filter.
func WithFilter(f walker.Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// OnRebuild is called with every successfully built index.
func OnRebuild(fn func(context.Context, *relindex.Index)) Option {
	return func(w *Watcher) { w.onRebuild = fn }
}

// OnError is called when a build fails. The previous index stays current.
func OnError(fn func(context.Context, error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// Watcher owns an fsnotify watcher over a project tree. Each rebuild
// produces a new Index; queries in flight keep using the one they hold.
type Watcher struct {
	root      string
	builder   *relindex.Builder
	filter    walker.Filter
	debounce  time.Duration
	logger    *slog.Logger
	onRebuild func(context.Context, *relindex.Index)
	onError   func(context.Context, error)

	fsw     *fsnotify.Watcher
	current atomic.Pointer[relindex.Index]

	mu      sync.Mutex
	timer   *time.Timer
	buildMu sync.Mutex
}

// New creates a Watcher for root that rebuilds with builder.
func New(root string, builder *relindex.Builder, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		root:      abs,
		builder:   builder,
		filter:    walker.PythonSources(),
		debounce:  DefaultDebounce,
		logger:    slog.Default(),
		onRebuild: func(context.Context, *relindex.Index) {},
		onError:   func(context.Context, error) {},
		fsw:       fsw,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Current returns the latest successfully built index, or nil.
func (w *Watcher) Current() *relindex.Index {
	return w.current.Load()
}

// Ready reports ErrNotReady until the first successful build.
func (w *Watcher) Ready(context.Context) error {
	if w.Current() == nil {
		return ErrNotReady
	}

	return nil
}

// Run builds once, then rebuilds after every burst of relevant changes until
// ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	w.rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return errClosed
			}

			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errClosed
			}

			w.logger.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

// Close stops pending rebuilds and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("close file watcher: %w", err)
	}

	return nil
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.filter.Descends(name) {
				return
			}

			if err := w.addTree(event.Name); err != nil {
				w.logger.WarnContext(ctx, "watch new directory", "path", event.Name, "error", err)
			}

			w.schedule(ctx)

			return
		}
	}

	// Removed or renamed directories can no longer be stat'ed; rebuild anyway.
	if !w.filter.Admits(name) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.DebugContext(ctx, "source changed", "path", event.Name, "op", event.Op.String())
	w.schedule(ctx)
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}

		w.rebuild(ctx)
	})
}

func (w *Watcher) rebuild(ctx context.Context) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	idx, err := w.builder.Build(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "rebuild failed", "error", err)
		w.onError(ctx, err)

		return
	}

	w.current.Store(idx)
	w.onRebuild(ctx, idx)
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		if path != w.root && !w.filter.Descends(entry.Name()) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("watch tree: %w", err)
	}

	return nil
}
