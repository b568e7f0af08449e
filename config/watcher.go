package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/flushops/observe"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads policies into a Runtime when its configuration file
// changes. A reload that fails to load or validate is logged and the
// previous policies stay active.
type Watcher struct {
	path     string
	rt       *Runtime
	logger   observe.Logger
	debounce time.Duration
	onReload func(error)
	fs       *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload. Default: DefaultDebounce
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadHook calls fn after every reload attempt with its result.
func WithReloadHook(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher watches path on behalf of rt. The parent directory is watched
// so that editors that replace the file by rename are seen.
func NewWatcher(path string, rt *Runtime, opts ...WatcherOption) (*Watcher, error) {
	if rt == nil {
		return nil, ErrNilRuntime
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		rt:       rt,
		logger:   rt.Logger.With(observe.Field{Key: "component", Value: "watcher"}, observe.Field{Key: "path", Value: abs}),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	w.fs = fsw
	return w, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Info(ctx, "watching configuration")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "stopping configuration watcher")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug(ctx, "configuration file changed", observe.Field{Key: "op", Value: event.Op.String()})
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, "file watcher error", observe.Field{Key: "error", Value: err})

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := Load(w.path)
	if err == nil {
		err = w.rt.Reload(ctx, cfg)
	}
	if err != nil {
		w.logger.Error(ctx, "configuration reload failed, keeping previous policies", observe.Field{Key: "error", Value: err})
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
