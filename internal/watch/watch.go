// Package watch re-runs a document whenever it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is how long events are collected before a run.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc performs one run. A returned error is logged and watching goes on.
type RunFunc func(ctx context.Context) error

// Watcher runs a RunFunc once and then again after every change to a file.
// Runs never overlap. Changes the run itself makes to the file do not
// trigger another run.
type Watcher struct {
	path     string
	run      RunFunc
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher for the file at path.
func New(path string, run RunFunc, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		run:      run,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done or the watcher fails. It returns nil on
// cancellation.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	// Editors often replace files instead of writing them, so watch the folder.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	triggers := make(chan struct{}, 1)
	triggers <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.collect(gctx, fsw, triggers) })
	g.Go(func() error { return w.runLoop(gctx, triggers) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// collect turns debounced events on the watched file into triggers.
func (w *Watcher) collect(ctx context.Context, fsw *fsnotify.Watcher, triggers chan<- struct{}) error {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case triggers <- struct{}{}:
			default:
			}
		}
	}
}

// runLoop runs once per trigger, skipping triggers that found the file as
// the previous run left it.
func (w *Watcher) runLoop(ctx context.Context, triggers <-chan struct{}) error {
	var last []byte
	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-triggers:
		}

		content, err := os.ReadFile(w.path)
		if err != nil {
			w.logger.Warn("read watched file", slog.String("path", w.path), slog.String("error", err.Error()))
			continue
		}
		if !first && string(content) == string(last) {
			continue
		}
		first = false

		w.logger.Debug("running", slog.String("path", w.path))
		if err := w.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("run failed", slog.String("error", err.Error()))
		}

		if last, err = os.ReadFile(w.path); err != nil {
			last = nil
		}
	}
}
