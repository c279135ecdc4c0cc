package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DEFAULT_DEBOUNCE collapses the burst of events an editor save produces.
const DEFAULT_DEBOUNCE = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes and hands each fresh
// snapshot to the registered handlers. The parent directory is watched so
// files replaced by rename are picked up.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[int]func(T)
	nextID   int

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets the debounce duration.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for load errors, which are logged otherwise.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewWatcher creates a watcher for path. loader runs on every change.
func NewWatcher[T any](path string, loader func(path string) (T, error), logger *slog.Logger, opts ...WatcherOption[T]) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: DEFAULT_DEBOUNCE,
		loader:   loader,
		logger:   logger,
		handlers: make(map[int]func(T)),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// OnReload registers a handler and returns its unsubscribe function.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		delete(w.handlers, id)
	}
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher[T]) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()

		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.watcher = watcher
	w.done = make(chan struct{})

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)

	go w.watch(ctx)

	return nil
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher[T]) Stop() error {
	if w.cancel == nil {
		return nil
	}

	w.cancel()
	<-w.done

	return w.watcher.Close()
}

func (w *Watcher[T]) watch(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Config watcher stopped")

			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug("Config file change detected", "op", event.Op.String())
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.loadAndNotify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) loadAndNotify() {
	config, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to load config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}

		return
	}

	w.logger.Info("Config reloaded", "path", w.path)

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(config)
	}
}
