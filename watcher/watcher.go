package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher logs every change below a directory tree.
type Watcher struct {
	handler func(Event)
	logger  *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// WithHandler registers a function called for every event after it is logged.
// The handler runs on the watch goroutine and must not block.
func WithHandler(handler func(Event)) Option {
	return func(w *Watcher) error {
		w.handler = handler
		return nil
	}
}

// New creates a new watcher.
func New(opts ...Option) (*Watcher, error) {
	w := &Watcher{
		handler: func(Event) {},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.handler == nil {
		w.handler = func(Event) {}
	}
	w.logger = w.logger.With("component", "watcher")
	return w, nil
}

// Watch subscribes to root and every directory below it, including
// directories created later, and logs each change until ctx is canceled.
// Cancellation is a normal shutdown and returns nil.
func (w *Watcher) Watch(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, root, false); err != nil {
		return err
	}
	w.logger.Info("watching", "root", root, "directories", len(fsw.WatchList()))

	for {
		select {
		case <-ctx.Done():
			for _, path := range fsw.WatchList() {
				_ = fsw.Remove(path)
			}
			w.logger.Info("stopped watching", "root", root)
			return nil

		case raw, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, raw)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, raw fsnotify.Event) {
	for _, ev := range translate(raw, time.Now()) {
		w.emit(ev)
	}

	switch {
	case raw.Has(fsnotify.Create):
		info, err := os.Lstat(raw.Name)
		if err == nil && info.IsDir() {
			// Entries created before the subscription landed are reported as created.
			if err := w.addTree(fsw, raw.Name, true); err != nil {
				w.logger.Warn("failed to watch new directory", "path", raw.Name, "err", err)
			}
		}
	case raw.Has(fsnotify.Rename):
		// A moved directory keeps its watch under the old name.
		_ = fsw.Remove(raw.Name)
	}
}

func (w *Watcher) emit(ev Event) {
	w.logger.Info("filesystem event", "type", string(ev.Type), "path", ev.Path)
	w.handler(ev)
}

// addTree subscribes dir and its subdirectories. When announce is set every
// entry below dir is emitted as created.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish between the event and the walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if announce && path != dir {
			w.emit(Event{Type: Created, Path: path, Time: time.Now()})
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}
