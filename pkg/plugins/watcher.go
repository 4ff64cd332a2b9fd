package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lsx/pkg/observability"
)

// Watcher evicts registry entries whose library file is deleted or
// renamed away while the process runs.
type Watcher struct {
	registry *Registry
	fsw      *fsnotify.Watcher
	log      *logrus.Logger

	// OnEvict, when set, is called after each eviction.
	OnEvict func(name, path string)

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher watches dir for removed plugin libraries.
func NewWatcher(registry *Registry, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		registry: registry,
		fsw:      fsw,
		log:      registry.log,
		done:     make(chan struct{}),
	}, nil
}

// Run processes file events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "plugin watcher")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if name, ok := w.registry.evictPath(path, "library file removed"); ok && w.OnEvict != nil {
				w.OnEvict(name, path)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Plugin directory watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
