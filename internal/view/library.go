package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"cherrycake/internal/dataset"
	"cherrycake/internal/logging"
	"cherrycake/internal/scene"
)

// ErrUnknownView is returned for names missing from the catalog.
var ErrUnknownView = errors.New("unknown visualization")

// Library caches one loaded view per visualization for snapshot rendering.
// Entries stay cached, failed ones included, until Invalidate drops them.
type Library struct {
	loader *dataset.Loader
	defs   []Definition
	logger *slog.Logger

	mu    sync.Mutex
	views map[string]*View
}

// NewLibrary returns an empty cache over defs.
func NewLibrary(loader *dataset.Loader, defs []Definition, logger *slog.Logger) *Library {
	return &Library{
		loader: loader,
		defs:   defs,
		logger: logging.NewComponentLogger(logger, "library"),
		views:  make(map[string]*View),
	}
}

// Definitions returns the catalog served by the library.
func (l *Library) Definitions() []Definition { return l.defs }

// Loader returns the dataset loader.
func (l *Library) Loader() *dataset.Loader { return l.loader }

// Lookup finds a definition by name.
func (l *Library) Lookup(name string) (Definition, bool) {
	return Lookup(l.defs, name)
}

// View returns the cached view for name, mounting it on first use. Loading
// is detached from ctx so an aborted request does not poison the cache.
func (l *Library) View(name string) (*View, error) {
	def, ok := l.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.views[def.Name]; ok {
		return v, nil
	}
	v := Mount(context.Background(), l.loader, def, scene.Options{}, l.logger)
	l.views[def.Name] = v
	return v, nil
}

// States reports the load state of every cached view without mounting new
// ones.
func (l *Library) States() map[string]dataset.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]dataset.Status, len(l.views))
	for name, v := range l.views {
		out[name] = v.Status()
	}
	return out
}

// Snapshot renders one frame of name at progress with opts.
func (l *Library) Snapshot(ctx context.Context, w io.Writer, name string, progress float64, opts scene.Options) (scene.Status, error) {
	v, err := l.View(name)
	if err != nil {
		return scene.Status{}, err
	}
	renderer, err := v.Renderer(ctx)
	if err != nil {
		return scene.Status{}, err
	}
	frame := scene.FrameAt(progress, v.Definition().LoopDuration, opts)
	if err := renderer.Render(w, frame); err != nil {
		return scene.Status{}, err
	}
	return renderer.Status(frame), nil
}

// Invalidate drops every cached view that loads ref. An empty ref drops all.
func (l *Library) Invalidate(ref string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var dropped []string
	for name, v := range l.views {
		if ref == "" || v.Definition().Uses(ref) {
			delete(l.views, name)
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// Watch invalidates cached views when documents in dir change. It blocks
// until ctx ends. Remote dataset sources have nothing to watch.
func (l *Library) Watch(ctx context.Context) error {
	if l.loader == nil || l.loader.Remote() {
		<-ctx.Done()
		return nil
	}
	dir := l.loader.Base()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dataset watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	l.logger.Debug("watching dataset directory", logging.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			ref := filepath.Base(event.Name)
			if dataset.Target(ref) == nil {
				continue
			}
			if dropped := l.Invalidate(ref); len(dropped) > 0 {
				l.logger.Info("dataset changed",
					logging.String("document", ref),
					logging.Any("views", dropped),
					logging.String(logging.FieldEventType, "dataset_changed"),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(l.logger, "dataset watcher error", "dataset_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "changed datasets may be served stale"),
			)
		}
	}
}
