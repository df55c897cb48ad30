package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its catalog file changes. A file that fails
// to load leaves the previous catalog in place.
type Watcher struct {
	path     string
	store    *Store
	debounce time.Duration
	log      *logging.Logger

	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the catalog at path
func NewWatcher(path string, store *Store, log *logging.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		debounce: DefaultDebounce,
		log:      logging.OrNop(log).Named("catalog.watcher"),
	}
}

// Run watches until ctx ends. The parent directory is watched so that
// editors that replace the file by rename are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.log.Info("Watching catalog", zap.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	err := w.store.Load(w.path)
	if err != nil {
		w.log.Warn("Catalog reload failed, keeping previous version", zap.String("path", w.path), zap.Error(err))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
