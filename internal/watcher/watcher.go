// Package watcher keeps the registry in step with manual changes under the
// library. A chapter archive created, removed or renamed in a title
// directory triggers a debounced registry sync for that title. Nothing is
// fetched from the source.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Syncer rebuilds a title's registry rows from disk.
type Syncer interface {
	SyncRegistry(ctx context.Context, titleID int64) (*library.SyncResult, error)
}

// Config configures the watcher.
type Config struct {
	Debounce time.Duration // quiet period before a sync, default 2s
	Rescan   time.Duration // how often the title list is reloaded, default 1m
}

// Watcher watches title directories.
type Watcher struct {
	store  *library.Store
	syncer Syncer
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	dirs    map[string]int64 // title dir -> title id
	roots   map[string]bool
	pending map[int64]time.Time // title id -> sync deadline
}

// New creates a watcher.
func New(store *library.Store, syncer Syncer, cfg Config, logger *slog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.Rescan <= 0 {
		cfg.Rescan = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:   store,
		syncer:  syncer,
		cfg:     cfg,
		logger:  logger.With("component", "watcher"),
		dirs:    make(map[string]int64),
		roots:   make(map[string]bool),
		pending: make(map[int64]time.Time),
	}
}

// Name returns the handler name.
func (w *Watcher) Name() string {
	return "watcher"
}

// Start watches until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.reload(fw); err != nil {
		return err
	}

	tick := w.cfg.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	flush := time.NewTicker(tick)
	defer flush.Stop()
	rescan := time.NewTicker(w.cfg.Rescan)
	defer rescan.Stop()

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case now := <-flush.C:
			w.flush(ctx, now)
		case <-rescan.C:
			if err := w.reload(fw); err != nil {
				w.logger.Error("reload titles failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reload watches every library root and existing title directory.
func (w *Watcher) reload(fw *fsnotify.Watcher) error {
	titles, err := w.store.ListTitles()
	if err != nil {
		return fmt.Errorf("list titles: %w", err)
	}

	dirs := make(map[string]int64, len(titles))
	for _, t := range titles {
		dirs[filepath.Clean(t.Dir())] = t.ID
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		if _, ok := dirs[dir]; !ok {
			_ = fw.Remove(dir)
		}
	}
	w.dirs = dirs

	for _, t := range titles {
		root := filepath.Clean(t.LibraryRoot)
		if !w.roots[root] {
			if err := fw.Add(root); err != nil {
				w.logger.Debug("library root not watchable", "root", root, "error", err)
			} else {
				w.roots[root] = true
			}
		}
	}
	for dir := range dirs {
		w.watchDir(fw, dir)
	}
	return nil
}

func (w *Watcher) watchDir(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Debug("title dir not watchable", "dir", dir, "error", err)
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	// A title directory appeared under a root: start watching it and sync
	// whatever was moved in with it.
	if id, ok := w.dirs[path]; ok {
		if ev.Has(fsnotify.Create) {
			w.watchDir(fw, path)
			w.pending[id] = time.Now().Add(w.cfg.Debounce)
		}
		return
	}

	id, ok := w.dirs[filepath.Dir(path)]
	if !ok || !naming.IsChapterFile(filepath.Base(path)) {
		return
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
		return
	}
	w.pending[id] = time.Now().Add(w.cfg.Debounce)
}

// flush syncs every title whose quiet period has passed.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var due []int64
	for id, deadline := range w.pending {
		if !now.Before(deadline) {
			due = append(due, id)
			delete(w.pending, id)
		}
	}
	w.mu.Unlock()

	for _, id := range due {
		res, err := w.syncer.SyncRegistry(ctx, id)
		if err != nil {
			if errors.Is(err, library.ErrNotFound) {
				continue
			}
			w.logger.Error("registry sync failed", "title_id", id, "error", err)
			continue
		}
		if res != nil && res.Changed() {
			w.logger.Info("registry synced from disk", "title_id", id,
				"inserted", len(res.Inserted), "deleted", len(res.Deleted))
		}
	}
}
