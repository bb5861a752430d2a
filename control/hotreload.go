// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Config file watcher. Polls the file's size and mtime from scheduler timers
// and pushes reloaded configs into a ConfigStore.

package control

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-core/api"
)

// FileWatcher reloads a config file when it changes.
type FileWatcher struct {
	path     string
	loader   *Loader
	store    *ConfigStore
	sched    api.Scheduler
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	timer   api.TimerHandle
	running bool
	modTime time.Time
	size    int64
	reloads int
}

// WatcherOption configures a FileWatcher.
type WatcherOption func(*FileWatcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWatcherLoader replaces the loader used on change, e.g. to change the
// env prefix. Its config path is overridden by the watched path.
func WithWatcherLoader(l *Loader) WatcherOption {
	return func(w *FileWatcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// NewFileWatcher watches path on sched and applies changes to store.
func NewFileWatcher(path string, sched api.Scheduler, store *ConfigStore, opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		path:     path,
		loader:   NewLoader(),
		store:    store,
		sched:    sched,
		interval: 2 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.loader.WithConfigPath(path)
	w.logger = w.logger.With(zap.String("component", "config_watcher"), zap.String("path", path))
	return w
}

// Start records the file's current state and arms the poll timer.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.modTime, w.size = statFile(w.path)
	w.armLocked()
	w.logger.Debug("config watcher started", zap.Duration("interval", w.interval))
}

// Stop cancels the poll timer.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	w.running = false
	t := w.timer
	w.timer = nil
	w.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

// Reloads returns how many changes were applied.
func (w *FileWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Check compares the file against the last seen state and reloads it when
// it changed. It reports whether a new config was applied. Errors are
// returned, not logged; the poll timer logs them.
func (w *FileWatcher) Check() (bool, error) {
	mod, size := statFile(w.path)

	w.mu.Lock()
	changed := !mod.Equal(w.modTime) || size != w.size
	w.modTime, w.size = mod, size
	w.mu.Unlock()
	if !changed || mod.IsZero() {
		return false, nil
	}

	cfg, err := w.loader.Load()
	if err != nil {
		return false, err
	}
	if err := w.store.Update(cfg); err != nil {
		return false, err
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.logger.Info("config reloaded")
	return true, nil
}

func (w *FileWatcher) armLocked() {
	w.timer = w.sched.ScheduleAfter(w.interval, func(err error) {
		if err != nil {
			return
		}
		if _, err := w.Check(); err != nil {
			w.logger.Warn("config reload failed, keeping current config", zap.Error(err))
		}
		w.mu.Lock()
		if w.running {
			w.armLocked()
		}
		w.mu.Unlock()
	})
}

func statFile(path string) (time.Time, int64) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, 0
	}
	return info.ModTime(), info.Size()
}
