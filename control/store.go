// control/store.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with snapshot reads and reload listeners.

package control

import (
	"sync"

	"go.uber.org/zap"
)

// ConfigStore holds the live Config. Readers get copies; Update validates,
// swaps and then notifies listeners on the caller's goroutine.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	version   uint64
	listeners []func()
	logger    *zap.Logger
}

// NewConfigStore starts from cfg, or DefaultConfig when cfg is nil.
func NewConfigStore(cfg *Config, logger *zap.Logger) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigStore{
		config: cfg.Clone(),
		logger: logger.With(zap.String("component", "config_store")),
	}
}

// Snapshot returns a copy of the current config.
func (cs *ConfigStore) Snapshot() *Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config.Clone()
}

// Version counts successful updates.
func (cs *ConfigStore) Version() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.version
}

// Update replaces the config if it validates and dispatches reload.
func (cs *ConfigStore) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		cs.logger.Warn("config update rejected", zap.Error(err))
		return err
	}
	cs.mu.Lock()
	cs.config = cfg.Clone()
	cs.version++
	version := cs.version
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	cs.logger.Info("config updated", zap.Uint64("version", version))
	dispatchReload(listeners)
	return nil
}

// OnReload registers a listener called after every successful Update.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func dispatchReload(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
