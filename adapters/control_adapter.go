// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control over the control package: live
// config, a prometheus-backed stats view and debug probes.

package adapters

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/control"
)

// ControlAdapter merges metrics and probe output into a single Stats map.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter wires store and gatherer together and registers the
// platform probes unless the config disables them. A nil store starts from
// defaults.
func NewControlAdapter(store *control.ConfigStore, gatherer prometheus.Gatherer) *ControlAdapter {
	if store == nil {
		store = control.NewConfigStore(nil, nil)
	}
	adapter := &ControlAdapter{
		config:  store,
		metrics: control.NewMetricsRegistry(gatherer),
		debug:   control.NewDebugProbes(),
	}
	if store.Snapshot().Debug.PlatformProbes {
		control.RegisterPlatformProbes(adapter.debug)
	}
	return adapter
}

// Config returns a snapshot of the live configuration.
func (c *ControlAdapter) Config() *control.Config {
	return c.config.Snapshot()
}

// Store returns the underlying config store.
func (c *ControlAdapter) Store() *control.ConfigStore {
	return c.config
}

// Stats returns metric values plus probe output under the "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	combined := c.metrics.GetSnapshot()
	if combined == nil {
		combined = make(map[string]any)
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// Probes returns probe output alone.
func (c *ControlAdapter) Probes() map[string]any {
	return c.debug.DumpState()
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
