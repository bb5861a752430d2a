// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Flat read-only view over a prometheus registry for Stats() consumers.

package control

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry snapshots counters and gauges from a prometheus Gatherer.
type MetricsRegistry struct {
	mu       sync.RWMutex
	gatherer prometheus.Gatherer
	updated  time.Time
}

// NewMetricsRegistry wraps g.
func NewMetricsRegistry(g prometheus.Gatherer) *MetricsRegistry {
	return &MetricsRegistry{gatherer: g}
}

// GetSnapshot returns every counter and gauge keyed by name plus its labels,
// e.g. `hioload_buffer_bytes_total{side="read"}`.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	out := make(map[string]any)
	if mr.gatherer == nil {
		return out
	}
	families, err := mr.gatherer.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	mr.updated = time.Now()
	return out
}

// Updated returns when the last snapshot was taken.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+`="`+l.GetValue()+`"`)
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
