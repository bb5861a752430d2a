package control_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-core/control"
)

func TestDebugProbesDumpState(t *testing.T) {
	dp := control.NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("broken", func() any { panic("nope") })
	control.RegisterPlatformProbes(dp)

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state["broken"], "probe panic")
	assert.Positive(t, state["platform.cpus"])
	assert.Contains(t, dp.Names(), "answer")
}

func TestMetricsRegistrySnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{Name: "ops_total"}, []string{"side"})
	g := promauto.With(reg).NewGauge(prometheus.GaugeOpts{Name: "pending"})
	c.WithLabelValues("read").Add(3)
	g.Set(2)

	mr := control.NewMetricsRegistry(reg)
	snap := mr.GetSnapshot()
	assert.Equal(t, 3.0, snap[`ops_total{side="read"}`])
	assert.Equal(t, 2.0, snap["pending"])
	assert.False(t, mr.Updated().IsZero())

	assert.Empty(t, control.NewMetricsRegistry(nil).GetSnapshot())
}
