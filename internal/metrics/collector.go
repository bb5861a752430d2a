// File: internal/metrics/collector.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus instruments for buffers, reactors and timeout registries.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Timer outcomes used as the "outcome" label.
const (
	OutcomeExpired   = "expired"
	OutcomeCancelled = "cancelled"
	OutcomeStopped   = "stopped"
)

// Buffer sides used as the "side" label.
const (
	SideRead  = "read"
	SideWrite = "write"
	SideFlush = "flush"
)

// Collector holds every instrument exported by the core. A nil *Collector is
// valid and records nothing.
type Collector struct {
	// buffer
	bufferBytes    *prometheus.CounterVec
	bufferWaits    *prometheus.CounterVec
	bufferTimeouts prometheus.Counter

	// reactor
	timersScheduled prometheus.Counter
	timersFired     *prometheus.CounterVec
	timersPending   prometheus.Gauge
	handlerPanics   prometheus.Counter
	driveCalls      *prometheus.CounterVec

	// registry
	registryExpired prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers all instruments under namespace on reg. A nil reg
// uses a fresh private registry so repeated construction never collides.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.bufferBytes = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "bytes_total",
			Help:      "Bytes moved through bounded buffers",
		},
		[]string{"side"},
	)
	c.bufferWaits = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "waits_total",
			Help:      "Times a buffer operation blocked on its condition",
		},
		[]string{"side"},
	)
	c.bufferTimeouts = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "read_timeouts_total",
		Help:      "Reads that returned the timeout outcome",
	})

	c.timersScheduled = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reactor",
		Name:      "timers_scheduled_total",
		Help:      "Timers registered with a reactor",
	})
	c.timersFired = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "timers_fired_total",
			Help:      "Timer handler invocations by outcome",
		},
		[]string{"outcome"},
	)
	c.timersPending = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reactor",
		Name:      "timers_pending",
		Help:      "Timers waiting for expiry",
	})
	c.handlerPanics = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reactor",
		Name:      "handler_panics_total",
		Help:      "Timer handlers that panicked",
	})
	c.driveCalls = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "drive_calls_total",
			Help:      "Drive calls by whether they executed work",
		},
		[]string{"did_work"},
	)

	c.registryExpired = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "expired_total",
		Help:      "Values expired by timeout sweeps",
	})

	c.logger.Debug("metrics collector registered", zap.String("namespace", namespace))
	return c
}

// BufferBytes records n bytes moved on side.
func (c *Collector) BufferBytes(side string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.bufferBytes.WithLabelValues(side).Add(float64(n))
}

// BufferWait records one blocking wait on side.
func (c *Collector) BufferWait(side string) {
	if c == nil {
		return
	}
	c.bufferWaits.WithLabelValues(side).Inc()
}

// BufferTimeout records one timed-out read.
func (c *Collector) BufferTimeout() {
	if c == nil {
		return
	}
	c.bufferTimeouts.Inc()
}

// TimerScheduled records a new pending timer.
func (c *Collector) TimerScheduled() {
	if c == nil {
		return
	}
	c.timersScheduled.Inc()
	c.timersPending.Inc()
}

// TimerFired records a completed handler invocation.
func (c *Collector) TimerFired(outcome string) {
	if c == nil {
		return
	}
	c.timersFired.WithLabelValues(outcome).Inc()
	c.timersPending.Dec()
}

// HandlerPanic records a recovered handler panic.
func (c *Collector) HandlerPanic() {
	if c == nil {
		return
	}
	c.handlerPanics.Inc()
}

// DriveCall records a drive call result.
func (c *Collector) DriveCall(didWork bool) {
	if c == nil {
		return
	}
	label := "false"
	if didWork {
		label = "true"
	}
	c.driveCalls.WithLabelValues(label).Inc()
}

// RegistryExpired records n values expired by a sweep.
func (c *Collector) RegistryExpired(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.registryExpired.Add(float64(n))
}
