// Package metrics wraps the Prometheus instruments shared by the buffer,
// reactor and timeout packages.
//
// Create one Collector per process (or per test) and pass it through the
// components' WithMetrics options:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector("hioload", reg, logger)
//	r := reactor.New(reactor.WithMetrics(c))
package metrics
