// File: facade/runtime.go
// Unified facade layer for hioload-core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime aggregates the core components behind a single type: a reactor
// driven on its own goroutine, the scheduler view of it, live configuration
// with optional file hot-reload, metrics, debug probes and the scratch byte
// pool. Buffers, sweepers and pumps created through it pick up the current
// configuration and the shared logger and metrics.

package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/momentics/hioload-core/adapters"
	"github.com/momentics/hioload-core/affinity"
	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/control"
	"github.com/momentics/hioload-core/core/buffer"
	"github.com/momentics/hioload-core/core/stream"
	"github.com/momentics/hioload-core/core/timeout"
	"github.com/momentics/hioload-core/internal/logging"
	"github.com/momentics/hioload-core/internal/metrics"
	"github.com/momentics/hioload-core/pool"
	"github.com/momentics/hioload-core/reactor"
)

// Runtime is the main facade type.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type Runtime struct {
	id       string
	logger   *zap.Logger
	level    *zap.AtomicLevel
	registry *prometheus.Registry
	metrics  *metrics.Collector

	reactor   *reactor.Reactor
	scheduler *adapters.SchedulerAdapter
	store     *control.ConfigStore
	control   *adapters.ControlAdapter
	watcher   *control.FileWatcher
	pool      *pool.BytePool

	mu      sync.Mutex // protects the fields below
	started bool
	cancel  context.CancelFunc
	done    chan error
}

var (
	_ api.GracefulShutdown = (*Runtime)(nil)
	_ api.Control          = (*Runtime)(nil)
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	configPath string
	logger     *zap.Logger
	registry   *prometheus.Registry
}

// WithConfigPath watches path and applies changes to the live config. The
// initial config passed to New is used as is.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger replaces the logger built from the Log config section.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New constructs a Runtime from cfg, or DefaultConfig when cfg is nil.
// Nothing runs until Start.
func New(cfg *control.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{id: uuid.NewString()}

	if o.logger != nil {
		rt.logger = o.logger
	} else {
		logger, level := logging.NewWithLevel(logging.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			OutputPaths: cfg.Log.OutputPaths,
		})
		rt.logger, rt.level = logger, &level
	}
	rt.logger = rt.logger.With(zap.String("runtime_id", rt.id))

	rt.registry = o.registry
	if rt.registry == nil {
		rt.registry = prometheus.NewRegistry()
	}
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.NewCollector(cfg.Metrics.Namespace, rt.registry, rt.logger)
	}

	rt.reactor = reactor.New(
		reactor.WithLogger(rt.logger),
		reactor.WithMetrics(rt.metrics),
		reactor.WithPanicRecovery(cfg.Reactor.RecoverPanics),
		reactor.WithMaxIdleWait(cfg.Reactor.MaxIdleWait),
	)
	rt.scheduler = adapters.NewSchedulerAdapter(rt.reactor)
	rt.store = control.NewConfigStore(cfg, rt.logger)
	rt.control = adapters.NewControlAdapter(rt.store, rt.registry)
	rt.pool = pool.NewBytePool()

	if o.configPath != "" {
		rt.watcher = control.NewFileWatcher(o.configPath, rt.scheduler, rt.store,
			control.WithWatchInterval(cfg.Debug.WatchInterval),
			control.WithWatcherLogger(rt.logger),
		)
	}

	rt.registerProbes()
	rt.store.OnReload(rt.applyReload)
	return rt, nil
}

func (rt *Runtime) registerProbes() {
	rt.control.RegisterDebugProbe("reactor.pending", func() any { return rt.reactor.Pending() })
	rt.control.RegisterDebugProbe("reactor.stopped", func() any { return rt.reactor.Stopped() })
	rt.control.RegisterDebugProbe("pool.stats", func() any { return rt.pool.Stats() })
	rt.control.RegisterDebugProbe("config.version", func() any { return rt.store.Version() })
}

// applyReload carries reloadable settings into running components. Only the
// log level changes in place; everything else is read at construction time
// of the next buffer, sweeper or pump.
func (rt *Runtime) applyReload() {
	cfg := rt.store.Snapshot()
	if rt.level != nil {
		rt.level.SetLevel(logging.ParseLevel(cfg.Log.Level))
	}
	rt.logger.Debug("runtime picked up config", zap.Uint64("version", rt.store.Version()))
}

// Start drives the reactor on a new goroutine, pinned to reactor.cpu when
// set, and starts the config watcher.
// Subsequent calls to Start have no effect.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.started {
		return nil
	}
	if rt.reactor.Stopped() {
		rt.reactor.Restart()
	}
	runCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	rt.done = make(chan error, 1)
	cpu := rt.store.Snapshot().Reactor.CPU
	go func(done chan<- error) {
		if cpu >= 0 {
			release, err := affinity.Pin(cpu)
			if err != nil {
				rt.logger.Warn("reactor cpu pinning failed", zap.Int("cpu", cpu), zap.Error(err))
			} else {
				defer release()
			}
		}
		done <- rt.reactor.Run(runCtx)
	}(rt.done)

	if rt.watcher != nil {
		rt.watcher.Start()
	}
	rt.started = true
	rt.logger.Info("runtime started", zap.String("reactor_id", rt.reactor.ID()))
	return nil
}

// Stop halts the watcher and the reactor loop. Pending timers survive and
// fire after the next Start. Calling Stop on a stopped runtime is a no-op.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopLocked()
}

func (rt *Runtime) stopLocked() error {
	if !rt.started {
		return nil
	}
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	rt.cancel()
	rt.reactor.Stop()
	err := <-rt.done
	rt.started = false
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	rt.logger.Info("runtime stopped")
	return err
}

// Shutdown implements api.GracefulShutdown: it stops the runtime and
// discards every pending timer with api.ErrReactorStopped.
func (rt *Runtime) Shutdown() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	err := rt.stopLocked()
	err = errors.Join(err, rt.reactor.Shutdown())
	_ = rt.logger.Sync()
	return err
}

// ID returns the runtime instance ID.
func (rt *Runtime) ID() string { return rt.id }

// Config returns a snapshot of the live configuration.
func (rt *Runtime) Config() *control.Config { return rt.store.Snapshot() }

// ConfigStore exposes the live configuration for programmatic updates.
func (rt *Runtime) ConfigStore() *control.ConfigStore { return rt.store }

func (rt *Runtime) Logger() *zap.Logger { return rt.logger }

func (rt *Runtime) Reactor() *reactor.Reactor { return rt.reactor }

// Scheduler returns the reactor as an api.Scheduler.
func (rt *Runtime) Scheduler() api.Scheduler { return rt.scheduler }

// Metrics returns the collector, or nil when metrics are disabled.
func (rt *Runtime) Metrics() *metrics.Collector { return rt.metrics }

func (rt *Runtime) Registry() *prometheus.Registry { return rt.registry }

func (rt *Runtime) Pool() *pool.BytePool { return rt.pool }

// Control returns the api.Control view.
func (rt *Runtime) Control() api.Control { return rt.control }

func (rt *Runtime) Stats() map[string]any { return rt.control.Stats() }

func (rt *Runtime) OnReload(fn func()) { rt.control.OnReload(fn) }

func (rt *Runtime) RegisterDebugProbe(name string, fn func() any) {
	rt.control.RegisterDebugProbe(name, fn)
}

// NewBuffer creates a BoundedBuffer with the configured capacity. opts are
// applied after the runtime's logger and metrics.
func (rt *Runtime) NewBuffer(opts ...buffer.Option) *buffer.BoundedBuffer {
	cfg := rt.store.Snapshot()
	all := append([]buffer.Option{
		buffer.WithLogger(rt.logger),
		buffer.WithMetrics(rt.metrics),
	}, opts...)
	return buffer.New(cfg.Buffer.Capacity, all...)
}

// NewSweeper creates a timeout sweeper on the runtime's reactor with the
// configured granularity.
func NewSweeper[T comparable](rt *Runtime, onExpire func(T), opts ...timeout.SweeperOption) *timeout.Sweeper[T] {
	cfg := rt.store.Snapshot()
	all := append([]timeout.SweeperOption{
		timeout.WithGranularity(cfg.Registry.Granularity),
		timeout.WithSweeperLogger(rt.logger),
		timeout.WithSweeperMetrics(rt.metrics),
	}, opts...)
	return timeout.NewSweeper(rt.scheduler, onExpire, all...)
}

// Pump copies src to dst with the configured chunk size and poll interval,
// throttled when stream.rate_limit is set. dst is closed if ctx ends first.
func (rt *Runtime) Pump(ctx context.Context, src api.Source, dst api.Sink) (int64, error) {
	cfg := rt.store.Snapshot()
	if cfg.Stream.RateLimit > 0 {
		throttled := stream.NewThrottledSinkContext(ctx, dst, cfg.Stream.RateLimit, cfg.Stream.Burst)
		defer throttled.Stop()
		dst = throttled
	}
	start := time.Now()
	n, err := stream.Pump(ctx, src, dst,
		stream.WithChunkSize(cfg.Stream.ChunkSize),
		stream.WithPollInterval(cfg.Stream.PollInterval),
		stream.WithPool(rt.pool),
	)
	rt.logger.Debug("pump finished",
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return n, err
}
