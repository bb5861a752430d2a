// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration for buffers, reactors, timeout sweeps and streams.
// Precedence: defaults -> YAML file -> HIOLOAD_* environment variables.

package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-core/api"
)

// Config is the complete runtime configuration.
type Config struct {
	Buffer   BufferConfig   `yaml:"buffer" env:"BUFFER"`
	Reactor  ReactorConfig  `yaml:"reactor" env:"REACTOR"`
	Registry RegistryConfig `yaml:"registry" env:"REGISTRY"`
	Stream   StreamConfig   `yaml:"stream" env:"STREAM"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
	Metrics  MetricsConfig  `yaml:"metrics" env:"METRICS"`
	Debug    DebugConfig    `yaml:"debug" env:"DEBUG"`
}

// BufferConfig sizes bounded buffers created by the runtime.
type BufferConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

// ReactorConfig tunes the timer reactor.
type ReactorConfig struct {
	// MaxIdleWait caps how long a blocked drive call sleeps before
	// re-reading the clock. Zero means no cap.
	MaxIdleWait time.Duration `yaml:"max_idle_wait" env:"MAX_IDLE_WAIT"`
	// RecoverPanics logs and swallows handler panics instead of re-raising.
	RecoverPanics bool `yaml:"recover_panics" env:"RECOVER_PANICS"`
	// CPU pins the runtime's reactor goroutine to one CPU. -1 leaves it
	// unpinned.
	CPU int `yaml:"cpu" env:"CPU"`
}

// RegistryConfig tunes timeout sweepers.
type RegistryConfig struct {
	Granularity time.Duration `yaml:"granularity" env:"GRANULARITY"`
}

// StreamConfig tunes copy loops.
type StreamConfig struct {
	ChunkSize    int           `yaml:"chunk_size" env:"CHUNK_SIZE"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// RateLimit in bytes per second; zero disables throttling.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"BURST"`
}

// LogConfig selects zap level, encoding and sinks.
type LogConfig struct {
	Level       string   `yaml:"level" env:"LEVEL"`
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig controls the prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// DebugConfig controls debug probes and config file watching.
type DebugConfig struct {
	PlatformProbes bool          `yaml:"platform_probes" env:"PLATFORM_PROBES"`
	WatchInterval  time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Buffer: BufferConfig{
			Capacity: 64 * 1024,
		},
		Reactor: ReactorConfig{
			MaxIdleWait:   time.Second,
			RecoverPanics: true,
			CPU:           -1,
		},
		Registry: RegistryConfig{
			Granularity: 10 * time.Millisecond,
		},
		Stream: StreamConfig{
			ChunkSize:    32 * 1024,
			PollInterval: 50 * time.Millisecond,
			Burst:        64 * 1024,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "hioload",
		},
		Debug: DebugConfig{
			PlatformProbes: true,
			WatchInterval:  2 * time.Second,
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Buffer.Capacity > 0, "buffer.capacity must be positive, got %d", c.Buffer.Capacity)
	check(c.Reactor.MaxIdleWait >= 0, "reactor.max_idle_wait must not be negative")
	check(c.Reactor.CPU >= -1, "reactor.cpu must be -1 or a cpu index, got %d", c.Reactor.CPU)
	check(c.Registry.Granularity >= 0, "registry.granularity must not be negative")
	check(c.Stream.ChunkSize > 0, "stream.chunk_size must be positive, got %d", c.Stream.ChunkSize)
	check(c.Stream.PollInterval > 0, "stream.poll_interval must be positive")
	check(c.Stream.RateLimit >= 0, "stream.rate_limit must not be negative")
	check(c.Stream.RateLimit == 0 || c.Stream.Burst > 0, "stream.burst must be positive when rate_limit is set")
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	check(c.Debug.WatchInterval >= 0, "debug.watch_interval must not be negative")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", api.ErrInvalidArgument, errors.Join(errs...))
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Log.OutputPaths = append([]string(nil), c.Log.OutputPaths...)
	return &out
}
