package facade_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/control"
	"github.com/momentics/hioload-core/core/buffer"
	"github.com/momentics/hioload-core/core/stream"
	"github.com/momentics/hioload-core/facade"
)

func newRuntime(t *testing.T, cfg *control.Config, opts ...facade.Option) *facade.Runtime {
	t.Helper()
	opts = append([]facade.Option{facade.WithLogger(zap.NewNop())}, opts...)
	rt, err := facade.New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { _ = rt.Shutdown() })
	return rt
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Stream.ChunkSize = 0
	_, err := facade.New(cfg, facade.WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestSchedulerFiresOnRunningReactor(t *testing.T) {
	rt := newRuntime(t, nil)
	assert.NotEmpty(t, rt.ID())

	fired := make(chan error, 1)
	h := rt.Scheduler().ScheduleAfter(10*time.Millisecond, func(err error) { fired <- err })
	defer runtime.KeepAlive(h)

	select {
	case err := <-fired:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestStopKeepsTimersAndShutdownDiscardsThem(t *testing.T) {
	rt := newRuntime(t, nil)
	require.NoError(t, rt.Stop())
	require.NoError(t, rt.Stop())

	fired := make(chan error, 1)
	h := rt.Scheduler().ScheduleAfter(time.Hour, func(err error) { fired <- err })
	defer runtime.KeepAlive(h)
	assert.Equal(t, 1, rt.Reactor().Pending())

	require.NoError(t, rt.Shutdown())
	select {
	case err := <-fired:
		assert.ErrorIs(t, err, api.ErrReactorStopped)
	default:
		t.Fatal("shutdown did not discard the pending timer")
	}
}

func TestRestartAfterStop(t *testing.T) {
	rt := newRuntime(t, nil)
	require.NoError(t, rt.Stop())
	require.NoError(t, rt.Start(context.Background()))

	fired := make(chan struct{})
	h := rt.Scheduler().ScheduleAfter(time.Millisecond, func(error) { close(fired) })
	defer runtime.KeepAlive(h)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire after restart")
	}
}

func TestSweeperExpiresThroughRuntime(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Registry.Granularity = 5 * time.Millisecond
	rt := newRuntime(t, cfg)

	expired := make(chan string, 2)
	sw := facade.NewSweeper(rt, func(id string) { expired <- id })
	defer sw.Close()
	sw.Track("a", 10*time.Millisecond)
	sw.Track("b", 20*time.Millisecond)

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-expired:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not expire", want)
		}
	}

	stats := rt.Stats()
	assert.Equal(t, 2.0, stats["hioload_registry_expired_total"])
}

func TestNewBufferUsesConfiguredCapacity(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Buffer.Capacity = 16
	cfg.Metrics.Enabled = false
	rt := newRuntime(t, cfg)

	b := rt.NewBuffer()
	assert.Equal(t, 16, b.Cap())
	assert.Nil(t, rt.Metrics())
}

func TestPumpAppliesRateLimit(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Stream.RateLimit = 1000
	cfg.Stream.Burst = 100
	cfg.Stream.ChunkSize = 64
	rt := newRuntime(t, cfg)

	src := stream.NewMemorySource(make([]byte, 300))
	dst := stream.NewMemorySink(0)

	start := time.Now()
	n, err := rt.Pump(context.Background(), src, dst)
	require.NoError(t, err)
	assert.EqualValues(t, 300, n)
	assert.Len(t, dst.Bytes(), 300)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.True(t, dst.IsOpen())
}

func TestPumpReturnsWhenContextEndsOnFullSink(t *testing.T) {
	rt := newRuntime(t, nil)

	dst := rt.NewBuffer(buffer.WithLogger(zap.NewNop()))
	src := stream.NewMemorySource(make([]byte, 2*dst.Cap()))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := rt.Pump(ctx, src, dst)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, dst.IsOpen())
	case <-time.After(time.Second):
		t.Fatal("Pump did not return after the deadline")
	}
}

func TestStatsIncludesProbes(t *testing.T) {
	rt := newRuntime(t, nil)
	rt.RegisterDebugProbe("custom", func() any { return "ok" })

	stats := rt.Stats()
	assert.Equal(t, "ok", stats["debug.custom"])
	assert.Contains(t, stats, "debug.reactor.pending")
	assert.Contains(t, stats, "debug.pool.stats")
	assert.Contains(t, stats, "hioload_reactor_timers_scheduled_total")
}

func TestConfigFileHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hioload.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer:\n  capacity: 32\n"), 0o644))

	cfg, err := control.NewLoader().WithConfigPath(path).WithEnvPrefix("").Load()
	require.NoError(t, err)
	cfg.Debug.WatchInterval = 10 * time.Millisecond

	rt := newRuntime(t, cfg, facade.WithConfigPath(path))
	assert.Equal(t, 32, rt.Config().Buffer.Capacity)

	var reloads atomic.Int32
	rt.OnReload(func() { reloads.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("buffer:\n  capacity: 4096\n"), 0o644))
	require.Eventually(t, func() bool { return reloads.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 4096, rt.NewBuffer().Cap())
}

func TestPinnedReactorStillFires(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Reactor.CPU = 0
	rt := newRuntime(t, cfg)

	fired := make(chan error, 1)
	h := rt.Scheduler().ScheduleAfter(time.Millisecond, func(err error) { fired <- err })
	defer runtime.KeepAlive(h)

	select {
	case err := <-fired:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pinned reactor did not fire")
	}
}
