package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/momentics/hioload-core/control"
	"github.com/momentics/hioload-core/fake"
)

func writeConfig(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFileWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hioload.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "buffer:\n  capacity: 100\n", base)

	sched := fake.NewScheduler(time.Now())
	store := control.NewConfigStore(nil, nil)
	reloaded := 0
	store.OnReload(func() { reloaded++ })

	w := control.NewFileWatcher(path, sched, store,
		control.WithWatchInterval(time.Second),
		control.WithWatcherLoader(control.NewLoader().WithEnvPrefix("")))
	w.Start()
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(time.Second)
	assert.Equal(t, 0, reloaded)

	writeConfig(t, path, "buffer:\n  capacity: 200\n", base.Add(time.Minute))
	sched.Advance(time.Second)
	assert.Equal(t, 1, reloaded)
	assert.Equal(t, 1, w.Reloads())
	assert.Equal(t, 200, store.Snapshot().Buffer.Capacity)

	w.Stop()
	assert.Equal(t, 0, sched.Pending())
}

func TestFileWatcherKeepsConfigOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hioload.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "buffer:\n  capacity: 100\n", base)

	store := control.NewConfigStore(nil, nil)
	w := control.NewFileWatcher(path, fake.NewScheduler(time.Now()), store,
		control.WithWatcherLoader(control.NewLoader().WithEnvPrefix("")))
	w.Start()
	defer w.Stop()

	writeConfig(t, path, "buffer:\n  capacity: -5\n", base.Add(time.Minute))
	applied, err := w.Check()
	assert.False(t, applied)
	assert.Error(t, err)
	assert.Equal(t, control.DefaultConfig().Buffer.Capacity, store.Snapshot().Buffer.Capacity)

	applied, err = w.Check()
	assert.False(t, applied)
	assert.NoError(t, err)
}

func TestFileWatcherLogsFailedReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hioload.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "buffer:\n  capacity: 100\n", base)

	core, logs := observer.New(zapcore.WarnLevel)
	sched := fake.NewScheduler(time.Now())
	store := control.NewConfigStore(nil, nil)
	w := control.NewFileWatcher(path, sched, store,
		control.WithWatchInterval(time.Second),
		control.WithWatcherLogger(zap.New(core)),
		control.WithWatcherLoader(control.NewLoader().WithEnvPrefix("")))
	w.Start()
	defer w.Stop()

	sched.Advance(time.Second)
	require.Equal(t, 0, logs.Len())

	writeConfig(t, path, "buffer:\n  capacity: -5\n", base.Add(time.Minute))
	sched.Advance(time.Second)

	failed := logs.FilterMessage("config reload failed, keeping current config")
	require.Equal(t, 1, failed.Len())
	assert.Contains(t, failed.All()[0].ContextMap(), "error")
	assert.Equal(t, 0, w.Reloads())
	assert.Equal(t, 1, sched.Pending())
}
