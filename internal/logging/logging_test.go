package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, level := NewWithLevel(Config{Level: "warn", Format: "json", OutputPaths: []string{path}})

	logger.Info("hidden")
	logger.Warn("shown")
	level.SetLevel(zapcore.InfoLevel)
	logger.Info("now visible")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, "now visible")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestNewFallsBackOnBadOutput(t *testing.T) {
	logger := New(Config{OutputPaths: []string{"unknown-scheme://nowhere"}})
	assert.NotNil(t, logger)
}

func TestFallbackFollowsAtomicLevel(t *testing.T) {
	logger, level := NewWithLevel(Config{Level: "info", OutputPaths: []string{"unknown-scheme://nowhere"}})
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	level.SetLevel(zapcore.ErrorLevel)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
