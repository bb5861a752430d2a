package stream_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-core/core/stream"
)

func TestMemorySourceDrainsThenEOF(t *testing.T) {
	src := stream.NewMemorySource([]byte("abcdef"))
	assert.True(t, src.IsOpen())

	dst := make([]byte, 4)
	n, err := src.Read(dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(dst[:n]))

	n, err = src.Read(dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "ef", string(dst[:n]))
	assert.False(t, src.IsOpen())

	_, err = src.Read(dst, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMemorySourceClose(t *testing.T) {
	src := stream.NewMemorySource([]byte("abc"))
	require.NoError(t, src.Close())
	_, err := src.Read(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMemorySinkLimitAndClose(t *testing.T) {
	sink := stream.NewMemorySink(2)
	n, err := sink.WriteSome([]byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, sink.Flush())

	require.NoError(t, sink.Close())
	assert.False(t, sink.IsOpen())
	_, err = sink.WriteSome([]byte("z"))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "xy", sink.String())
}
