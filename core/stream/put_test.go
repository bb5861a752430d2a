package stream_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/core/buffer"
	"github.com/momentics/hioload-core/core/stream"
)

func TestPutLoopsOverPartialWrites(t *testing.T) {
	sink := stream.NewMemorySink(3)
	require.NoError(t, stream.PutString(sink, "hello, world"))
	assert.Equal(t, "hello, world", sink.String())
}

func TestPutThroughBoundedBuffer(t *testing.T) {
	b := buffer.New(4)
	done := make(chan error, 1)
	go func() {
		done <- stream.PutString(b, "line 2\nine 2\n")
		_ = b.Close()
	}()

	got, err := stream.ReadAll(b, api.NoTimeout)
	require.NoError(t, err)
	assert.Equal(t, "line 2\nine 2\n", string(got))
	require.NoError(t, <-done)
}

func TestPutOnClosedSinkFailsWithEOF(t *testing.T) {
	b := buffer.New(4)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = b.Close()
	}()

	err := stream.PutString(b, "0123456789")
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeEOF, apiErr.Code)

	n, ok := stream.Written(err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

type stuckSink struct{ stream.MemorySink }

func (*stuckSink) WriteSome([]byte) (int, error) { return 0, nil }

func TestPutDetectsNoProgress(t *testing.T) {
	err := stream.Put(&stuckSink{}, []byte("x"))
	assert.ErrorIs(t, err, io.ErrNoProgress)
}

func TestReadAllReturnsTimeoutWithPartialData(t *testing.T) {
	b := buffer.New(8)
	_, err := b.WriteSome([]byte("abc"))
	require.NoError(t, err)

	got, err := stream.ReadAll(b, 0)
	assert.ErrorIs(t, err, api.ErrTimeout)
	assert.Equal(t, "abc", string(got))
}

func TestWrittenIgnoresForeignErrors(t *testing.T) {
	_, ok := stream.Written(io.EOF)
	assert.False(t, ok)
}
