// File: core/stream/throttle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/momentics/hioload-core/api"
)

// ThrottledSink limits the byte rate delivered to an inner sink with a token
// bucket. WriteSome accepts at most burst bytes per call.
type ThrottledSink struct {
	inner   api.Sink
	limiter *rate.Limiter
	burst   int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewThrottledSink wraps inner, allowing bytesPerSec on average with bursts
// of up to burst bytes. burst must be positive.
func NewThrottledSink(inner api.Sink, bytesPerSec float64, burst int) *ThrottledSink {
	return NewThrottledSinkContext(context.Background(), inner, bytesPerSec, burst)
}

// NewThrottledSinkContext is NewThrottledSink whose waits also end when ctx
// is done. The inner sink is left open in that case.
func NewThrottledSinkContext(ctx context.Context, inner api.Sink, bytesPerSec float64, burst int) *ThrottledSink {
	if burst < 1 {
		panic(api.NewError(api.ErrCodeInvalidArgument, "throttle burst must be positive").
			WithContext("burst", burst))
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ThrottledSink{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *ThrottledSink) IsOpen() bool {
	return s.ctx.Err() == nil && s.inner.IsOpen()
}

// WriteSome waits for enough tokens, then forwards the chunk. Close releases
// a waiting writer with io.EOF.
func (s *ThrottledSink) WriteSome(p []byte) (int, error) {
	if s.ctx.Err() != nil {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > s.burst {
		p = p[:s.burst]
	}
	if err := s.limiter.WaitN(s.ctx, len(p)); err != nil {
		if s.ctx.Err() != nil {
			return 0, io.EOF
		}
		return 0, err
	}
	return s.inner.WriteSome(p)
}

func (s *ThrottledSink) Flush() error { return s.inner.Flush() }

// Stop releases the throttle's context and any waiting writer without
// closing the inner sink. Later writes fail with io.EOF.
func (s *ThrottledSink) Stop() { s.cancel() }

// Close stops the throttle and closes the inner sink.
func (s *ThrottledSink) Close() error {
	s.cancel()
	return s.inner.Close()
}

var _ api.Sink = (*ThrottledSink)(nil)
