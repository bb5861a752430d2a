// File: core/stream/pump.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/core/buffer"
	"github.com/momentics/hioload-core/pool"
)

const (
	// DefaultChunkSize is the scratch buffer size used by Pump.
	DefaultChunkSize = 32 * 1024
	// DefaultPollInterval bounds how long Pump waits on a read before
	// re-checking its context.
	DefaultPollInterval = 50 * time.Millisecond
)

type pumpConfig struct {
	chunk int
	poll  time.Duration
	pool  api.BytePool
}

// PumpOption configures Pump.
type PumpOption func(*pumpConfig)

// WithChunkSize sets the scratch buffer size.
func WithChunkSize(n int) PumpOption {
	return func(c *pumpConfig) {
		if n > 0 {
			c.chunk = n
		}
	}
}

// WithPollInterval sets the per-read timeout.
func WithPollInterval(d time.Duration) PumpOption {
	return func(c *pumpConfig) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithPool sets where scratch buffers come from.
func WithPool(p api.BytePool) PumpOption {
	return func(c *pumpConfig) {
		if p != nil {
			c.pool = p
		}
	}
}

// Pump copies from src to dst until src reports io.EOF, dst closes or ctx is
// done. It returns the number of bytes delivered to dst. A clean end of
// stream is not an error. When ctx is done dst is closed, which releases a
// write blocked on a full sink, and Pump returns ctx.Err().
func Pump(ctx context.Context, src api.Source, dst api.Sink, opts ...PumpOption) (int64, error) {
	cfg := pumpConfig{chunk: DefaultChunkSize, poll: DefaultPollInterval, pool: pool.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := cfg.pool.Acquire(cfg.chunk)
	defer cfg.pool.Release(buf)

	stop := context.AfterFunc(ctx, func() { _ = dst.Close() })
	defer stop()

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(buf, cfg.poll)
		if n > 0 {
			w, err := writeAll(dst, buf[:n])
			total += int64(w)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return total, cerr
				}
				return total, err
			}
		}
		switch {
		case rerr == nil, api.IsTimeout(rerr):
		case errors.Is(rerr, io.EOF):
			return total, nil
		default:
			return total, rerr
		}
	}
}

// Pipe connects produce and consume through a BoundedBuffer of the given
// capacity and runs them concurrently. The buffer is closed when the
// producer returns, so the consumer sees io.EOF after draining, and when the
// consumer returns or ctx is done, so a blocked producer is released with
// io.EOF. Pipe returns the first non-nil error.
func Pipe(ctx context.Context, capacity int,
	produce func(ctx context.Context, sink api.Sink) error,
	consume func(ctx context.Context, src api.Source) error,
	opts ...buffer.Option,
) error {
	buf := buffer.New(capacity, opts...)
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = buf.Close() })
	defer stop()

	g.Go(func() error {
		defer buf.Close()
		return produce(gctx, buf)
	})
	g.Go(func() error {
		defer buf.Close()
		return consume(gctx, buf)
	})
	return g.Wait()
}
