// File: core/buffer/bounded.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BoundedBuffer couples a producer stream with a consumer stream through a
// fixed-size ring of bytes. All operations may block and are safe to call
// from any number of goroutines.

package buffer

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/internal/metrics"
)

// BoundedBuffer is a monitor over a ring store. Readers wait for data,
// writers wait for space and flushers wait for the ring to drain.
type BoundedBuffer struct {
	mu       sync.Mutex
	readers  sync.Cond
	writers  sync.Cond
	flushers sync.Cond

	store []byte
	head  int
	size  int
	open  bool

	readWaiters  int
	writeWaiters int

	_ cpu.CacheLinePad

	bytesIn    atomic.Uint64
	bytesOut   atomic.Uint64
	readWaits  atomic.Uint64
	writeWaits atomic.Uint64
	flushWaits atomic.Uint64
	timeouts   atomic.Uint64

	name    string
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Stats is a point-in-time snapshot of buffer counters.
type Stats struct {
	Capacity   int    `json:"capacity"`
	Buffered   int    `json:"buffered"`
	Open       bool   `json:"open"`
	BytesIn    uint64 `json:"bytes_in"`
	BytesOut   uint64 `json:"bytes_out"`
	ReadWaits  uint64 `json:"read_waits"`
	WriteWaits uint64 `json:"write_waits"`
	FlushWaits uint64 `json:"flush_waits"`
	Timeouts   uint64 `json:"timeouts"`
}

// Option configures a BoundedBuffer.
type Option func(*BoundedBuffer)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(b *BoundedBuffer) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *BoundedBuffer) { b.metrics = c }
}

// WithName labels the buffer in logs.
func WithName(name string) Option {
	return func(b *BoundedBuffer) { b.name = name }
}

// New creates an open buffer holding at most capacity bytes.
// It panics if capacity is less than one.
func New(capacity int, opts ...Option) *BoundedBuffer {
	if capacity < 1 {
		panic(api.NewError(api.ErrCodeInvalidArgument, "buffer capacity must be positive").
			WithContext("capacity", capacity))
	}
	b := &BoundedBuffer{
		store:  make([]byte, capacity),
		open:   true,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.readers.L = &b.mu
	b.writers.L = &b.mu
	b.flushers.L = &b.mu
	b.logger = b.logger.With(zap.String("component", "buffer"), zap.String("name", b.name), zap.Int("capacity", capacity))
	return b
}

// IsOpen reports whether Close has not been called yet.
func (b *BoundedBuffer) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Cap returns the fixed capacity.
func (b *BoundedBuffer) Cap() int { return len(b.store) }

// Len returns the number of buffered bytes.
func (b *BoundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Free returns the number of bytes that can be written without blocking.
func (b *BoundedBuffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.store) - b.size
}

// WriteSome blocks while the buffer is full and open, then copies as much of
// p as fits and returns the count. The accepted bytes are p[:n]. Once the
// buffer is closed, before or during the wait, it returns (0, io.EOF).
//
// WriteSome does not implement io.Writer: a short count is not an error.
func (b *BoundedBuffer) WriteSome(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if b.size == len(b.store) {
		b.writeWaits.Add(1)
		b.metrics.BufferWait(metrics.SideWrite)
		b.writeWaiters++
		for b.open && b.size == len(b.store) {
			b.writers.Wait()
		}
		b.writeWaiters--
		if !b.open {
			return 0, io.EOF
		}
	}

	wasEmpty := b.size == 0
	n := b.put(p)
	b.bytesIn.Add(uint64(n))
	b.metrics.BufferBytes(metrics.SideWrite, n)

	if wasEmpty && b.readWaiters > 0 {
		b.readers.Signal()
	}
	// space left for the next blocked writer
	if b.size < len(b.store) && b.writeWaiters > 0 {
		b.writers.Signal()
	}
	return n, nil
}

// Read copies up to len(dst) buffered bytes into dst, waiting at most
// timeout for at least one byte to arrive.
//
// A timeout <= 0 checks once without waiting; api.NoTimeout waits until data
// arrives or the buffer closes. When nothing was read it returns
// (0, api.ErrTimeout) if the buffer is still open and (0, io.EOF) if it is
// closed and drained.
func (b *BoundedBuffer) Read(dst []byte, timeout time.Duration) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(dst) == 0 {
		if b.size == 0 && !b.open {
			return 0, io.EOF
		}
		return 0, nil
	}
	if b.size == 0 && b.open && timeout > 0 {
		b.waitReadable(timeout)
	}
	if b.size == 0 {
		if !b.open {
			return 0, io.EOF
		}
		b.timeouts.Add(1)
		b.metrics.BufferTimeout()
		return 0, api.ErrTimeout
	}

	wasFull := b.size == len(b.store)
	n := b.take(dst)
	b.bytesOut.Add(uint64(n))
	b.metrics.BufferBytes(metrics.SideRead, n)

	if wasFull && b.writeWaiters > 0 {
		b.writers.Signal()
	}
	if b.size == 0 {
		b.flushers.Broadcast()
	} else if b.readWaiters > 0 {
		b.readers.Signal()
	}
	return n, nil
}

// waitReadable blocks until data is buffered, the buffer closes or timeout
// elapses. Called with b.mu held.
func (b *BoundedBuffer) waitReadable(timeout time.Duration) {
	expired := false
	if timeout != api.NoTimeout {
		t := time.AfterFunc(timeout, func() {
			b.mu.Lock()
			expired = true
			b.readers.Broadcast()
			b.mu.Unlock()
		})
		defer t.Stop()
	}

	b.readWaits.Add(1)
	b.metrics.BufferWait(metrics.SideRead)
	b.readWaiters++
	for b.size == 0 && b.open && !expired {
		b.readers.Wait()
	}
	b.readWaiters--
}

// Flush blocks until every buffered byte has been consumed. It returns nil
// once the buffer is empty and io.EOF if the buffer was closed with bytes
// still queued.
func (b *BoundedBuffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size > 0 && b.open {
		b.flushWaits.Add(1)
		b.metrics.BufferWait(metrics.SideFlush)
		for b.open && b.size > 0 {
			b.flushers.Wait()
		}
	}
	if b.size > 0 {
		return io.EOF
	}
	return nil
}

// Close marks the buffer closed and wakes every blocked caller. Buffered
// bytes stay readable. Close is idempotent.
func (b *BoundedBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	b.readers.Broadcast()
	b.writers.Broadcast()
	b.flushers.Broadcast()
	b.logger.Debug("buffer closed", zap.Int("buffered", b.size))
	return nil
}

// Stats returns a snapshot of the buffer counters.
func (b *BoundedBuffer) Stats() Stats {
	b.mu.Lock()
	buffered, open := b.size, b.open
	b.mu.Unlock()
	return Stats{
		Capacity:   len(b.store),
		Buffered:   buffered,
		Open:       open,
		BytesIn:    b.bytesIn.Load(),
		BytesOut:   b.bytesOut.Load(),
		ReadWaits:  b.readWaits.Load(),
		WriteWaits: b.writeWaits.Load(),
		FlushWaits: b.flushWaits.Load(),
		Timeouts:   b.timeouts.Load(),
	}
}

// put appends as much of p as fits behind the last buffered byte.
func (b *BoundedBuffer) put(p []byte) int {
	n := min(len(p), len(b.store)-b.size)
	tail := (b.head + b.size) % len(b.store)
	c := copy(b.store[tail:], p[:n])
	if c < n {
		copy(b.store, p[c:n])
	}
	b.size += n
	return n
}

// take removes up to len(dst) bytes from the front of the ring.
func (b *BoundedBuffer) take(dst []byte) int {
	n := min(len(dst), b.size)
	c := copy(dst[:n], b.store[b.head:])
	if c < n {
		copy(dst[c:n], b.store)
	}
	b.head = (b.head + n) % len(b.store)
	b.size -= n
	if b.size == 0 {
		b.head = 0
	}
	return n
}

var (
	_ api.Source = (*BoundedBuffer)(nil)
	_ api.Sink   = (*BoundedBuffer)(nil)
)
