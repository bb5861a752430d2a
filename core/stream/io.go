// File: core/stream/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bindings between the stream contract and the io package. Files, pipes and
// network connections honour read timeouts through SetReadDeadline; plain
// readers block.

package stream

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/hioload-core/api"
)

// minDeadline stands in for "check once": a deadline already in the past
// makes the poller fail before it attempts the read.
const minDeadline = time.Millisecond

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// ReaderSource exposes an io.Reader as an api.Source.
type ReaderSource struct {
	r        io.Reader
	deadline readDeadliner

	readMu sync.Mutex
	eof    atomic.Bool
}

// NewReaderSource wraps r. If r supports SetReadDeadline the timeout passed
// to Read is enforced; otherwise Read blocks until r returns.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{r: r}
	s.deadline, _ = r.(readDeadliner)
	return s
}

func (s *ReaderSource) IsOpen() bool { return !s.eof.Load() }

func (s *ReaderSource) Read(dst []byte, timeout time.Duration) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if s.eof.Load() {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}
	if s.deadline != nil {
		if err := s.deadline.SetReadDeadline(deadlineFor(timeout)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return 0, err
		}
	}
	n, err := s.r.Read(dst)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		s.eof.Store(true)
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	case errors.Is(err, os.ErrDeadlineExceeded) || api.IsTimeout(err):
		if n > 0 {
			return n, nil
		}
		return 0, api.ErrTimeout
	default:
		return n, err
	}
}

// Close closes the underlying reader when it is an io.Closer, which also
// releases a Read blocked in it.
func (s *ReaderSource) Close() error {
	s.eof.Store(true)
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func deadlineFor(timeout time.Duration) time.Time {
	switch {
	case timeout == api.NoTimeout:
		return time.Time{}
	case timeout <= 0:
		return time.Now().Add(minDeadline)
	default:
		return time.Now().Add(timeout)
	}
}

// WriterSink exposes an io.Writer as an api.Sink. Every WriteSome hands the
// whole slice to the writer, so a nil error always means full acceptance.
type WriterSink struct {
	w io.Writer

	mu     sync.Mutex
	closed bool
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *WriterSink) WriteSome(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	n, err := s.w.Write(p)
	if err != nil && isBrokenWriter(err) {
		s.closed = true
		return n, io.EOF
	}
	return n, err
}

// Flush pushes buffered output down: Flush() for buffered writers, Sync()
// for files. Sync on a terminal or pipe is not an error.
func (s *WriterSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.EOF
	}
	switch w := s.w.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case interface{ Sync() error }:
		if err := w.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying writer when it is an io.Closer.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	ferr := s.Flush()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if c, ok := s.w.(io.Closer); ok {
		return errors.Join(ferr, c.Close())
	}
	return ferr
}

func isBrokenWriter(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE)
}

// AsReader adapts src to io.Reader. Reads wait without a timeout.
func AsReader(src api.Source) io.Reader {
	return sourceReader{src}
}

type sourceReader struct{ src api.Source }

func (r sourceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return r.src.Read(p, api.NoTimeout)
}

// AsWriter adapts sink to io.Writer. Write loops like Put, so a short count
// always comes with an error.
func AsWriter(sink api.Sink) io.Writer {
	return sinkWriter{sink}
}

type sinkWriter struct{ sink api.Sink }

func (w sinkWriter) Write(p []byte) (int, error) {
	return writeAll(w.sink, p)
}

var (
	_ api.Source = (*ReaderSource)(nil)
	_ api.Sink   = (*WriterSink)(nil)
)
