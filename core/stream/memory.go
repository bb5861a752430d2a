// File: core/stream/memory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/momentics/hioload-core/api"
)

// MemorySource serves a fixed byte slice and then reports io.EOF. It never
// waits, so the timeout argument is ignored.
type MemorySource struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewMemorySource returns a source over a copy of data.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: bytes.Clone(data)}
}

// IsOpen reports whether unread bytes remain.
func (s *MemorySource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && len(s.data) > 0
}

func (s *MemorySource) Read(dst []byte, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(dst, s.data)
	s.data = s.data[n:]
	return n, nil
}

// Close discards unread bytes.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.data = nil
	s.mu.Unlock()
	return nil
}

// MemorySink accumulates everything written to it.
// A positive limit caps how many bytes a single WriteSome accepts.
type MemorySink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	limit  int
	closed bool
}

// NewMemorySink returns an open sink. limit <= 0 means unlimited.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (s *MemorySink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *MemorySink) WriteSome(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if s.limit > 0 && len(p) > s.limit {
		p = p[:s.limit]
	}
	return s.buf.Write(p)
}

// Flush is a no-op: bytes are visible as soon as WriteSome returns.
func (s *MemorySink) Flush() error { return nil }

func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Bytes returns a copy of everything written so far.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

func (s *MemorySink) String() string { return string(s.Bytes()) }

var (
	_ api.Source = (*MemorySource)(nil)
	_ api.Sink   = (*MemorySink)(nil)
)
