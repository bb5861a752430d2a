// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted stream endpoints. Each call consumes the next step of a script,
// so tests can force short writes, timeouts and early EOF.

package fake

import (
	"io"
	"sync"
	"time"

	"github.com/momentics/hioload-core/api"
)

// SourceStep is one scripted Read outcome.
type SourceStep struct {
	Data []byte
	Err  error
}

// ScriptedSource replays SourceSteps. Once the script is exhausted every
// Read returns io.EOF.
type ScriptedSource struct {
	mu     sync.Mutex
	steps  []SourceStep
	closed bool
	reads  int
}

// NewScriptedSource creates a source replaying steps in order.
func NewScriptedSource(steps ...SourceStep) *ScriptedSource {
	return &ScriptedSource{steps: steps}
}

// Chunk is a step delivering data.
func Chunk(s string) SourceStep { return SourceStep{Data: []byte(s)} }

// Timeout is a step reporting api.ErrTimeout.
func Timeout() SourceStep { return SourceStep{Err: api.ErrTimeout} }

func (s *ScriptedSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && len(s.steps) > 0
}

// Read ignores the timeout and returns the next scripted step. A chunk
// larger than dst is split across calls.
func (s *ScriptedSource) Read(dst []byte, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.closed || len(s.steps) == 0 {
		return 0, io.EOF
	}
	step := &s.steps[0]
	if step.Err != nil {
		s.steps = s.steps[1:]
		return 0, step.Err
	}
	n := copy(dst, step.Data)
	step.Data = step.Data[n:]
	if len(step.Data) == 0 {
		s.steps = s.steps[1:]
	}
	return n, nil
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Reads returns how many times Read was called.
func (s *ScriptedSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// ScriptedSink accepts at most Accept[i] bytes on the i-th WriteSome. After
// the script runs out it accepts everything, or closes when CloseAfter is set.
type ScriptedSink struct {
	mu         sync.Mutex
	accept     []int
	closeAfter bool
	closed     bool
	data       []byte
	flushes    int
	flushErr   error
}

// NewScriptedSink creates a sink following accept. closeAfter makes the
// sink report io.EOF once the script is exhausted.
func NewScriptedSink(closeAfter bool, accept ...int) *ScriptedSink {
	return &ScriptedSink{accept: accept, closeAfter: closeAfter}
}

func (s *ScriptedSink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *ScriptedSink) WriteSome(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	n := len(p)
	if len(s.accept) > 0 {
		n = min(n, s.accept[0])
		s.accept = s.accept[1:]
	} else if s.closeAfter {
		s.closed = true
		return 0, io.EOF
	}
	s.data = append(s.data, p[:n]...)
	return n, nil
}

// SetFlushError makes Flush return err.
func (s *ScriptedSink) SetFlushError(err error) {
	s.mu.Lock()
	s.flushErr = err
	s.mu.Unlock()
}

func (s *ScriptedSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return s.flushErr
}

func (s *ScriptedSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Written returns a copy of the accepted bytes.
func (s *ScriptedSink) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Flushes returns how many times Flush was called.
func (s *ScriptedSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

var (
	_ api.Source = (*ScriptedSource)(nil)
	_ api.Sink   = (*ScriptedSink)(nil)
)
