// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timer handles and the per-timer state machine: pending -> firing -> done.
// Transitions happen only while the dispatch right is held.

package reactor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-core/api"
)

const (
	statePending int32 = iota
	stateFiring
	stateDone
)

// Ensure compile-time interface compliance.
var _ api.TimerHandle = (*Timer)(nil)

// timerState is owned by the reactor. It must never point back at its Timer
// handle, otherwise the handle could not be collected.
type timerState struct {
	r       *Reactor
	when    time.Time
	seq     uint64
	index   int // heap position, -1 when not in the heap
	handler api.TimerHandler

	state     atomic.Int32
	expired   atomic.Bool
	abandoned bool // guarded by r.mu
}

// Timer is the caller's handle to a scheduled callback.
type Timer struct {
	s       *timerState
	cleanup runtime.Cleanup
}

// Pending reports whether the handler has not completed yet. It stays true
// while the handler itself is running.
func (t *Timer) Pending() bool {
	return t.s.state.Load() != stateDone
}

// Expired reports whether the handler was (or is being) invoked because the
// expiry passed.
func (t *Timer) Expired() bool {
	return t.s.expired.Load()
}

// Expiry returns the absolute expiry time.
func (t *Timer) Expiry() time.Time {
	return t.s.when
}

// Cancel stops a pending timer and delivers api.ErrCancelled to its handler
// on the calling goroutine before returning true. If the handler is already
// running on another goroutine, Cancel waits for it to finish and returns
// false. Called from inside a handler it never blocks. After Cancel returns
// the handler will not be started again.
func (t *Timer) Cancel() bool {
	t.cleanup.Stop()
	return t.s.r.cancel(t.s)
}

func (r *Reactor) cancel(s *timerState) bool {
	if s.state.Load() == stateDone {
		return false
	}
	release := r.acquire()
	defer release()
	if !r.claim(s) {
		return false
	}
	r.invoke(s, api.ErrCancelled)
	return true
}

// abandonTimer runs when a Timer handle is garbage collected.
func abandonTimer(s *timerState) {
	s.r.abandon(s)
}
