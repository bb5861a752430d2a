// Package api
// Author: momentics
//
// Scheduler contract for "call me back at time T" consumers.

package api

import "time"

// TimerHandler receives nil on normal expiry, ErrCancelled on cancellation
// and ErrReactorStopped when the owning reactor shuts down.
type TimerHandler func(err error)

// TimerHandle is the caller's reference to a scheduled one-shot callback.
type TimerHandle interface {
	// Pending reports whether the handler has not yet completed.
	Pending() bool

	// Expired reports whether the handler ran because its expiry passed.
	Expired() bool

	// Cancel prevents the handler from ever running for expiry. It returns
	// true if this call cancelled the timer.
	Cancel() bool

	// Expiry returns the absolute expiry time.
	Expiry() time.Time
}

// Scheduler abstracts timer registration against a reactor.
type Scheduler interface {
	ScheduleAt(expiry time.Time, h TimerHandler) TimerHandle
	ScheduleAfter(delay time.Duration, h TimerHandler) TimerHandle
	Now() time.Time
}
