// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a caller-driven, single-dispatcher event reactor
// for one-shot timers.
//
// Nothing runs in the background: callbacks execute only inside a drive call
// (Poll, RunOne, RunOneUntil, RunUntil, RunFor, Run) or inside Timer.Cancel,
// which delivers api.ErrCancelled through the same dispatch path. At most one
// goroutine dispatches at a time, so handlers never run concurrently with each
// other. A handler may drive the reactor or cancel timers re-entrantly.
//
//	r := reactor.New()
//	t := r.ScheduleAfter(100*time.Millisecond, func(err error) {
//		if errors.Is(err, api.ErrCancelled) {
//			return
//		}
//		// expired
//	})
//	r.RunFor(110 * time.Millisecond)
//	_ = t.Expired() // true
//
// Handles must stay reachable while the timer matters: a handle that is
// garbage collected while pending is cancelled on the next drive call.
package reactor
