// File: adapters/scheduler_adapter.go
// Package adapters provides glue between concrete core types and api contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SchedulerAdapter exposes a reactor.Reactor through api.Scheduler so that
// consumers such as timeout.Sweeper and control.FileWatcher depend only on the
// contract and can be tested against fakes.

package adapters

import (
	"time"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/reactor"
)

// SchedulerAdapter wraps a reactor to satisfy the api.Scheduler contract.
type SchedulerAdapter struct {
	r *reactor.Reactor
}

// Ensure compile-time interface compliance.
var _ api.Scheduler = (*SchedulerAdapter)(nil)

// NewSchedulerAdapter constructs an api.Scheduler backed by r.
func NewSchedulerAdapter(r *reactor.Reactor) *SchedulerAdapter {
	return &SchedulerAdapter{r: r}
}

// ScheduleAt registers a one-shot handler at an absolute expiry.
func (sa *SchedulerAdapter) ScheduleAt(expiry time.Time, h api.TimerHandler) api.TimerHandle {
	return sa.r.ScheduleAt(expiry, h)
}

// ScheduleAfter registers a one-shot handler after a delay.
func (sa *SchedulerAdapter) ScheduleAfter(delay time.Duration, h api.TimerHandler) api.TimerHandle {
	return sa.r.ScheduleAfter(delay, h)
}

// Now returns the reactor clock.
func (sa *SchedulerAdapter) Now() time.Time {
	return sa.r.Now()
}

// Reactor returns the wrapped reactor.
func (sa *SchedulerAdapter) Reactor() *reactor.Reactor {
	return sa.r
}
