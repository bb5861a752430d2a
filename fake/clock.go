// Package fake
// Author: momentics <momentics@gmail.com>
//
// Manual clock and scheduler for deterministic tests.

package fake

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-core/api"
)

// Clock is an api.Clock that only moves when told to.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements api.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Scheduler is an api.Scheduler over a manual Clock. Timers fire only from
// Advance, synchronously and in expiry order.
type Scheduler struct {
	*Clock

	mu     sync.Mutex
	seq    uint64
	timers []*Timer
}

// NewScheduler creates a scheduler whose clock reads start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{Clock: NewClock(start)}
}

// ScheduleAt implements api.Scheduler.
func (s *Scheduler) ScheduleAt(expiry time.Time, h api.TimerHandler) api.TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Timer{s: s, when: expiry, seq: s.seq, handler: h, pending: true}
	s.timers = append(s.timers, t)
	return t
}

// ScheduleAfter implements api.Scheduler.
func (s *Scheduler) ScheduleAfter(d time.Duration, h api.TimerHandler) api.TimerHandle {
	return s.ScheduleAt(s.Now().Add(d), h)
}

// Pending returns the number of timers not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Advance moves the clock by d and fires every timer that became due,
// including ones scheduled by handlers while advancing.
func (s *Scheduler) Advance(d time.Duration) int {
	s.Clock.Advance(d)
	fired := 0
	for {
		t := s.popDue(s.Now())
		if t == nil {
			return fired
		}
		t.handler(nil)
		fired++
	}
}

func (s *Scheduler) popDue(now time.Time) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].when.Equal(s.timers[j].when) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].when.Before(s.timers[j].when)
	})
	if len(s.timers) == 0 || s.timers[0].when.After(now) {
		return nil
	}
	t := s.timers[0]
	s.timers = s.timers[1:]
	t.pending = false
	t.expired = true
	return t
}

func (s *Scheduler) remove(t *Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.pending {
		return false
	}
	t.pending = false
	for i, x := range s.timers {
		if x == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			break
		}
	}
	return true
}

// Timer is the handle returned by Scheduler.
type Timer struct {
	s       *Scheduler
	when    time.Time
	seq     uint64
	handler api.TimerHandler
	pending bool
	expired bool
}

func (t *Timer) Pending() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.pending
}

func (t *Timer) Expired() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.expired
}

func (t *Timer) Expiry() time.Time { return t.when }

// Cancel delivers api.ErrCancelled inline, like the real reactor.
func (t *Timer) Cancel() bool {
	if !t.s.remove(t) {
		return false
	}
	t.handler(api.ErrCancelled)
	return true
}

var (
	_ api.Clock     = (*Clock)(nil)
	_ api.Scheduler = (*Scheduler)(nil)
)
