// File: core/timeout/sweeper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package timeout

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/internal/metrics"
)

// Sweeper drives a Registry with a single scheduler timer armed for the
// earliest expiry. Expired values are handed to onExpire from the
// scheduler's dispatch goroutine, outside the sweeper lock, so onExpire may
// Track or Untrack freely.
type Sweeper[T comparable] struct {
	mu       sync.Mutex
	registry *Registry[T]
	sched    api.Scheduler
	onExpire func(T)

	timer   api.TimerHandle
	armedAt time.Time
	gen     uint64
	closed  bool

	granularity time.Duration
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*sweeperOptions)

type sweeperOptions struct {
	granularity time.Duration
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// WithGranularity rounds sweep times up to multiples of g so that values
// expiring close together are handled by one timer.
func WithGranularity(g time.Duration) SweeperOption {
	return func(o *sweeperOptions) { o.granularity = g }
}

// WithSweeperLogger sets the logger.
func WithSweeperLogger(l *zap.Logger) SweeperOption {
	return func(o *sweeperOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSweeperMetrics sets the metrics collector.
func WithSweeperMetrics(c *metrics.Collector) SweeperOption {
	return func(o *sweeperOptions) { o.metrics = c }
}

// NewSweeper creates a sweeper on sched. The registry reads time from the
// scheduler so both agree on "now".
func NewSweeper[T comparable](sched api.Scheduler, onExpire func(T), opts ...SweeperOption) *Sweeper[T] {
	if sched == nil || onExpire == nil {
		panic(api.NewError(api.ErrCodeInvalidArgument, "sweeper needs a scheduler and an expiry callback"))
	}
	o := sweeperOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Sweeper[T]{
		registry:    NewRegistry[T](WithClock(sched)),
		sched:       sched,
		onExpire:    onExpire,
		granularity: o.granularity,
		logger:      o.logger.With(zap.String("component", "timeout_sweeper")),
		metrics:     o.metrics,
	}
}

// Track (re)arms v to expire d from now and reports whether it replaced an
// earlier expiry.
func (s *Sweeper[T]) Track(v T, d time.Duration) bool {
	return s.TrackAt(v, s.sched.Now().Add(d))
}

// TrackAt (re)arms v to expire at the absolute time at.
func (s *Sweeper[T]) TrackAt(v T, at time.Time) bool {
	s.mu.Lock()
	refreshed := s.registry.InsertAt(v, at)
	stale := s.rearmLocked()
	s.mu.Unlock()
	cancelStale(stale)
	return refreshed
}

// Untrack stops tracking v.
func (s *Sweeper[T]) Untrack(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// An early timer just finds nothing to do, so no re-arm here.
	return s.registry.Erase(v)
}

// Contains reports whether v is tracked.
func (s *Sweeper[T]) Contains(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Contains(v)
}

// Expiry returns when v expires.
func (s *Sweeper[T]) Expiry(v T) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Expiry(v)
}

// Len returns the number of tracked values.
func (s *Sweeper[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Len()
}

// Sweep expires everything due now without waiting for the timer and
// returns how many values were handed to onExpire.
func (s *Sweeper[T]) Sweep() int {
	return s.sweep(0, false)
}

// Close cancels the sweep timer. Tracked values stay in place but no longer
// expire on their own; Sweep still works.
func (s *Sweeper[T]) Close() error {
	s.mu.Lock()
	s.closed = true
	stale := s.timer
	s.timer = nil
	s.gen++
	s.mu.Unlock()
	cancelStale(stale)
	return nil
}

func (s *Sweeper[T]) fire(gen uint64) api.TimerHandler {
	return func(err error) {
		if err != nil {
			return
		}
		s.sweep(gen, true)
	}
}

func (s *Sweeper[T]) sweep(gen uint64, fromTimer bool) int {
	s.mu.Lock()
	if fromTimer && s.closed {
		s.mu.Unlock()
		return 0
	}
	if fromTimer && gen == s.gen {
		s.timer = nil
	}
	expired := s.registry.Poll()
	stale := s.rearmLocked()
	s.mu.Unlock()
	cancelStale(stale)

	if len(expired) > 0 {
		s.metrics.RegistryExpired(len(expired))
		s.logger.Debug("timeout sweep", zap.Int("expired", len(expired)))
	}
	for _, v := range expired {
		s.onExpire(v)
	}
	return len(expired)
}

// rearmLocked makes sure a timer is armed no later than the next expiry. It
// returns a superseded timer that the caller must cancel after unlocking.
func (s *Sweeper[T]) rearmLocked() api.TimerHandle {
	if s.closed {
		return nil
	}
	next, ok := s.registry.NextExpiry()
	if !ok {
		return nil
	}
	next = s.roundUp(next)
	if s.timer != nil && !next.Before(s.armedAt) {
		return nil
	}
	stale := s.timer
	s.gen++
	s.armedAt = next
	s.timer = s.sched.ScheduleAt(next, s.fire(s.gen))
	return stale
}

func (s *Sweeper[T]) roundUp(t time.Time) time.Time {
	if s.granularity <= 0 {
		return t
	}
	// Truncate drops the monotonic reading, so only its offset is applied.
	if r := t.Truncate(s.granularity); r.Before(t) {
		t = t.Add(r.Add(s.granularity).Sub(t))
	}
	return t
}

func cancelStale(t api.TimerHandle) {
	if t != nil {
		t.Cancel()
	}
}
