// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor dispatches one-shot timer callbacks from inside caller-driven drive
// calls. Due timers move from the expiry heap into a FIFO ready queue and are
// executed by whichever goroutine currently holds the dispatch right.

package reactor

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/internal/metrics"
)

const defaultResolution = time.Millisecond

// Ensure compile-time interface compliance.
var (
	_ api.Driver           = (*Reactor)(nil)
	_ api.GracefulShutdown = (*Reactor)(nil)
)

// Reactor owns pending timer state. The zero value is not usable; call New.
type Reactor struct {
	id            string
	logger        *zap.Logger
	metrics       *metrics.Collector
	recoverPanics bool
	maxIdle       time.Duration

	mu        sync.Mutex   // guards everything below up to wake
	timers    timerHeap    // pending, not yet due
	ready     *queue.Queue // *timerState due for dispatch
	abandoned []*timerState
	seq       uint64
	stopped   bool
	stopCh    chan struct{} // closed by Stop, replaced by Restart

	wake chan struct{} // capacity 1; nudges a blocked drive call

	// dispatchMu is the dispatch right. dispatchG records its holder so that
	// handlers can drive or cancel re-entrantly.
	dispatchMu sync.Mutex
	dispatchG  atomic.Uint64
}

// Option configures a Reactor.
type Option func(*Reactor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reactor) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Reactor) {
		r.metrics = c
	}
}

// WithPanicRecovery controls whether handler panics are recovered and logged
// (default) or re-raised on the dispatching goroutine.
func WithPanicRecovery(enabled bool) Option {
	return func(r *Reactor) {
		r.recoverPanics = enabled
	}
}

// WithMaxIdleWait caps how long a blocked drive call sleeps before it
// re-reads the clock. Zero (the default) means no cap.
func WithMaxIdleWait(d time.Duration) Option {
	return func(r *Reactor) {
		if d > 0 {
			r.maxIdle = d
		}
	}
}

// New creates an idle reactor.
func New(opts ...Option) *Reactor {
	r := &Reactor{
		id:            uuid.NewString(),
		logger:        zap.NewNop(),
		recoverPanics: true,
		ready:         queue.New(),
		stopCh:        make(chan struct{}),
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "reactor"), zap.String("reactor_id", r.id))
	r.logger.Debug("reactor created", zap.Duration("resolution", Resolution()))
	return r
}

// ID returns the reactor's instance identifier.
func (r *Reactor) ID() string {
	return r.id
}

// Now returns the reactor's notion of the current monotonic time.
func (r *Reactor) Now() time.Time {
	return time.Now()
}

// ScheduleAfter registers h to run once delay has elapsed. A zero or
// negative delay is already expired.
func (r *Reactor) ScheduleAfter(delay time.Duration, h api.TimerHandler) *Timer {
	return r.ScheduleAt(time.Now().Add(delay), h)
}

// ScheduleAt registers h to run once expiry is reached. An expiry in the past
// fires on the next drive call.
func (r *Reactor) ScheduleAt(expiry time.Time, h api.TimerHandler) *Timer {
	s := r.enqueue(expiry, h)
	t := &Timer{s: s}
	t.cleanup = runtime.AddCleanup(t, abandonTimer, s)
	return t
}

// Post queues fn to run on the next drive call. Posted callbacks have no
// handle and cannot be cancelled, except by Shutdown.
func (r *Reactor) Post(fn func()) {
	if fn == nil {
		panic(api.NewError(api.ErrCodeInvalidArgument, "reactor: nil posted func").Wrap(api.ErrInvalidArgument))
	}
	r.enqueue(time.Time{}, func(err error) {
		if err == nil {
			fn()
		}
	})
}

func (r *Reactor) enqueue(expiry time.Time, h api.TimerHandler) *timerState {
	if h == nil {
		panic(api.NewError(api.ErrCodeInvalidArgument, "reactor: nil timer handler").Wrap(api.ErrInvalidArgument))
	}
	s := &timerState{r: r, when: expiry, handler: h, index: -1}
	r.mu.Lock()
	r.seq++
	s.seq = r.seq
	heap.Push(&r.timers, s)
	first := s.index == 0
	r.mu.Unlock()

	r.metrics.TimerScheduled()
	if first {
		r.notify()
	}
	return s
}

// Pending returns the number of timers that have not been dispatched.
func (r *Reactor) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers) + r.ready.Length()
}

// Stop unblocks in-progress drive calls; later drive calls return false
// immediately until Restart.
func (r *Reactor) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.stopCh)
	}
	r.mu.Unlock()
}

// Restart clears a previous Stop.
func (r *Reactor) Restart() {
	r.mu.Lock()
	if r.stopped {
		r.stopped = false
		r.stopCh = make(chan struct{})
	}
	r.mu.Unlock()
}

// Stopped reports whether Stop was called without a subsequent Restart.
func (r *Reactor) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Poll runs every callback that is ready now, without blocking.
func (r *Reactor) Poll() bool {
	if r.Stopped() {
		return false
	}
	did := r.dispatch()
	r.metrics.DriveCall(did)
	return did
}

// RunOne blocks until at least one callback is ready, runs it together with
// any others ready at the same moment, and returns true. It returns false
// only when the reactor is stopped.
func (r *Reactor) RunOne() bool {
	return r.runOne(time.Time{}, false, nil)
}

// RunOneUntil is RunOne bounded by deadline. A deadline in the past makes it
// equivalent to Poll.
func (r *Reactor) RunOneUntil(deadline time.Time) bool {
	return r.runOne(deadline, true, nil)
}

// RunOneFor is RunOneUntil(now + d).
func (r *Reactor) RunOneFor(d time.Duration) bool {
	return r.RunOneUntil(time.Now().Add(d))
}

// RunUntil keeps driving until deadline and reports whether any callback ran.
func (r *Reactor) RunUntil(deadline time.Time) bool {
	did := false
	for {
		if !r.runOne(deadline, true, nil) {
			return did
		}
		did = true
		if !time.Now().Before(deadline) {
			return did
		}
	}
}

// RunFor is RunUntil(now + d).
func (r *Reactor) RunFor(d time.Duration) bool {
	return r.RunUntil(time.Now().Add(d))
}

// Run drives the reactor until Stop is called or ctx is done. It returns
// ctx.Err() in the latter case.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Stopped() {
			return nil
		}
		r.runOne(time.Time{}, false, ctx.Done())
	}
}

// Shutdown stops the reactor and discards every pending timer, delivering
// api.ErrReactorStopped to each handler.
func (r *Reactor) Shutdown() error {
	r.Stop()
	release := r.acquire()
	defer release()

	r.mu.Lock()
	victims := make([]*timerState, 0, len(r.timers)+r.ready.Length()+len(r.abandoned))
	for _, s := range r.timers {
		s.index = -1
		victims = append(victims, s)
	}
	clear(r.timers)
	r.timers = r.timers[:0]
	for r.ready.Length() > 0 {
		victims = append(victims, r.ready.Remove().(*timerState))
	}
	victims = append(victims, r.abandoned...)
	r.abandoned = nil
	for i, s := range victims {
		if !s.state.CompareAndSwap(statePending, stateFiring) {
			victims[i] = nil
		}
	}
	r.mu.Unlock()

	discarded := 0
	for _, s := range victims {
		if s == nil {
			continue
		}
		r.invoke(s, api.ErrReactorStopped)
		discarded++
	}
	r.logger.Debug("reactor shut down", zap.Int("discarded", discarded))
	return nil
}

// runOne is the blocking drive loop. done, when non-nil, aborts the wait.
func (r *Reactor) runOne(deadline time.Time, bounded bool, done <-chan struct{}) bool {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return false
		}
		stopCh := r.stopCh
		r.mu.Unlock()

		if r.dispatch() {
			r.metrics.DriveCall(true)
			return true
		}

		now := time.Now()
		if bounded && !now.Before(deadline) {
			r.metrics.DriveCall(false)
			return false
		}
		wait, ok := r.nextWait(now)
		if bounded {
			if d := deadline.Sub(now); !ok || d < wait {
				wait, ok = d, true
			}
		}
		if r.maxIdle > 0 && (!ok || wait > r.maxIdle) {
			wait, ok = r.maxIdle, true
		}

		var expire <-chan time.Time
		if ok {
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			expire = timer.C
		}

		select {
		case <-r.wake:
		case <-stopCh:
		case <-expire:
		case <-done:
			r.metrics.DriveCall(false)
			return false
		}
	}
}

// nextWait returns the time until the earliest pending expiry.
func (r *Reactor) nextWait(now time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready.Length() > 0 || len(r.abandoned) > 0 {
		return 0, true
	}
	if len(r.timers) == 0 {
		return 0, false
	}
	d := r.timers[0].when.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// dispatch moves due timers to the ready queue and runs them. It returns
// whether any handler ran.
func (r *Reactor) dispatch() bool {
	release := r.acquire()
	defer release()

	now := time.Now()
	r.mu.Lock()
	for len(r.timers) > 0 && !r.timers[0].when.After(now) {
		r.ready.Add(heap.Pop(&r.timers))
	}
	abandoned := r.abandoned
	r.abandoned = nil
	n := r.ready.Length()
	r.mu.Unlock()

	did := false
	for _, s := range abandoned {
		if r.claim(s) {
			r.invoke(s, api.ErrCancelled)
			did = true
		}
	}

	// Only the batch that was due on entry; timers made due by handlers wait
	// for the next drive call.
	for i := 0; i < n; i++ {
		r.mu.Lock()
		if r.ready.Length() == 0 {
			r.mu.Unlock()
			break
		}
		s := r.ready.Remove().(*timerState)
		claimed := s.state.CompareAndSwap(statePending, stateFiring)
		r.mu.Unlock()
		if claimed {
			r.invoke(s, nil)
			did = true
		}
	}
	return did
}

// claim takes a pending timer out of the heap and marks it firing.
func (r *Reactor) claim(s *timerState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !s.state.CompareAndSwap(statePending, stateFiring) {
		return false
	}
	if s.index >= 0 {
		heap.Remove(&r.timers, s.index)
	}
	return true
}

// invoke runs the handler of a firing timer and marks it done.
func (r *Reactor) invoke(s *timerState, err error) {
	h := s.handler
	if err == nil {
		s.expired.Store(true)
	}
	defer func() {
		s.handler = nil
		s.state.Store(stateDone)
		r.metrics.TimerFired(outcome(err))
		if p := recover(); p != nil {
			r.metrics.HandlerPanic()
			r.logger.Error("timer handler panicked",
				zap.Any("panic", p),
				zap.Uint64("timer_seq", s.seq))
			if !r.recoverPanics {
				panic(p)
			}
		}
	}()
	h(err)
}

// acquire takes the dispatch right, or returns a no-op release when the
// calling goroutine already holds it.
func (r *Reactor) acquire() func() {
	g := goroutineID()
	if r.dispatchG.Load() == g {
		return func() {}
	}
	r.dispatchMu.Lock()
	r.dispatchG.Store(g)
	return func() {
		r.dispatchG.Store(0)
		r.dispatchMu.Unlock()
	}
}

// abandon queues a timer whose handle was collected while pending.
func (r *Reactor) abandon(s *timerState) {
	r.mu.Lock()
	queued := false
	if s.state.Load() == statePending && !s.abandoned {
		s.abandoned = true
		r.abandoned = append(r.abandoned, s)
		queued = true
	}
	r.mu.Unlock()
	if queued {
		r.logger.Debug("timer handle dropped while pending", zap.Uint64("timer_seq", s.seq))
		r.notify()
	}
}

func (r *Reactor) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func outcome(err error) string {
	switch err {
	case nil:
		return metrics.OutcomeExpired
	case api.ErrReactorStopped:
		return metrics.OutcomeStopped
	default:
		return metrics.OutcomeCancelled
	}
}
