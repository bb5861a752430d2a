// File: core/timeout/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry tracks expirations for many independent values without one timer
// per value. Two coupled indexes are kept in lockstep: value -> expiry and
// expiry -> set of values.
//
// A Registry is a plain data structure: it never blocks, starts no goroutines
// and is not safe for concurrent use. Sweeper adds locking and a reactor timer.

package timeout

import (
	"container/heap"
	"time"

	"github.com/momentics/hioload-core/api"
)

// Registry is a time-indexed set of tracked values.
type Registry[T comparable] struct {
	clock   api.Clock
	epoch   time.Time
	forward map[T]int64
	reverse map[int64]*bucket[T]
	order   bucketHeap[T]
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	clock api.Clock
}

// WithClock replaces the system clock, mainly for tests.
func WithClock(c api.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// NewRegistry creates an empty registry.
func NewRegistry[T comparable](opts ...Option) *Registry[T] {
	o := options{clock: api.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[T]{
		clock:   o.clock,
		epoch:   o.clock.Now(),
		forward: make(map[T]int64),
		reverse: make(map[int64]*bucket[T]),
	}
}

// Insert (re)arms v to expire d from now. It reports whether v was already
// tracked, in which case its previous expiry is discarded. A zero or
// negative d makes v immediately eligible for Poll.
func (r *Registry[T]) Insert(v T, d time.Duration) bool {
	return r.InsertAt(v, r.clock.Now().Add(d))
}

// InsertAt (re)arms v to expire at the absolute time at.
func (r *Registry[T]) InsertAt(v T, at time.Time) bool {
	refreshed := r.remove(v)
	key := int64(at.Sub(r.epoch))
	b, ok := r.reverse[key]
	if !ok {
		b = &bucket[T]{at: key, values: make(map[T]struct{}, 1)}
		r.reverse[key] = b
		heap.Push(&r.order, b)
	}
	b.values[v] = struct{}{}
	r.forward[v] = key
	return refreshed
}

// Erase stops tracking v and reports whether it was present.
func (r *Registry[T]) Erase(v T) bool {
	return r.remove(v)
}

// Contains reports whether v is tracked.
func (r *Registry[T]) Contains(v T) bool {
	_, ok := r.forward[v]
	return ok
}

// Expiry returns the absolute expiry of v.
func (r *Registry[T]) Expiry(v T) (time.Time, bool) {
	key, ok := r.forward[v]
	if !ok {
		return time.Time{}, false
	}
	return r.epoch.Add(time.Duration(key)), true
}

// Len returns the number of tracked values.
func (r *Registry[T]) Len() int {
	return len(r.forward)
}

// NextExpiry returns the earliest expiry, if any value is tracked.
func (r *Registry[T]) NextExpiry() (time.Time, bool) {
	if len(r.order) == 0 {
		return time.Time{}, false
	}
	return r.epoch.Add(time.Duration(r.order[0].at)), true
}

// Poll removes and returns every value whose expiry is at or before now.
func (r *Registry[T]) Poll() []T {
	return r.PollAt(r.clock.Now())
}

// PollAt removes and returns every value whose expiry is at or before now.
// Values come out in non-decreasing expiry order; values sharing an instant
// are returned together in unspecified order.
func (r *Registry[T]) PollAt(now time.Time) []T {
	limit := int64(now.Sub(r.epoch))
	var out []T
	for len(r.order) > 0 && r.order[0].at <= limit {
		b := heap.Pop(&r.order).(*bucket[T])
		delete(r.reverse, b.at)
		for v := range b.values {
			if at, ok := r.forward[v]; !ok || at != b.at {
				panic(corruption("forward index disagrees with expiry bucket", b.at))
			}
			delete(r.forward, v)
			out = append(out, v)
		}
	}
	return out
}

// remove drops v from both indexes.
func (r *Registry[T]) remove(v T) bool {
	key, ok := r.forward[v]
	if !ok {
		return false
	}
	b, ok := r.reverse[key]
	if !ok {
		panic(corruption("value has no expiry bucket", key))
	}
	if _, ok := b.values[v]; !ok {
		panic(corruption("expiry bucket is missing value", key))
	}
	delete(r.forward, v)
	delete(b.values, v)
	if len(b.values) == 0 {
		heap.Remove(&r.order, b.index)
		delete(r.reverse, key)
	}
	return true
}

func corruption(msg string, key int64) *api.Error {
	return api.NewError(api.ErrCodeInternal, "timeout registry: "+msg).
		WithContext("expiry_ns", key)
}
