// File: core/timeout/index.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reverse index: expiry instant -> set of values, ordered by a min-heap of
// distinct instants.

package timeout

// bucket holds every value sharing one expiry instant.
type bucket[T comparable] struct {
	at     int64 // nanoseconds since the registry epoch
	values map[T]struct{}
	index  int // position in the heap, -1 once popped
}

// bucketHeap implements heap.Interface over buckets.
type bucketHeap[T comparable] []*bucket[T]

func (h bucketHeap[T]) Len() int           { return len(h) }
func (h bucketHeap[T]) Less(i, j int) bool { return h[i].at < h[j].at }

func (h bucketHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *bucketHeap[T]) Push(x any) {
	b := x.(*bucket[T])
	b.index = len(*h)
	*h = append(*h, b)
}

func (h *bucketHeap[T]) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	b.index = -1
	*h = old[:n-1]
	return b
}
