// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-classed scratch buffer pool used by copy loops such as stream.Pump.

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-core/api"
)

const (
	minClassShift = 6  // 64 B
	maxClassShift = 20 // 1 MiB
	classCount    = maxClassShift - minClassShift + 1
)

// BytePool hands out []byte slices from power-of-two size classes.
// Requests above the largest class are allocated directly and never pooled.
type BytePool struct {
	classes [classCount]sync.Pool

	acquired atomic.Int64
	released atomic.Int64
	allocs   atomic.Int64
}

// NewBytePool returns an empty pool.
func NewBytePool() *BytePool {
	return &BytePool{}
}

// classFor returns the class index holding n bytes, or -1 if n is too large.
func classFor(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Acquire returns a slice of exactly n bytes. Contents are unspecified.
func (p *BytePool) Acquire(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	p.acquired.Add(1)
	idx := classFor(n)
	if idx < 0 {
		p.allocs.Add(1)
		return make([]byte, n)
	}
	if v := p.classes[idx].Get(); v != nil {
		buf := *(v.(*[]byte))
		return buf[:n]
	}
	p.allocs.Add(1)
	return make([]byte, n, 1<<(idx+minClassShift))
}

// Release returns buf to its class. Slices whose capacity is not an exact
// class size, including ones not obtained from this pool, are dropped.
func (p *BytePool) Release(buf []byte) {
	c := cap(buf)
	if c == 0 || c&(c-1) != 0 {
		return
	}
	idx := classFor(c)
	if idx < 0 || 1<<(idx+minClassShift) != c {
		return
	}
	p.released.Add(1)
	buf = buf[:c]
	p.classes[idx].Put(&buf)
}

// Stats reports acquire, release and allocation counts.
func (p *BytePool) Stats() api.BytePoolStats {
	return api.BytePoolStats{
		Acquired: p.acquired.Load(),
		Released: p.released.Load(),
		Allocs:   p.allocs.Load(),
	}
}

var _ api.BytePool = (*BytePool)(nil)
