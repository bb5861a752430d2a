// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract pooling APIs for scratch buffer reuse.

package api

// BytePool provides reusable []byte buffers for copy loops.
type BytePool interface {
	// Acquire returns a slice of exactly n bytes.
	Acquire(n int) []byte

	// Release returns a buffer to the pool
	Release(buf []byte)
}

// BytePoolStats aggregates buffer allocation/reuse stats.
type BytePoolStats struct {
	Acquired int64
	Released int64
	Allocs   int64
}
