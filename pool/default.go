package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// Default returns a process-wide BytePool so copy loops that are not handed
// a pool still share scratch buffers.
func Default() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool()
	})
	return defaultPool
}
