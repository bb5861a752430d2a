// File: api/clock.go
// Author: momentics <momentics@gmail.com>
//
// Time source abstraction used by timeout bookkeeping.

package api

import "time"

// Clock returns the current monotonic time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
