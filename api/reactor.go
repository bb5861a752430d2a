// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for caller-driven reactors that dispatch
// timed callbacks.

package api

import (
	"context"
	"time"
)

// Driver is the caller-facing drive surface of a reactor. Every method may
// execute ready callbacks on the calling goroutine.
type Driver interface {
	Poll() bool
	RunOne() bool
	RunOneUntil(deadline time.Time) bool
	RunUntil(deadline time.Time) bool
	RunFor(d time.Duration) bool
	Run(ctx context.Context) error
	Stop()
}
