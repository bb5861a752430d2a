//go:build linux
// +build linux

// File: reactor/resolution_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux clock_getres(2)-based timer resolution probe.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Resolution reports the resolution of the monotonic clock that bounds how
// precisely timers can fire.
func Resolution() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return defaultResolution
	}
	if d := time.Duration(ts.Nano()); d > 0 {
		return d
	}
	return time.Nanosecond
}
