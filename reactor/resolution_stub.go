//go:build !linux
// +build !linux

// File: reactor/resolution_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback resolution for platforms without a clock_getres probe.

package reactor

import "time"

// Resolution reports a conservative timer resolution.
func Resolution() time.Duration {
	return defaultResolution
}
