//go:build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-core/api"
)

func setAffinityPlatform(cpuID int) (func(), error) {
	return nil, fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrNotSupported)
}

// Current is not supported on this platform.
func Current() ([]int, error) {
	return nil, api.ErrNotSupported
}
