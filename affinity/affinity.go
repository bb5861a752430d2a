// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in affinity_linux.go and affinity_other.go.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-core/api"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to cpuID. The returned func undoes both. On failure the goroutine is left
// unlocked.
func Pin(cpuID int) (func(), error) {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "affinity: cpu out of range").
			WithContext("cpu", cpuID).
			WithContext("cpus", runtime.NumCPU()).
			Wrap(api.ErrInvalidArgument)
	}
	runtime.LockOSThread()
	restore, err := setAffinityPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		restore()
		runtime.UnlockOSThread()
	}, nil
}
