// File: reactor/goroutine.go
// Author: momentics <momentics@gmail.com>
//
// Goroutine identity, used only to recognise re-entrant drive and cancel
// calls made from inside a handler.

package reactor

import "runtime"

// goroutineID parses the current goroutine's ID from its stack header
// ("goroutine 123 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
