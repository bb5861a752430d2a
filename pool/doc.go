// Package pool
// Author: momentics <momentics@gmail.com>
//
// Scratch byte buffers for copy loops. BytePool keeps one sync.Pool per
// power-of-two size class; Default returns the process-wide instance used
// by stream.Pump when no pool is supplied.
package pool
