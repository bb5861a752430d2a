// File: api/stream.go
// Author: momentics <momentics@gmail.com>
//
// Pull-based byte stream contract shared by buffers, in-memory streams and
// platform bindings.

package api

import (
	"math"
	"time"
)

// NoTimeout makes Source.Read wait until data arrives or the source closes.
const NoTimeout = time.Duration(math.MaxInt64)

// Source is the read half of the stream contract.
//
// Read returns:
//   - n > 0, nil       some bytes (possibly fewer than len(dst))
//   - 0, ErrTimeout    nothing arrived before the timeout, source still open
//   - 0, io.EOF        source closed and fully drained
//
// A timeout <= 0 checks once without waiting.
type Source interface {
	IsOpen() bool
	Read(dst []byte, timeout time.Duration) (int, error)
	Close() error
}

// Sink is the write half of the stream contract.
//
// WriteSome may accept fewer bytes than offered; the caller loops (or uses
// stream.Put). A closed sink returns 0, io.EOF and must not be retried.
type Sink interface {
	IsOpen() bool
	WriteSome(src []byte) (int, error)
	Flush() error
	Close() error
}

// Stream is a buffer that is both a Source and a Sink.
type Stream interface {
	Source
	Sink
}
