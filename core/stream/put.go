// File: core/stream/put.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"errors"
	"io"
	"time"

	"github.com/momentics/hioload-core/api"
)

// Put writes all of p to sink, looping over WriteSome until every byte has
// been accepted. If the sink closes first the returned *api.Error wraps
// io.EOF and carries the number of bytes written in its "written" context.
func Put(sink api.Sink, p []byte) error {
	_, err := writeAll(sink, p)
	return err
}

// PutString is Put for strings.
func PutString(sink api.Sink, s string) error {
	return Put(sink, []byte(s))
}

// Written returns how many bytes a failed Put delivered before the error.
func Written(err error) (int, bool) {
	var e *api.Error
	if !errors.As(err, &e) {
		return 0, false
	}
	n, ok := e.Context["written"].(int)
	return n, ok
}

func writeAll(sink api.Sink, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := sink.WriteSome(p[written:])
		written += n
		if err != nil {
			return written, api.NewError(api.ErrCodeEOF, "sink closed during put").
				WithContext("written", written).
				WithContext("remaining", len(p)-written).
				Wrap(err)
		}
		if n == 0 {
			return written, api.NewError(api.ErrCodeInternal, "sink accepted no bytes").
				WithContext("written", written).
				Wrap(io.ErrNoProgress)
		}
	}
	return written, nil
}

// ReadAll reads from src until it reports io.EOF, waiting at most timeout
// for each chunk. A clean end of stream returns a nil error; a timeout
// returns the bytes gathered so far together with api.ErrTimeout.
func ReadAll(src api.Source, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, 512)
	for {
		if len(out) == cap(out) {
			out = append(out, 0)[:len(out)]
		}
		n, err := src.Read(out[len(out):cap(out)], timeout)
		out = out[:len(out)+n]
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
