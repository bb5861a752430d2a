// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the hioload-core primitives.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrTimeout is the "null" read outcome: the deadline passed with no data
	// and the source is still open. It is distinct from io.EOF.
	ErrTimeout error = &timeoutError{}

	// ErrCancelled is delivered to a timer handler that was cancelled before it expired.
	ErrCancelled = errors.New("timer cancelled")

	// ErrReactorStopped is delivered to handlers discarded by Reactor.Shutdown.
	ErrReactorStopped = errors.New("reactor is stopped")

	ErrClosed          = errors.New("stream is closed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
)

// timeoutError mirrors the net.Error convention so callers may test Timeout().
type timeoutError struct{}

func (*timeoutError) Error() string   { return "operation timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

// IsTimeout reports whether err is (or wraps) a timeout outcome.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeEOF
	ErrCodeTimeout
	ErrCodeCancelled
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches the cause returned by Unwrap.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
