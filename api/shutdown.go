// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own pending work.
type GracefulShutdown interface {
	// Shutdown stops the component and releases everything it still holds.
	Shutdown() error
}
