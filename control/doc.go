// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload and debug introspection layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Config loading from YAML with HIOLOAD_* environment overrides
//   - ConfigStore snapshots with reload listeners
//   - FileWatcher polling a config file from reactor timers
//   - Flat metrics snapshots and named debug probes
//
// Platform probes are build-tag-partitioned.
package control
