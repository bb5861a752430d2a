// Package stream builds on the api.Source / api.Sink contract: the Put
// helper that turns partial writes into all-or-error, in-memory and io
// adapters, a context-aware copy loop (Pump), a producer/consumer runner
// around a BoundedBuffer (Pipe) and a rate-limited sink.
package stream
