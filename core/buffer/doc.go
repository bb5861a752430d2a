// Package buffer provides BoundedBuffer, a fixed-capacity byte ring that
// couples one or more producers with one or more consumers. It implements
// both api.Sink and api.Source, so it can sit between any writer and reader
// of the stream contract:
//
//	b := buffer.New(64 * 1024)
//	go func() {
//		defer b.Close()
//		_ = stream.Put(b, payload)
//	}()
//	data, err := stream.ReadAll(b, api.NoTimeout)
package buffer
