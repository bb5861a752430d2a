// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-core components.

package benchmarks

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-core/api"
	"github.com/momentics/hioload-core/core/buffer"
	"github.com/momentics/hioload-core/core/stream"
	"github.com/momentics/hioload-core/core/timeout"
	"github.com/momentics/hioload-core/facade"
	"github.com/momentics/hioload-core/pool"
	"github.com/momentics/hioload-core/reactor"
)

// BenchmarkBytePoolAcquire tests scratch buffer reuse under contention.
func BenchmarkBytePoolAcquire(b *testing.B) {
	p := pool.NewBytePool()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := p.Acquire(4096)
			p.Release(buf)
		}
	})
}

// BenchmarkBufferThroughput moves b.N chunks through a bounded buffer.
func BenchmarkBufferThroughput(b *testing.B) {
	for _, capacity := range []int{64, 4096, 64 * 1024} {
		b.Run(strconv.Itoa(capacity), func(b *testing.B) {
			const chunk = 1024
			buf := buffer.New(capacity)
			payload := make([]byte, chunk)
			b.SetBytes(chunk)

			done := make(chan struct{})
			go func() {
				defer close(done)
				dst := make([]byte, chunk)
				for {
					if _, err := buf.Read(dst, api.NoTimeout); err == io.EOF {
						return
					}
				}
			}()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := stream.Put(buf, payload); err != nil {
					b.Fatal(err)
				}
			}
			_ = buf.Close()
			<-done
		})
	}
}

// BenchmarkReactorScheduleCancel measures the timer register/cancel cycle.
func BenchmarkReactorScheduleCancel(b *testing.B) {
	r := reactor.New()
	noop := func(error) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t := r.ScheduleAfter(time.Hour, noop)
		t.Cancel()
	}
}

// BenchmarkReactorDispatch measures Poll over already expired timers.
func BenchmarkReactorDispatch(b *testing.B) {
	r := reactor.New()
	noop := func(error) {}
	past := time.Now().Add(-time.Second)
	handles := make([]*reactor.Timer, 0, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handles = append(handles, r.ScheduleAt(past, noop))
		if len(handles) == cap(handles) {
			r.Poll()
			handles = handles[:0]
		}
	}
	r.Poll()
}

// BenchmarkRegistryInsertPoll refreshes and expires values in a registry.
func BenchmarkRegistryInsertPoll(b *testing.B) {
	reg := timeout.NewRegistry[int]()
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.InsertAt(i%4096, now.Add(time.Duration(i%97)*time.Millisecond))
		if i%4096 == 4095 {
			reg.PollAt(now.Add(time.Second))
		}
	}
}

// BenchmarkFacadePump tests end-to-end copying through the runtime.
func BenchmarkFacadePump(b *testing.B) {
	rt, err := facade.New(nil, facade.WithLogger(zap.NewNop()))
	if err != nil {
		b.Fatal(err)
	}
	if err := rt.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	defer rt.Shutdown()

	data := make([]byte, 256*1024)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rt.Pump(context.Background(), stream.NewMemorySource(data), stream.NewMemorySink(0)); err != nil {
			b.Fatal(err)
		}
	}
}
