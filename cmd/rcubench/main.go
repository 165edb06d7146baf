// Package main implements the rcubench throughput driver.
//
// rcubench runs a configurable mix of reader and writer goroutines
// against a Protected[uint64] for a fixed duration and reports per-role
// throughput plus the container's internal counters. With --compare it
// repeats the same workload against a plain RWMutex guard, the baseline
// this primitive is designed to beat under write contention.
//
// Usage:
//
//	rcubench --readers 8 --writers 4 --duration 5s
//	rcubench --readers 16 --writers 16 --compare
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/waker-he/writeboost-rcu/rcu"
)

var (
	readers  = pflag.Int("readers", 8, "reader goroutines")
	writers  = pflag.Int("writers", 4, "writer goroutines")
	duration = pflag.Duration("duration", 5*time.Second, "measurement window")
	payload  = pflag.Int("payload", 8, "protected value size in 8-byte words")
	compare  = pflag.Bool("compare", false, "also run the RWMutex baseline")
	queueCap = pflag.Int("queue-cap", 0, "update queue capacity (0 = default)")
	flush    = pflag.Int("flush", 0, "flush threshold (0 = default)")
)

// payloadValue is the protected value: a counter plus padding words so
// --payload controls the cost of each private copy.
type payloadValue struct {
	counter uint64
	words   []uint64
}

// guard is the operation surface a workload drives, implemented by the
// RCU container and by the RWMutex baseline.
type guard interface {
	read() uint64
	update()
}

func main() {
	pflag.Parse()
	if *readers < 0 || *writers < 0 || *payload < 1 {
		fmt.Fprintln(os.Stderr, "rcubench: --readers and --writers must be >= 0, --payload >= 1")
		os.Exit(1)
	}

	fmt.Printf("rcubench: %d readers, %d writers, %s, payload %d words\n\n",
		*readers, *writers, *duration, *payload)

	run("wbrcu", newRCUGuard())
	if *compare {
		fmt.Println()
		run("rwmutex", newRWMutexGuard())
	}
}

// run drives one workload against g and prints its report.
func run(name string, g guard) {
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var readOps, writeOps atomic.Uint64
	var eg errgroup.Group

	for i := 0; i < *readers; i++ {
		eg.Go(func() error {
			var ops uint64
			for ctx.Err() == nil {
				_ = g.read()
				ops++
			}
			readOps.Add(ops)
			return nil
		})
	}
	for i := 0; i < *writers; i++ {
		eg.Go(func() error {
			var ops uint64
			for ctx.Err() == nil {
				g.update()
				ops++
			}
			writeOps.Add(ops)
			return nil
		})
	}

	start := time.Now()
	if err := eg.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "rcubench: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	secs := elapsed.Seconds()
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("  reads:  %12d  (%.0f ops/s)\n", readOps.Load(), float64(readOps.Load())/secs)
	fmt.Printf("  writes: %12d  (%.0f ops/s)\n", writeOps.Load(), float64(writeOps.Load())/secs)
	if r, ok := g.(*rcuGuard); ok {
		s := r.p.Stats()
		fmt.Printf("  published %d versions for %d updates (%.1fx coalescing)\n",
			s.VersionsPublished, s.UpdatesApplied, coalescing(s))
		fmt.Printf("  copies: %d allocated, %d reused\n", s.CopiesAllocated, s.CopiesReused)
	}
}

func coalescing(s rcu.Stats) float64 {
	if s.VersionsPublished == 0 {
		return 1
	}
	return float64(s.UpdatesApplied) / float64(s.VersionsPublished)
}

// rcuGuard drives the RCU container.
type rcuGuard struct {
	p *rcu.Protected[payloadValue]
}

func newRCUGuard() *rcuGuard {
	opts := []rcu.Option[payloadValue]{
		rcu.WithCopyFunc[payloadValue](func(dst, src *payloadValue) {
			dst.counter = src.counter
			dst.words = append(dst.words[:0], src.words...)
		}),
	}
	if *queueCap > 0 {
		opts = append(opts, rcu.WithQueueCapacity[payloadValue](*queueCap))
	}
	if *flush > 0 {
		opts = append(opts, rcu.WithFlushThreshold[payloadValue](*flush))
	}
	return &rcuGuard{
		p: rcu.New(&payloadValue{words: make([]uint64, *payload-1)}, opts...),
	}
}

func (g *rcuGuard) read() uint64 {
	rg := g.p.Read()
	v := rg.Value().counter
	rg.Release()
	return v
}

func (g *rcuGuard) update() {
	g.p.Update(func(v *payloadValue) {
		v.counter++
		for i := range v.words {
			v.words[i] = v.counter
		}
	})
}

// rwmutexGuard is the baseline: one RWMutex over the same value, reads
// under RLock, updates in place under Lock.
type rwmutexGuard struct {
	mu  sync.RWMutex
	val payloadValue
}

func newRWMutexGuard() *rwmutexGuard {
	return &rwmutexGuard{val: payloadValue{words: make([]uint64, *payload-1)}}
}

func (g *rwmutexGuard) read() uint64 {
	g.mu.RLock()
	v := g.val.counter
	g.mu.RUnlock()
	return v
}

func (g *rwmutexGuard) update() {
	g.mu.Lock()
	g.val.counter++
	for i := range g.val.words {
		g.val.words[i] = g.val.counter
	}
	g.mu.Unlock()
}
