package rcu

import "runtime"

// defaultFlushThreshold bounds closures applied per publication. Without
// a bound, a continuous stream of enqueuing writers could defer
// publication indefinitely and readers would keep observing stale state.
const defaultFlushThreshold = 20

// defaultQueueFactor sizes the update queue as a multiple of
// GOMAXPROCS. Enqueue blocks when the queue is full, so the capacity
// must exceed any realistic burst of concurrent writers.
const defaultQueueFactor = 512

type config[T any] struct {
	queueCapacity    int
	flushThreshold   int
	cleanupThreshold int
	copyFn           func(dst, src *T)
}

func defaultConfig[T any]() config[T] {
	procs := runtime.GOMAXPROCS(0)
	return config[T]{
		queueCapacity:    defaultQueueFactor * procs,
		flushThreshold:   defaultFlushThreshold,
		cleanupThreshold: procs,
		copyFn:           func(dst, src *T) { *dst = *src },
	}
}

// Option configures a Protected container at construction.
type Option[T any] func(*config[T])

// WithQueueCapacity sets the update-queue capacity, rounded up to a
// power of two. Values below 2 are raised to 2. Writers enqueueing into
// a full queue block until the elected writer drains it.
func WithQueueCapacity[T any](n int) Option[T] {
	return func(c *config[T]) { c.queueCapacity = n }
}

// WithFlushThreshold sets how many queued closures the elected writer
// applies to one private copy before it must publish. Lower values give
// readers fresher state; higher values coalesce more updates per
// publication. Values below 1 are treated as 1.
func WithFlushThreshold[T any](n int) Option[T] {
	return func(c *config[T]) {
		if n < 1 {
			n = 1
		}
		c.flushThreshold = n
	}
}

// WithCleanupThreshold sets how many retirements accumulate in the
// current epoch before the writer probes for quiescence. Lower values
// reclaim sooner but scan the reader registry more often. Values below
// 1 are treated as 1.
func WithCleanupThreshold[T any](n int) Option[T] {
	return func(c *config[T]) { c.cleanupThreshold = n }
}

// WithCopyFunc replaces the default shallow copy (*dst = *src) used to
// initialize the writer's private copy from the live value. Types that
// own reference state (slices, maps, pointers) need a deep copy here,
// or a pooled copy would share structure with a published version.
func WithCopyFunc[T any](fn func(dst, src *T)) Option[T] {
	return func(c *config[T]) { c.copyFn = fn }
}
