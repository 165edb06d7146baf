package rcu

import (
	"sync/atomic"

	"github.com/alphadose/zenq/v2"

	"github.com/waker-he/writeboost-rcu/internal/rcu/readers"
	"github.com/waker-he/writeboost-rcu/internal/rcu/retire"
)

const messageNilInitial = "rcu: initial value must not be nil"

// Protected guards a single heap value of type T.
//
// Readers call Read for a pinned snapshot; writers call Update with a
// closure that mutates a private copy. The zero value is not usable;
// construct with New.
type Protected[T any] struct {
	// current is the publication point: the pointer to the live T.
	// Readers load it, the elected writer exchanges it. No other access.
	current atomic.Pointer[T]

	// epoch is the current epoch bit (0 or 1). Readers capture it at
	// lock time; the elected writer flips it on each reclamation cycle.
	epoch atomic.Uint32

	// updates counts outstanding updates since a writer was last
	// elected. The increment observing zero elects; the elected writer
	// releases with a CAS to zero.
	updates atomic.Uint64

	// queue carries update closures from losing writers to the elected
	// one. Enqueue parks when full (backpressure), dequeue parks until
	// the producer that incremented updates has written.
	queue *zenq.ZenQ[func(*T)]

	// readers is this container's reader registry. Per-container, so
	// unrelated containers never share slots.
	readers *readers.Registry

	// writer is the writer-private reclamation state, serialized by the
	// election. Only the elected writer touches it.
	writer *retire.State[T]

	copyFn func(dst, src *T)
	flush  uint64

	stats statCounters
}

// New returns a container owning initial as its live value.
//
// initial must be heap-allocated and must not be used by the caller
// after New returns; the container owns it. Panics if initial is nil.
func New[T any](initial *T, opts ...Option[T]) *Protected[T] {
	if initial == nil {
		panic(messageNilInitial)
	}

	cfg := defaultConfig[T]()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Protected[T]{
		queue:   zenq.New[func(*T)](ceilPow2(cfg.queueCapacity)),
		readers: readers.NewRegistry(),
		copyFn:  cfg.copyFn,
		flush:   uint64(cfg.flushThreshold),
	}
	p.writer = retire.NewState[T](&p.epoch, cfg.cleanupThreshold)
	p.current.Store(initial)
	return p
}

// Read acquires a read lock and returns a guard pinning a snapshot of
// the protected value. The snapshot is immutable and stays valid until
// Release; release promptly, long critical sections defer reclamation.
//
// Once the calling goroutine holds a reader slot, Read does not block.
// A goroutine's first Read on a container adopts a slot under the
// registry mutex, and a periodic adoption also scans the runtime's
// goroutine dump for dead owners. The guard is confined to
// the calling goroutine, which must not call Read again before
// releasing it.
func (p *Protected[T]) Read() *ReadGuard[T] {
	slot := p.readers.Enter(uint8(p.epoch.Load()))
	return &ReadGuard[T]{
		val:  p.current.Load(),
		slot: slot,
	}
}

// Update applies fn to the protected value at the next publication.
//
// If no writer is active, the caller is elected: it applies fn to a
// private copy first, then drains closures enqueued by concurrent
// callers, publishing batches until no update is outstanding. Otherwise
// fn is enqueued for the elected writer and Update returns immediately;
// the caller observes its own update from any Read that begins after
// the corresponding publication.
//
// fn receives the private copy and must not retain the pointer, call
// Read on this container, or panic. Update blocks only when the update
// queue is full.
func (p *Protected[T]) Update(fn func(*T)) {
	if copied := p.tryRegister(); copied != nil {
		// Elected. The caller's own update runs first, inline, so it is
		// part of the very next publication.
		fn(copied)
		p.stats.updatesApplied.Add(1)
		p.drainUpdates(copied)
		return
	}
	p.queue.Write(fn)
}

// TryUpdate is the non-blocking variant of Update: it applies fn only
// if the caller wins the writer election outright, reporting whether
// the update was applied. It never enqueues and never blocks on a full
// queue; a false return means a writer was already active.
func (p *Protected[T]) TryUpdate(fn func(*T)) bool {
	if !p.updates.CompareAndSwap(0, 1) {
		return false
	}
	copied := p.getCopy()
	fn(copied)
	p.stats.updatesApplied.Add(1)
	p.drainUpdates(copied)
	return true
}

// tryRegister enters the writer election. The increment that observes a
// prior count of zero wins and gets a private copy to mutate; losers
// get nil and must enqueue.
func (p *Protected[T]) tryRegister() *T {
	if p.updates.Add(1) == 1 {
		return p.getCopy()
	}
	return nil
}

// getCopy produces the writer's next private copy of the live value,
// reusing pooled storage when the free pool has any.
func (p *Protected[T]) getCopy() *T {
	copied, reused := p.writer.GetCopy(p.current.Load(), p.copyFn)
	if reused {
		p.stats.copiesReused.Add(1)
	} else {
		p.stats.copiesAllocated.Add(1)
	}
	return copied
}

// drainUpdates is the elected writer's loop: drain queued closures into
// the private copy, publish, retire the old version, and release the
// election once no update is outstanding.
//
// done counts closures applied since election (the elector's own update
// counts as one). The drain is bounded by the flush threshold per
// publication so a continuous stream of writers cannot defer
// publication indefinitely.
func (p *Protected[T]) drainUpdates(copied *T) {
	done := uint64(1)
	updateCnt := p.updates.Load()
	for {
		unflushed := uint64(0)
		for {
			for done < updateCnt {
				// The producer that incremented updates is obligated to
				// enqueue, so this blocking read is bounded.
				fn, _ := p.queue.Read()
				fn(copied)
				p.stats.updatesApplied.Add(1)
				done++
				if unflushed++; unflushed == p.flush {
					break
				}
			}
			if unflushed == p.flush {
				break
			}
			updateCnt = p.updates.Load()
			if done == updateCnt {
				break
			}
		}

		old := p.current.Swap(copied)
		p.stats.versionsPublished.Add(1)
		p.writer.Retire(old, p.readers.EpochIsClear)

		// Release the election only if nothing new arrived since the
		// last count we drained to. A failed CAS means updates grew; we
		// stay elected and loop. The counter can only grow while we
		// hold the election, so the retry terminates.
		if done == updateCnt && p.updates.CompareAndSwap(updateCnt, 0) {
			return
		}

		copied = p.getCopy()
	}
}

// ceilPow2 rounds n up to the next power of two. The queue requires a
// power-of-two capacity.
func ceilPow2(n int) uint32 {
	if n < 2 {
		return 2
	}
	v := uint32(n - 1)
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}
