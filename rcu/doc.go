// Package rcu provides a write-biased Read-Copy-Update container.
//
// Protected guards a single heap value of type T for workloads with
// many concurrent readers and contended writers. Readers obtain a
// consistent snapshot with near-zero overhead: one atomic store into a
// goroutine-private slot, one atomic pointer load, and one atomic store
// to release. Writers never block readers; they mutate a private copy
// and publish it atomically.
//
// # Architecture
//
// The container is built from five cooperating pieces:
//
//  1. Current-version cell: an atomic.Pointer[T], the single
//     publication point. Readers load it; the elected writer swaps it.
//  2. Reader registry: one padded slot per reader goroutine holding
//     (reading, epoch) as a single word, scanned by the writer to test
//     quiescence (internal/rcu/readers).
//  3. Writer election: an atomic counter. The increment that observes
//     zero elects the caller as the writer; everyone else enqueues its
//     update closure to a bounded MPMC queue (zenq) and returns.
//  4. Epoch-partitioned retire lists and free pool: retired versions
//     wait, bucketed by epoch, until no reader can still observe them,
//     then recycle as copy storage (internal/rcu/retire).
//  5. The drain loop: the elected writer applies its own closure, drains
//     queued closures into the private copy, publishes, retires the old
//     version, and releases the election with a CAS of the counter to
//     zero - looping if more updates arrived meanwhile.
//
// Coalescing is the point: under write contention a single publication
// carries many updates, so the per-writer cost of copy/publish/reclaim
// amortizes across the batch. Publication is bounded by a flush
// threshold so a continuous stream of writers cannot starve readers of
// fresh state.
//
// # Ordering
//
// Go's sync/atomic operations are sequentially consistent, which
// subsumes the discipline this algorithm needs: release on publish
// paired with acquire on the reader's pointer load, an acquire edge
// after winning the election (pairing with the previous writer's
// counter release), and release on the counter CAS to zero. Everything
// the elected writer wrote to the private copy happens before any
// reader's observation of that version. The reader slot stores and the
// quiescence scan need only eventual visibility; a stale idle word can
// only under-report a reader that has in fact exited, and a stale
// reading word only delays reclamation.
//
// # Discipline
//
// A goroutine must release its ReadGuard before acquiring another;
// guards must not cross goroutines. Update closures must not block on
// the container (calling Update from inside a closure is fine - it
// enqueues for the next publication - but Read would self-deadlock the
// writer's quiescence in the worst case and is forbidden). Closures
// must not panic; a panicking closure wedges the container.
//
// # Memory
//
// Pending retired versions are unbounded if a reader stalls inside a
// critical section: reclamation is deferred, never unsafe. Keep
// critical sections short.
package rcu
