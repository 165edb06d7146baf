package rcu

import "sync/atomic"

// statCounters are the container's monotone operation counters. They
// are updated with atomic adds off the reader fast path, so Stats is
// safe to call at any time.
type statCounters struct {
	copiesAllocated   atomic.Uint64
	copiesReused      atomic.Uint64
	versionsPublished atomic.Uint64
	updatesApplied    atomic.Uint64
}

// Stats is a snapshot of a container's operation counters.
type Stats struct {
	// CopiesAllocated counts private copies that required a fresh
	// allocation because the free pool was empty.
	CopiesAllocated uint64

	// CopiesReused counts private copies served from the free pool.
	// A nonzero value demonstrates version storage being recycled.
	CopiesReused uint64

	// VersionsPublished counts publications (pointer swaps).
	VersionsPublished uint64

	// UpdatesApplied counts update closures executed. At quiescence this
	// equals the number of Update calls that have returned plus the
	// number of TryUpdate calls that returned true. Every
	// publication carries at least one update, so UpdatesApplied >=
	// VersionsPublished, with the gap measuring coalescing.
	UpdatesApplied uint64
}

// Stats returns a point-in-time snapshot of the container's counters.
// Individual counters are read atomically; the snapshot as a whole is
// not taken under any lock and may straddle in-flight updates.
func (p *Protected[T]) Stats() Stats {
	return Stats{
		CopiesAllocated:   p.stats.copiesAllocated.Load(),
		CopiesReused:      p.stats.copiesReused.Load(),
		VersionsPublished: p.stats.versionsPublished.Load(),
		UpdatesApplied:    p.stats.updatesApplied.Load(),
	}
}
