// Package readers implements the per-goroutine reader registry scanned for quiescence.
//
// Each goroutine participating in read-side critical sections owns one
// Slot, lazily adopted on first use and keyed by goroutine ID. A read
// lock is one atomic store into the slot (the mark word), a read unlock
// is one atomic store of zero. There is no read-modify-write on the
// reader path and slots are padded to separate cache lines, so readers
// never contend with each other.
//
// # Quiescence scan
//
// The elected writer calls EpochIsClear to test whether any reader is
// still pinned to a given epoch. The scan walks every slot ever adopted
// and compares against the single mark word for that epoch. A stale zero
// is safe (the reader has in fact exited); a stale mark merely delays
// reclamation. The scan is infrequent (gated by the retirement
// threshold), so its O(slots) cost is amortized.
//
// # Slot recycling
//
// Goroutine IDs are never reused by the runtime, but goroutines die.
// Slots of dead goroutines are reclaimed by parsing the runtime's
// all-goroutine stack dump for live IDs, every cleanupInterval
// adoptions, so the dump's cost is amortized and steady-state readers
// never pay it. A goroutine that exits while its
// slot still shows reading has violated the read-lock discipline; its
// slot is leaked on purpose (reclaiming it could unpin an epoch that a
// copied guard still relies on) and surfaced via Leaked for tests.
package readers
