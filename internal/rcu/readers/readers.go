package readers

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"golang.org/x/sys/cpu"

	"github.com/waker-he/writeboost-rcu/internal/rcu/mark"
)

const messageNestedReadLock = "rcu: nested read-side critical section on one goroutine"

// cleanupInterval is the number of slot adoptions between scans for dead
// goroutines. Each scan costs roughly one runtime.Stack(all=true) call,
// so the cost is amortized across adoptions.
const cleanupInterval = 512

// Slot is the 1-word reader state for a single goroutine.
//
// The state word holds a mark.Mark: zero when idle, mark.For(epoch)
// while the owner is inside a read-side critical section. Writes are
// plain atomic stores by the owner; the quiescence scan reads the word
// from the elected writer's goroutine.
//
// The trailing pad keeps each slot on its own cache line so that one
// reader's lock/unlock stores never invalidate another reader's line.
type Slot struct {
	state atomic.Uint32
	gid   atomic.Int64
	_     cpu.CacheLinePad
}

// Leave clears the slot, ending the owner's read-side critical section.
//
//go:nosplit
func (s *Slot) Leave() {
	s.state.Store(uint32(mark.Clear))
}

// Reading reports whether the slot currently shows an active reader.
// Used by misuse checks and tests, not by the quiescence scan.
func (s *Slot) Reading() bool {
	return mark.Mark(s.state.Load()).Reading()
}

// Registry tracks every reader slot of one container.
//
// Each container owns its own Registry, so slots are never shared
// between unrelated containers and one container's scan cannot be
// confused by another's readers.
type Registry struct {
	// byGID maps goroutine ID to its adopted *Slot. Loads on the read
	// fast path are lock-free; stores happen once per goroutine.
	byGID sync.Map

	// mu guards the fields below: slot table growth, the free list and
	// the adoption counter. Never taken on the read fast path.
	mu     sync.Mutex
	slots  []*Slot
	free   []*Slot
	adopts uint64
	leaked uint64
}

// NewRegistry returns an empty registry. Slots are adopted lazily on
// each goroutine's first Enter.
func NewRegistry() *Registry {
	return &Registry{}
}

// Enter marks the calling goroutine as reading under the given epoch and
// returns its slot. The caller ends the critical section with Leave on
// the returned slot.
//
// Panics if the goroutine is already inside a read-side critical
// section: slots hold a single mark, so a nested lock would corrupt the
// outer one.
func (r *Registry) Enter(epoch uint8) *Slot {
	gid := goid.Get()

	var s *Slot
	if v, ok := r.byGID.Load(gid); ok {
		s = v.(*Slot)
	} else {
		s = r.adopt(gid)
	}

	if mark.Mark(s.state.Load()).Reading() {
		panic(messageNestedReadLock)
	}
	s.state.Store(uint32(mark.For(epoch)))
	return s
}

// EpochIsClear reports whether no reader slot is pinned to the given
// epoch, i.e. no slot equals mark.For(epoch).
//
// Callable from any goroutine, but in practice only the elected writer
// probes it. Slot words may be observed stale: a stale zero means the
// reader has already exited (safe), a stale mark delays reclamation but
// never permits it early.
func (r *Registry) EpochIsClear(epoch uint8) bool {
	r.mu.Lock()
	slots := r.slots
	r.mu.Unlock()

	want := uint32(mark.For(epoch))
	for _, s := range slots {
		if s.state.Load() == want {
			return false
		}
	}
	return true
}

// adopt assigns a slot to a goroutine on its first Enter. Recycled
// slots are preferred; the table grows when the free list is empty.
// Dead goroutines' slots are reclaimed on the adoption cadence, never
// on the read fast path.
func (r *Registry) adopt(gid int64) *Slot {
	r.mu.Lock()

	r.adopts++
	if r.adopts%cleanupInterval == 0 {
		r.reclaimLocked()
	}

	var s *Slot
	if n := len(r.free); n > 0 {
		s = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		s = new(Slot)
		r.slots = append(r.slots, s)
	}
	s.gid.Store(gid)
	r.mu.Unlock()

	r.byGID.Store(gid, s)
	return s
}

// SlotCount returns the number of slots ever created. The table never
// shrinks; recycled slots stay in it and remain visible to the scan.
func (r *Registry) SlotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// FreeCount returns the number of recycled slots awaiting adoption.
func (r *Registry) FreeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.free)
}

// Leaked returns the number of slots abandoned by goroutines that exited
// while still marked reading. Such slots pin their epoch forever; the
// count exists so tests can assert the discipline was honored.
func (r *Registry) Leaked() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaked
}
