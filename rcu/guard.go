package rcu

import "github.com/waker-he/writeboost-rcu/internal/rcu/readers"

const messageReleasedGuard = "rcu: use of released read guard"

// ReadGuard pins one published version of the protected value for the
// duration of a read-side critical section.
//
// A guard is confined to the goroutine that called Read and is released
// exactly once. The usual shape is
//
//	g := p.Read()
//	defer g.Release()
//	use(g.Value())
//
// Using a guard after Release panics.
type ReadGuard[T any] struct {
	val  *T
	slot *readers.Slot
}

// Value returns the pinned snapshot. The caller must treat it as
// immutable; mutating it races with every other reader of this version.
func (g *ReadGuard[T]) Value() *T {
	if g.slot == nil {
		panic(messageReleasedGuard)
	}
	return g.val
}

// Release ends the read-side critical section, allowing the pinned
// version to be reclaimed once every concurrent reader of it has also
// released. Panics on double release.
func (g *ReadGuard[T]) Release() {
	if g.slot == nil {
		panic(messageReleasedGuard)
	}
	g.slot.Leave()
	g.slot = nil
	g.val = nil
}
