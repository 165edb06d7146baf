package rcu_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waker-he/writeboost-rcu/rcu"
)

// TestGuardDoubleReleasePanics verifies releasing twice is rejected.
func TestGuardDoubleReleasePanics(t *testing.T) {
	p := rcu.New(new(int))

	g := p.Read()
	g.Release()
	require.PanicsWithValue(t, "rcu: use of released read guard", func() { g.Release() })
}

// TestGuardValueAfterReleasePanics verifies a released guard cannot be read.
func TestGuardValueAfterReleasePanics(t *testing.T) {
	p := rcu.New(new(int))

	g := p.Read()
	g.Release()
	require.PanicsWithValue(t, "rcu: use of released read guard", func() { g.Value() })
}

// TestNestedReadPanics verifies acquiring a second guard on one
// goroutine before releasing the first is rejected.
func TestNestedReadPanics(t *testing.T) {
	p := rcu.New(new(int))

	g := p.Read()
	defer g.Release()
	require.PanicsWithValue(t,
		"rcu: nested read-side critical section on one goroutine",
		func() { p.Read() })
}

// TestSequentialReadsAfterRelease verifies release-then-reacquire on the
// same goroutine reuses the slot without complaint.
func TestSequentialReadsAfterRelease(t *testing.T) {
	p := rcu.New(new(int))

	for i := 0; i < 100; i++ {
		g := p.Read()
		require.Equal(t, 0, *g.Value())
		g.Release()
	}
}
