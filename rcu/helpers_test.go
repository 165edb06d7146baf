package rcu_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/waker-he/writeboost-rcu/rcu"
)

// waitForValue polls reads until the protected int reaches want,
// failing after a bounded wait. Updates by enqueuing writers become
// visible shortly after their Update returns, not necessarily before.
func waitForValue(t *testing.T, p *rcu.Protected[int], want int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		g := p.Read()
		got := *g.Value()
		g.Release()
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("value = %d after 10s, want %d", got, want)
		}
		runtime.Gosched()
	}
}

// waitForStats polls Stats until ok accepts a snapshot, failing after a
// bounded wait.
func waitForStats(t *testing.T, p *rcu.Protected[int], ok func(rcu.Stats) bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		if ok(p.Stats()) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats never converged: %+v", p.Stats())
		}
		runtime.Gosched()
	}
}
