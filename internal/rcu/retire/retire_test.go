package retire

import (
	"sync/atomic"
	"testing"
)

func shallow(dst, src *int) { *dst = *src }

// TestRetireBelowThreshold verifies no probe runs before the threshold.
func TestRetireBelowThreshold(t *testing.T) {
	var epoch atomic.Uint32
	s := NewState[int](&epoch, 4)

	probed := false
	for i := 0; i < 3; i++ {
		if s.Retire(new(int), func(uint8) bool { probed = true; return true }) {
			t.Fatal("Retire reclaimed below threshold")
		}
	}
	if probed {
		t.Error("quiescence probed below threshold")
	}
	if got := s.PendingRetired(); got != 3 {
		t.Errorf("PendingRetired() = %d, want 3", got)
	}
	if epoch.Load() != 0 {
		t.Error("epoch flipped below threshold")
	}
}

// TestRetireGatedOnQuiescence verifies reclamation never runs while the
// previous epoch still has a pinned reader.
func TestRetireGatedOnQuiescence(t *testing.T) {
	var epoch atomic.Uint32
	s := NewState[int](&epoch, 2)

	pinned := true
	clear := func(e uint8) bool {
		if e != 1 {
			t.Errorf("probed epoch %d, want previous epoch 1", e)
		}
		return !pinned
	}

	for i := 0; i < 5; i++ {
		if s.Retire(new(int), clear) {
			t.Fatal("Retire reclaimed while previous epoch was pinned")
		}
	}
	if got := s.PoolSize(); got != 0 {
		t.Fatalf("PoolSize() = %d while pinned, want 0", got)
	}

	pinned = false
	if !s.Retire(new(int), clear) {
		t.Fatal("Retire did not reclaim once the previous epoch cleared")
	}
	if epoch.Load() != 1 {
		t.Error("epoch did not flip on reclamation")
	}
}

// TestReclaimMovesPreviousBucketToPool verifies the bucket/pool swap.
func TestReclaimMovesPreviousBucketToPool(t *testing.T) {
	var epoch atomic.Uint32
	s := NewState[int](&epoch, 1)

	// First cycle: bucket 0 holds one value, previous bucket (1) is
	// empty, so the pool stays empty and the epoch flips to 1.
	first := new(int)
	if !s.Retire(first, func(uint8) bool { return true }) {
		t.Fatal("first Retire did not run a cycle")
	}
	if got := s.PoolSize(); got != 0 {
		t.Fatalf("PoolSize() = %d after first cycle, want 0", got)
	}

	// Second cycle: bucket 1 gets a value; previous bucket (0) holds
	// first, which must move to the pool.
	if !s.Retire(new(int), func(uint8) bool { return true }) {
		t.Fatal("second Retire did not run a cycle")
	}
	if got := s.PoolSize(); got != 1 {
		t.Fatalf("PoolSize() = %d after second cycle, want 1", got)
	}
	if epoch.Load() != 0 {
		t.Error("epoch did not flip back to 0")
	}

	// The pooled value is exactly the one retired in the first cycle.
	live := 42
	copied, reused := s.GetCopy(&live, shallow)
	if !reused {
		t.Error("GetCopy allocated despite a pooled value")
	}
	if copied != first {
		t.Error("GetCopy did not hand back the pooled value")
	}
	if *copied != 42 {
		t.Errorf("GetCopy value = %d, want 42", *copied)
	}
}

// TestGetCopyAllocatesWhenPoolEmpty verifies the allocation path.
func TestGetCopyAllocatesWhenPoolEmpty(t *testing.T) {
	var epoch atomic.Uint32
	s := NewState[int](&epoch, 8)

	live := 7
	copied, reused := s.GetCopy(&live, shallow)
	if reused {
		t.Error("GetCopy reported reuse from an empty pool")
	}
	if copied == &live {
		t.Error("GetCopy returned the live value instead of a copy")
	}
	if *copied != 7 {
		t.Errorf("GetCopy value = %d, want 7", *copied)
	}
}

// TestThresholdFloorClamped verifies a non-positive threshold behaves as 1.
func TestThresholdFloorClamped(t *testing.T) {
	var epoch atomic.Uint32
	s := NewState[int](&epoch, 0)

	if !s.Retire(new(int), func(uint8) bool { return true }) {
		t.Error("threshold 0 must arm a probe on the first retirement")
	}
}
