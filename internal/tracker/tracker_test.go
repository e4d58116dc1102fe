package tracker

import (
	"testing"
	"time"
)

func TestTrackerMonotonicMax(t *testing.T) {
	tr := New()
	scores := []float64{0.1, 0.05, 0.3, 0.2}
	for i, s := range scores {
		tr.Observe(uint64(i+1), s)
	}

	if got := tr.MaxOrdinal(); got != 3 {
		t.Errorf("MaxOrdinal() = %d, want 3", got)
	}
	if got := tr.MaxScore(); got != 0.3 {
		t.Errorf("MaxScore() = %v, want 0.3", got)
	}
	if got := tr.Observations(); got != 4 {
		t.Errorf("Observations() = %d, want 4", got)
	}
}

func TestTrackerFirstObservation(t *testing.T) {
	tr := New()
	if _, ok := tr.Max(); ok {
		t.Fatal("empty tracker should have no keyframe")
	}
	if tr.MaxOrdinal() != 0 {
		t.Error("empty tracker MaxOrdinal should be 0")
	}

	// A zero score still creates the keyframe lazily.
	if !tr.Observe(1, 0) {
		t.Error("first observation should become the keyframe")
	}
	kf, ok := tr.Max()
	if !ok || kf.Ordinal != 1 {
		t.Errorf("Max() = %+v, %v; want ordinal 1", kf, ok)
	}
}

func TestTrackerTieGoesToLatest(t *testing.T) {
	tr := New()
	tr.Observe(1, 0.4)
	if !tr.Observe(2, 0.4) {
		t.Error("equal score should replace the keyframe")
	}
	if tr.MaxOrdinal() != 2 {
		t.Errorf("MaxOrdinal() = %d, want 2", tr.MaxOrdinal())
	}
	if tr.Observe(3, 0.39) {
		t.Error("smaller score should not replace the keyframe")
	}
}

func TestTrackerReset(t *testing.T) {
	tr := New()
	tr.Observe(1, 0.9)
	tr.Reset()

	if _, ok := tr.Max(); ok {
		t.Error("Reset should clear the keyframe")
	}
	if tr.Observations() != 0 {
		t.Error("Reset should clear the observation count")
	}
	// After reset a lower score starts the new window.
	if !tr.Observe(2, 0.1) || tr.MaxOrdinal() != 2 {
		t.Errorf("MaxOrdinal() = %d, want 2", tr.MaxOrdinal())
	}
}

func TestTrackerObservedAt(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := &Tracker{now: func() time.Time { return fixed }}
	tr.Observe(5, 0.5)

	kf, _ := tr.Max()
	if !kf.ObservedAt.Equal(fixed) {
		t.Errorf("ObservedAt = %v, want %v", kf.ObservedAt, fixed)
	}
}
