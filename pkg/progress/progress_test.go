package progress

import (
	"sync"
	"testing"
)

func TestTracker_Counters(t *testing.T) {
	tracker := NewTracker(100, 40, map[string]int{"A": 30, "B": 30})

	tracker.AddGenerated("A", 10)
	tracker.AddWritten("A", 9)
	tracker.AddFailed("A", 1)
	tracker.AddWritten("B", 5)
	tracker.AddFallback("B", 2)

	snap := tracker.Snapshot()

	if snap.TargetTotal != 100 {
		t.Errorf("TargetTotal = %d, want 100", snap.TargetTotal)
	}
	if snap.AlreadyExisting != 40 {
		t.Errorf("AlreadyExisting = %d, want 40", snap.AlreadyExisting)
	}
	if snap.Remaining != 60 {
		t.Errorf("Remaining = %d, want 60", snap.Remaining)
	}
	if snap.Generated != 10 {
		t.Errorf("Generated = %d, want 10", snap.Generated)
	}
	if snap.Written != 14 {
		t.Errorf("Written = %d, want 14", snap.Written)
	}
	if snap.Failed != 1 {
		t.Errorf("Failed = %d, want 1", snap.Failed)
	}
	if snap.Fallback != 2 {
		t.Errorf("Fallback = %d, want 2", snap.Fallback)
	}

	a := snap.Categories["A"]
	if a.Planned != 30 || a.Written != 9 || a.Failed != 1 {
		t.Errorf("Category A = %+v", a)
	}
}

func TestTracker_FallbackNotCountedAsWritten(t *testing.T) {
	tracker := NewTracker(10, 0, map[string]int{"A": 10})

	tracker.AddFallback("A", 10)

	snap := tracker.Snapshot()
	if snap.Written != 0 {
		t.Errorf("Written = %d, want 0 (fallbacks are tracked separately)", snap.Written)
	}
	if snap.Fallback != 10 {
		t.Errorf("Fallback = %d, want 10", snap.Fallback)
	}
	if snap.Complete() {
		t.Error("Fallbacks alone must not complete the run target")
	}
}

func TestSnapshot_Complete(t *testing.T) {
	tracker := NewTracker(20, 0, map[string]int{"A": 20})

	tracker.AddWritten("A", 15)
	if tracker.Snapshot().Complete() {
		t.Error("Complete() = true with 15/20 accounted")
	}

	tracker.AddFailed("A", 5)
	if !tracker.Snapshot().Complete() {
		t.Error("Complete() = false with written+failed == remaining")
	}
}

func TestSnapshot_Shortfalls(t *testing.T) {
	tracker := NewTracker(60, 0, map[string]int{"A": 30, "B": 30})

	tracker.AddWritten("A", 30)
	tracker.AddWritten("B", 25)
	tracker.AddFailed("B", 3)
	tracker.AddFallback("B", 3)

	shortfalls := tracker.Snapshot().Shortfalls()

	if len(shortfalls) != 1 {
		t.Fatalf("len(shortfalls) = %d, want 1", len(shortfalls))
	}
	if shortfalls["B"] != 5 {
		t.Errorf("Shortfall B = %d, want 5 (fallbacks don't close shortfalls)", shortfalls["B"])
	}
}

func TestTracker_UnplannedCategory(t *testing.T) {
	tracker := NewTracker(10, 0, map[string]int{"A": 10})

	// Increments for a category outside the plan must not be dropped
	tracker.AddFailed("surprise", 2)

	snap := tracker.Snapshot()
	if snap.Failed != 2 {
		t.Errorf("Failed = %d, want 2", snap.Failed)
	}
	if snap.Categories["surprise"].Failed != 2 {
		t.Errorf("Category surprise failed = %d, want 2", snap.Categories["surprise"].Failed)
	}
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	tracker := NewTracker(10000, 0, map[string]int{"A": 5000, "B": 5000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			category := "A"
			if i%2 == 1 {
				category = "B"
			}
			for j := 0; j < 100; j++ {
				tracker.AddGenerated(category, 1)
				tracker.AddWritten(category, 1)
			}
		}(i)
	}
	wg.Wait()

	snap := tracker.Snapshot()
	if snap.Generated != 5000 {
		t.Errorf("Generated = %d, want 5000", snap.Generated)
	}
	if snap.Written != 5000 {
		t.Errorf("Written = %d, want 5000", snap.Written)
	}
	if snap.Categories["A"].Written+snap.Categories["B"].Written != 5000 {
		t.Errorf("Per-category written sum = %d, want 5000",
			snap.Categories["A"].Written+snap.Categories["B"].Written)
	}
}
