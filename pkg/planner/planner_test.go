package planner

import (
	"reflect"
	"testing"
)

func TestPlan_SumsToRemaining(t *testing.T) {
	tests := []struct {
		name       string
		target     int
		categories []string
		existing   int64
		batchSize  int
		wantTotal  int
	}{
		{
			name:       "even split",
			target:     100,
			categories: []string{"A", "B"},
			existing:   40,
			batchSize:  10,
			wantTotal:  60,
		},
		{
			name:       "uneven remainder",
			target:     100,
			categories: []string{"A", "B", "C"},
			existing:   0,
			batchSize:  7,
			wantTotal:  100,
		},
		{
			name:       "single category",
			target:     25,
			categories: []string{"only"},
			existing:   3,
			batchSize:  10,
			wantTotal:  22,
		},
		{
			name:       "more categories than remaining",
			target:     3,
			categories: []string{"A", "B", "C", "D", "E"},
			existing:   0,
			batchSize:  10,
			wantTotal:  3,
		},
		{
			name:       "existing exceeds target",
			target:     50,
			categories: []string{"A"},
			existing:   80,
			batchSize:  10,
			wantTotal:  0,
		},
		{
			name:       "target already met exactly",
			target:     50,
			categories: []string{"A", "B"},
			existing:   50,
			batchSize:  10,
			wantTotal:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := Plan(tt.target, tt.categories, tt.existing, tt.batchSize)

			if got := Total(units); got != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got, tt.wantTotal)
			}
			for _, u := range units {
				if u.Count <= 0 || u.Count > tt.batchSize {
					t.Errorf("Unit count %d outside (0, %d]", u.Count, tt.batchSize)
				}
			}
		})
	}
}

func TestPlan_EmptyWhenTargetMet(t *testing.T) {
	units := Plan(50, []string{"A", "B"}, 50, 10)
	if units != nil {
		t.Errorf("Expected nil plan, got %d units", len(units))
	}
}

func TestPlan_EmptyCategories(t *testing.T) {
	units := Plan(100, nil, 0, 10)
	if units != nil {
		t.Errorf("Expected nil plan for empty categories, got %d units", len(units))
	}
}

func TestPlan_RemainderToFirstCategories(t *testing.T) {
	// 10 across 3 categories: 4/3/3
	units := Plan(10, []string{"A", "B", "C"}, 0, 100)

	perCat := PerCategory(units)
	want := map[string]int{"A": 4, "B": 3, "C": 3}
	if !reflect.DeepEqual(perCat, want) {
		t.Errorf("PerCategory = %v, want %v", perCat, want)
	}
}

func TestPlan_ChunkedByBatchSize(t *testing.T) {
	// 60 across A and B, batch size 10: 3 units of 10 per category
	units := Plan(100, []string{"A", "B"}, 40, 10)

	if len(units) != 6 {
		t.Fatalf("len(units) = %d, want 6", len(units))
	}
	perCat := PerCategory(units)
	if perCat["A"] != 30 || perCat["B"] != 30 {
		t.Errorf("PerCategory = %v, want 30/30", perCat)
	}
	for _, u := range units {
		if u.Count != 10 {
			t.Errorf("Unit count = %d, want 10", u.Count)
		}
	}
}

func TestPlan_LastChunkSmaller(t *testing.T) {
	units := Plan(25, []string{"A"}, 0, 10)

	if len(units) != 3 {
		t.Fatalf("len(units) = %d, want 3", len(units))
	}
	if units[2].Count != 5 {
		t.Errorf("Last chunk = %d, want 5", units[2].Count)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	a := Plan(97, []string{"x", "y", "z"}, 13, 7)
	b := Plan(97, []string{"x", "y", "z"}, 13, 7)

	if !reflect.DeepEqual(a, b) {
		t.Error("Plan is not deterministic for identical inputs")
	}
}

func TestPlan_DefaultBatchSize(t *testing.T) {
	units := Plan(30, []string{"A"}, 0, 0)

	for _, u := range units {
		if u.Count > DefaultBatchSize {
			t.Errorf("Unit count %d exceeds default batch size %d", u.Count, DefaultBatchSize)
		}
	}
	if got := Total(units); got != 30 {
		t.Errorf("Total = %d, want 30", got)
	}
}
