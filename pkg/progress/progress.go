// Package progress aggregates run counters across all workers. Counters are
// updated atomically and snapshots are consistent copies, so the tracker can
// be shared freely between worker, writer, and orchestrator goroutines.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus gauges mirroring the run counters.
var (
	examplesGenerated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datagen_examples_generated",
		Help: "Examples produced by workers in the current run",
	})

	examplesWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datagen_examples_written",
		Help: "Examples durably written in the current run",
	})

	examplesFailed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datagen_examples_failed",
		Help: "Examples permanently failed in the current run",
	})

	examplesFallback = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datagen_examples_fallback",
		Help: "Synthetic fallback examples written in the current run",
	})
)

// CategoryProgress holds per-category counters in a snapshot.
type CategoryProgress struct {
	Planned   int64 `json:"planned"`
	Generated int64 `json:"generated"`
	Written   int64 `json:"written"`
	Failed    int64 `json:"failed"`
	Fallback  int64 `json:"fallback"`
}

// Snapshot is a consistent view of run progress. It is never persisted; the
// same information is derivable by re-querying the store.
type Snapshot struct {
	TargetTotal     int64                       `json:"target_total"`
	AlreadyExisting int64                       `json:"already_existing"`
	Remaining       int64                       `json:"remaining"`
	Generated       int64                       `json:"generated"`
	Written         int64                       `json:"written"`
	Failed          int64                       `json:"failed"`
	Fallback        int64                       `json:"fallback"`
	Categories      map[string]CategoryProgress `json:"categories"`
}

// Complete reports whether every planned example has been accounted for,
// either durably written or permanently failed.
func (s Snapshot) Complete() bool {
	return s.Written+s.Failed >= s.Remaining
}

// Shortfalls returns, per category, how many planned examples were not
// written. Fallback placeholders do not close a shortfall.
func (s Snapshot) Shortfalls() map[string]int64 {
	shortfalls := make(map[string]int64)
	for category, c := range s.Categories {
		if short := c.Planned - c.Written; short > 0 {
			shortfalls[category] = short
		}
	}
	return shortfalls
}

type categoryCounters struct {
	planned   int64
	generated atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
	fallback  atomic.Int64
}

// Tracker aggregates counters for one pipeline run.
type Tracker struct {
	targetTotal     int64
	alreadyExisting int64
	remaining       int64

	generated atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
	fallback  atomic.Int64

	mu         sync.RWMutex
	categories map[string]*categoryCounters
}

// NewTracker creates a tracker for a run. planned is the per-category
// allocation of the plan; its values sum to remaining.
func NewTracker(targetTotal int, existing int64, planned map[string]int) *Tracker {
	t := &Tracker{
		targetTotal:     int64(targetTotal),
		alreadyExisting: existing,
		categories:      make(map[string]*categoryCounters, len(planned)),
	}
	for category, count := range planned {
		t.categories[category] = &categoryCounters{planned: int64(count)}
		t.remaining += int64(count)
	}

	examplesGenerated.Set(0)
	examplesWritten.Set(0)
	examplesFailed.Set(0)
	examplesFallback.Set(0)

	return t
}

// category returns the counters for a category, creating them on first use so
// increments for unplanned categories are never silently dropped.
func (t *Tracker) category(name string) *categoryCounters {
	t.mu.RLock()
	c, ok := t.categories[name]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.categories[name]; ok {
		return c
	}
	c = &categoryCounters{}
	t.categories[name] = c
	return c
}

// AddGenerated records n examples produced by a worker.
func (t *Tracker) AddGenerated(category string, n int) {
	t.generated.Add(int64(n))
	t.category(category).generated.Add(int64(n))
	examplesGenerated.Add(float64(n))
}

// AddWritten records n examples acknowledged by the store.
func (t *Tracker) AddWritten(category string, n int) {
	t.written.Add(int64(n))
	t.category(category).written.Add(int64(n))
	examplesWritten.Add(float64(n))
}

// AddFailed records n examples permanently failed after retry exhaustion.
func (t *Tracker) AddFailed(category string, n int) {
	t.failed.Add(int64(n))
	t.category(category).failed.Add(int64(n))
	examplesFailed.Add(float64(n))
}

// AddFallback records n synthetic placeholder examples written to the store.
// Fallbacks are tracked separately and never count toward Written.
func (t *Tracker) AddFallback(category string, n int) {
	t.fallback.Add(int64(n))
	t.category(category).fallback.Add(int64(n))
	examplesFallback.Add(float64(n))
}

// Snapshot returns a consistent copy of all counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		TargetTotal:     t.targetTotal,
		AlreadyExisting: t.alreadyExisting,
		Remaining:       t.remaining,
		Generated:       t.generated.Load(),
		Written:         t.written.Load(),
		Failed:          t.failed.Load(),
		Fallback:        t.fallback.Load(),
		Categories:      make(map[string]CategoryProgress, len(t.categories)),
	}
	for name, c := range t.categories {
		snap.Categories[name] = CategoryProgress{
			Planned:   c.planned,
			Generated: c.generated.Load(),
			Written:   c.written.Load(),
			Failed:    c.failed.Load(),
			Fallback:  c.fallback.Load(),
		}
	}
	return snap
}
