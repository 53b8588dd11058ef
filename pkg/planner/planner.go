// Package planner computes how much generation work remains and partitions it
// across categories into bounded work units.
package planner

import (
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds how many examples a single work unit may request.
const DefaultBatchSize = 10

// WorkUnit is a bounded request to produce Count examples for one category.
type WorkUnit struct {
	Category string
	Count    int
	Attempt  int
}

// Plan partitions the remaining work into work units.
//
// remaining = max(0, targetTotal - existing). The remainder of the integer
// split goes to the first categories in input order, so the unit counts sum
// to remaining exactly. Each category's allocation is chunked into units of
// at most batchSize; the last chunk per category may be smaller. The result
// is deterministic for a given input.
func Plan(targetTotal int, categories []string, existing int64, batchSize int) []WorkUnit {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	remaining := targetTotal - int(existing)
	if remaining <= 0 || len(categories) == 0 {
		log.Info().
			Int("target_total", targetTotal).
			Int64("existing", existing).
			Msg("Nothing to plan, target already met")
		return nil
	}

	base := remaining / len(categories)
	remainder := remaining % len(categories)

	var units []WorkUnit
	for i, category := range categories {
		allocation := base
		if i < remainder {
			allocation++
		}

		for allocation > 0 {
			count := allocation
			if count > batchSize {
				count = batchSize
			}
			units = append(units, WorkUnit{Category: category, Count: count})
			allocation -= count
		}
	}

	log.Info().
		Int("target_total", targetTotal).
		Int64("existing", existing).
		Int("remaining", remaining).
		Int("categories", len(categories)).
		Int("units", len(units)).
		Msg("Plan computed")

	return units
}

// Total returns the sum of Count across the given units.
func Total(units []WorkUnit) int {
	total := 0
	for _, u := range units {
		total += u.Count
	}
	return total
}

// PerCategory returns the planned count per category.
func PerCategory(units []WorkUnit) map[string]int {
	planned := make(map[string]int)
	for _, u := range units {
		planned[u.Category] += u.Count
	}
	return planned
}
