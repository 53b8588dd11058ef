// Package dataset defines the labeled example records produced by the
// generation pipeline and persisted to the store.
package dataset

import (
	"time"
)

// Example is one generated query/response pair. The ID is assigned by the
// producing worker at creation time and is the idempotency key for writes:
// upserting the same ID twice must not create a second row.
type Example struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Query    string   `json:"query"`
	Response string   `json:"response"`
	Metadata Metadata `json:"metadata"`
}

// Metadata carries generation provenance for an example.
type Metadata struct {
	// GeneratedAt is the creation timestamp assigned by the worker.
	GeneratedAt time.Time `json:"generated_at"`

	// Model is the identifier of the model that produced the content.
	Model string `json:"model"`

	// BatchID groups all examples produced by one worker instance in one run.
	BatchID string `json:"batch_id"`

	// Scenario and Complexity are optional tags echoed from the generation
	// service response.
	Scenario   string `json:"scenario,omitempty"`
	Complexity string `json:"complexity,omitempty"`

	// SyntheticFallback marks placeholder content emitted after retry
	// exhaustion. Fallback examples are never counted toward the real target
	// and can be filtered out downstream.
	SyntheticFallback bool `json:"synthetic_fallback,omitempty"`
}
