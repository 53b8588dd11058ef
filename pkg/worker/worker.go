// Package worker turns work units into validated, ID-assigned examples by
// calling the external generation service through the throttle and retry
// layers. Workers never touch the store; produced batches are handed to the
// batch writer.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/generator"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/planner"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/ratelimit"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
)

// Config holds worker configuration.
type Config struct {
	// MaxPerCall bounds how many items a single generation call may request.
	MaxPerCall int

	// CallTimeout bounds one generation call (on top of client retries).
	CallTimeout time.Duration

	// Retry is the retry policy for generation calls.
	Retry retry.Config

	// Model is recorded in example metadata.
	Model string

	// AllowFallback enables synthetic placeholder items after retry
	// exhaustion, so a category can never stall a run indefinitely. The
	// placeholders are clearly marked in metadata and tracked separately.
	AllowFallback bool
}

// DefaultConfig returns a safe default worker configuration.
func DefaultConfig() Config {
	return Config{
		MaxPerCall:  5,
		CallTimeout: 90 * time.Second,
		Retry:       retry.DefaultConfig(),
	}
}

// Generator is the external generation capability consumed by workers.
type Generator interface {
	Generate(ctx context.Context, category string, count int) ([]generator.Item, error)
}

// Worker produces examples for work units.
type Worker struct {
	gen      Generator
	throttle *ratelimit.Throttle
	config   Config
	batchID  string
	logger   zerolog.Logger
}

// New creates a worker. Each worker gets its own batch ID, recorded in the
// metadata of every example it produces.
func New(gen Generator, throttle *ratelimit.Throttle, config Config) *Worker {
	if config.MaxPerCall <= 0 {
		config.MaxPerCall = DefaultConfig().MaxPerCall
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultConfig().CallTimeout
	}

	batchID := uuid.NewString()
	return &Worker{
		gen:      gen,
		throttle: throttle,
		config:   config,
		batchID:  batchID,
		logger:   log.With().Str("component", "worker").Str("batch_id", batchID).Logger(),
	}
}

// BatchID returns the worker's batch identifier.
func (w *Worker) BatchID() string {
	return w.batchID
}

// Process produces examples for one work unit. It issues one or more
// generation calls (each throttled and retried), validates the returned
// items, and assigns a unique ID to every accepted example at creation time.
// The returned failed count covers items that could not be produced: dropped
// by validation, missing from short responses, or lost to retry exhaustion.
//
// Fallback placeholders (when enabled) are appended for exhausted slots and
// still counted as failed; only their metadata distinguishes them.
func (w *Worker) Process(ctx context.Context, unit planner.WorkUnit) ([]dataset.Example, int) {
	examples := make([]dataset.Example, 0, unit.Count)
	failed := 0

	remaining := unit.Count
	for remaining > 0 {
		if ctx.Err() != nil {
			// Cancellation: report the unproduced slots as failed so the
			// partial progress snapshot stays consistent.
			failed += remaining
			break
		}

		request := remaining
		if request > w.config.MaxPerCall {
			request = w.config.MaxPerCall
		}

		items, err := w.generateOnce(ctx, unit.Category, request)
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("category", unit.Category).
				Int("count", request).
				Msg("Generation failed permanently for sub-batch")

			failed += request
			if w.config.AllowFallback {
				examples = append(examples, w.fallbackExamples(unit.Category, request)...)
			}
			remaining -= request
			continue
		}

		produced := 0
		for _, item := range items {
			if produced >= request {
				// Service returned more than asked; ignore the excess
				break
			}
			result := parseItem(item, unit.Category)
			if result.Failure != nil {
				w.logger.Debug().
					Str("category", unit.Category).
					Str("reason", result.Failure.Reason).
					Msg("Dropped invalid generated item")
				failed++
				produced++
				continue
			}

			example := *result.Example
			example.ID = uuid.NewString()
			example.Metadata.GeneratedAt = time.Now().UTC()
			example.Metadata.Model = w.config.Model
			example.Metadata.BatchID = w.batchID
			examples = append(examples, example)
			produced++
		}

		if produced < request {
			// Short response: the missing slots are failures, not something
			// to silently re-request forever
			w.logger.Warn().
				Str("category", unit.Category).
				Int("requested", request).
				Int("returned", produced).
				Msg("Generation returned fewer items than requested")
			failed += request - produced
		}

		remaining -= request
	}

	return examples, failed
}

// generateOnce performs one throttled, retried generation call.
func (w *Worker) generateOnce(ctx context.Context, category string, count int) ([]generator.Item, error) {
	var items []generator.Item

	err := retry.Do(ctx, w.config.Retry, func() error {
		if err := w.throttle.Acquire(ctx); err != nil {
			return err
		}
		defer w.throttle.Release()

		callCtx, cancel := context.WithTimeout(ctx, w.config.CallTimeout)
		defer cancel()

		var genErr error
		items, genErr = w.gen.Generate(callCtx, category, count)
		return genErr
	}, generator.ClassifyError)

	return items, err
}

// fallbackExamples synthesizes clearly-labeled placeholder items for slots
// that exhausted their retries.
func (w *Worker) fallbackExamples(category string, count int) []dataset.Example {
	w.logger.Warn().
		Str("category", category).
		Int("count", count).
		Msg("Emitting synthetic fallback examples")

	examples := make([]dataset.Example, count)
	for i := range examples {
		examples[i] = dataset.Example{
			ID:       uuid.NewString(),
			Category: category,
			Query:    "synthetic fallback query for " + category,
			Response: "synthetic fallback response for " + category,
			Metadata: dataset.Metadata{
				GeneratedAt:       time.Now().UTC(),
				Model:             w.config.Model,
				BatchID:           w.batchID,
				SyntheticFallback: true,
			},
		}
	}
	return examples
}
