// Package store persists generated examples with insert-if-absent semantics
// keyed by example ID. That idempotent upsert is what makes retried and
// concurrent writes safe without any cross-worker locking.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
)

// Store is the destination for generated examples.
type Store interface {
	// UpsertMany inserts the examples that are not yet present, as one bulk
	// operation. inserted[i] reports whether examples[i] was newly written
	// (false = the ID already existed, a no-op). A non-nil error means the
	// bulk operation failed as a whole and no per-item outcome is known.
	UpsertMany(ctx context.Context, examples []dataset.Example) (inserted []bool, err error)

	// UpsertOne inserts a single example if its ID is absent.
	UpsertOne(ctx context.Context, example dataset.Example) (inserted bool, err error)

	// CountAll returns the total number of stored examples.
	CountAll(ctx context.Context) (int64, error)

	// CountCategory returns the number of stored examples for one category.
	CountCategory(ctx context.Context, category string) (int64, error)
}

// ErrMalformedItem indicates an example that can never be written (e.g. an
// empty ID). Not retryable.
var ErrMalformedItem = errors.New("malformed example")

// WriteError represents a store write failure with retryability context.
type WriteError struct {
	Retryable bool
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("write error (retryable %t): %s: %v", e.Retryable, e.Message, e.Err)
	}
	return fmt.Sprintf("write error (retryable %t): %s", e.Retryable, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a store failure to a retry class. Transient store
// unavailability is retryable; malformed items are permanent.
func ClassifyError(err error) retry.Class {
	if errors.Is(err, ErrMalformedItem) {
		return retry.ClassInvalid
	}
	if errors.Is(err, context.Canceled) {
		return retry.ClassInvalid
	}

	var writeErr *WriteError
	if errors.As(err, &writeErr) && !writeErr.Retryable {
		return retry.ClassInvalid
	}
	return retry.ClassService
}
