package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
)

// GenerationError represents a failure of the generation service with enough
// context to decide whether the call is worth retrying.
type GenerationError struct {
	StatusCode int
	Retryable  bool
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation error (status %d, retryable %t): %s: %v",
			e.StatusCode, e.Retryable, e.Message, e.Err)
	}
	return fmt.Sprintf("generation error (status %d, retryable %t): %s",
		e.StatusCode, e.Retryable, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a generation failure to a retry class. Network and
// timeout failures, 5xx responses, provider rate limits, and unparseable
// output are all retryable; other client errors are permanent.
func ClassifyError(err error) retry.Class {
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		// Raw transport or context errors - treat as network trouble
		if errors.Is(err, context.Canceled) {
			return retry.ClassInvalid
		}
		return retry.ClassNetwork
	}

	if !genErr.Retryable {
		return retry.ClassInvalid
	}

	switch {
	case genErr.StatusCode == http.StatusTooManyRequests:
		return retry.ClassThrottled
	case genErr.StatusCode >= 500:
		return retry.ClassService
	case genErr.StatusCode == 0 && genErr.Err != nil:
		return retry.ClassNetwork
	default:
		return retry.ClassMalformed
	}
}
