// Package retry provides bounded retry execution with exponential backoff
// and jitter. Every fallible external call in the pipeline (generation
// requests, store writes) goes through Do so that all call sites share the
// same backoff semantics.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datagen_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Common errors returned by Do.
var (
	// ErrExhausted is returned when all retry attempts are exhausted.
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the context is cancelled during backoff.
	ErrCancelled = errors.New("context cancelled")
)

// Class categorizes a failure for retry decisions and observability.
type Class string

const (
	// ClassNetwork represents connection and timeout failures.
	ClassNetwork Class = "network"

	// ClassService represents transient service failures (5xx-equivalent).
	ClassService Class = "service"

	// ClassThrottled represents rate-limit rejections from the service.
	ClassThrottled Class = "throttled"

	// ClassMalformed represents unparseable or invalid service output.
	ClassMalformed Class = "malformed"

	// ClassInvalid represents permanent failures (bad request, bad config)
	// that must not be retried.
	ClassInvalid Class = "invalid"
)

// Retryable reports whether failures of this class should be retried.
func (c Class) Retryable() bool {
	switch c {
	case ClassNetwork, ClassService, ClassThrottled, ClassMalformed:
		return true
	default:
		// ClassInvalid and unknown classes are not retried.
		return false
	}
}

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponentially growing delay.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ConfigForClass returns the retry configuration tuned for an error class.
func ConfigForClass(class Class) Config {
	switch class {
	case ClassService:
		// Transient service errors - shorter backoff
		return Config{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ClassThrottled:
		// Provider rate limit - longer backoff
		return Config{
			MaxAttempts:       3,
			InitialBackoff:    5 * time.Second,
			MaxBackoff:        60 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ClassNetwork:
		// Network errors - medium backoff
		return Config{
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultConfig()
	}
}

// Do executes fn with exponential backoff retry logic. The classify callback
// inspects each failure and determines whether another attempt is worthwhile;
// non-retryable classes short-circuit immediately with the original error.
// Backoff sleeps respect context cancellation and carry ±20% jitter to avoid
// synchronized retry storms across workers.
//
// On exhaustion Do returns an error wrapping ErrExhausted together with the
// last failure. Do never substitutes a result of its own; the caller decides
// what a permanent failure means.
func Do(ctx context.Context, config Config, fn func() error, classify func(error) Class) error {
	if config.MaxAttempts <= 0 {
		config = DefaultConfig()
	}

	var lastErr error
	var lastClass Class
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return nil
		}

		lastErr = err
		lastClass = classify(err)

		if !lastClass.Retryable() {
			// Permanent failure - return immediately without burning attempts
			return lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(lastClass)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(jitter.Seconds())

		log.Debug().
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying operation after backoff")

		// Wait with context cancellation support
		select {
		case <-ctx.Done():
			log.Warn().
				Str("error_class", string(lastClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-time.After(jitter):
			// Continue to next attempt
		}

		// Calculate next backoff (exponential)
		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	// All retries exhausted
	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	log.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, config.MaxAttempts, lastErr)
}
