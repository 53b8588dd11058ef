// Package ratelimit bounds the call rate against the external generation
// service. It enforces both a maximum number of concurrent in-flight calls
// and a minimum spacing between call starts, so the pipeline stays inside
// the provider's advertised limits regardless of worker count.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for throttling.
var (
	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "datagen_throttle_wait_seconds",
		Help:    "Time spent waiting for a call slot",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	inflightCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datagen_inflight_calls",
		Help: "Current number of in-flight calls to the generation service",
	})
)

// Config holds throttle configuration.
type Config struct {
	// MaxConcurrent is the maximum number of in-flight calls.
	MaxConcurrent int

	// MinInterval is the minimum spacing between call starts. Zero disables
	// spacing (only the concurrency bound applies).
	MinInterval time.Duration
}

// DefaultConfig returns a conservative default throttle configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 5,
		MinInterval:   200 * time.Millisecond,
	}
}

// Throttle gates calls to the generation service. Safe for concurrent use by
// all workers; waiting is cooperative (blocked workers suspend on a channel
// or timer, never busy-spin). No fairness guarantee beyond eventual progress.
type Throttle struct {
	slots  chan struct{}
	config Config
	logger zerolog.Logger

	mu     sync.Mutex
	nextAt time.Time
}

// New creates a new throttle.
func New(config Config) *Throttle {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.MinInterval < 0 {
		config.MinInterval = 0
	}

	return &Throttle{
		slots:  make(chan struct{}, config.MaxConcurrent),
		config: config,
		logger: log.With().Str("component", "throttle").Logger(),
	}
}

// Acquire blocks until a call slot is available and the spacing window has
// passed. On success the caller owns one slot and must call Release when the
// call finishes. On context cancellation no slot is held.
func (t *Throttle) Acquire(ctx context.Context) error {
	start := time.Now()

	select {
	case t.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire call slot: %w", ctx.Err())
	}

	// Reserve the next start time under the lock, sleep outside it so other
	// workers can queue up their own reservations.
	wait := t.reserve()
	if wait > 0 {
		t.logger.Debug().
			Dur("wait", wait).
			Msg("Spacing delay before call")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-t.slots
			return fmt.Errorf("spacing wait: %w", ctx.Err())
		}
	}

	throttleWaitSeconds.Observe(time.Since(start).Seconds())
	inflightCalls.Inc()
	return nil
}

// Release frees the slot taken by a successful Acquire.
func (t *Throttle) Release() {
	inflightCalls.Dec()
	<-t.slots
}

// reserve claims the next allowed start time and returns how long the caller
// must wait before starting its call.
func (t *Throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.nextAt.Before(now) {
		t.nextAt = now
	}
	wait := t.nextAt.Sub(now)
	t.nextAt = t.nextAt.Add(t.config.MinInterval)
	return wait
}

// InFlight returns the current number of held slots (for tests and status
// reporting).
func (t *Throttle) InFlight() int {
	return len(t.slots)
}
