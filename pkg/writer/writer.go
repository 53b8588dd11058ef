// Package writer persists produced batches into the store. Writes go through
// the idempotent bulk upsert first; if the bulk operation fails as a whole,
// the writer falls back to per-item upserts so one bad item cannot sink the
// rest of a good batch.
package writer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/progress"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/store"
)

// Prometheus metrics for write operations.
var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_writes_total",
		Help: "Example write outcomes",
	}, []string{"outcome"})

	writeBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "datagen_write_batch_duration_seconds",
		Help:    "Duration of batch write operations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	bulkFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagen_write_bulk_fallbacks_total",
		Help: "Bulk writes that fell back to per-item writes",
	})
)

// Config holds batch writer configuration.
type Config struct {
	// Pause is the bounded delay between consecutive batches, to avoid
	// overwhelming the store. Not an ordering mechanism.
	Pause time.Duration

	// Retry is the retry policy for per-item writes after a bulk failure.
	Retry retry.Config
}

// DefaultConfig returns a safe default writer configuration.
func DefaultConfig() Config {
	return Config{
		Pause: 100 * time.Millisecond,
		Retry: retry.DefaultConfig(),
	}
}

// Writer persists example batches and reports outcomes to the tracker.
type Writer struct {
	store   store.Store
	tracker *progress.Tracker
	config  Config
	logger  zerolog.Logger
}

// New creates a batch writer.
func New(st store.Store, tracker *progress.Tracker, config Config) *Writer {
	return &Writer{
		store:   st,
		tracker: tracker,
		config:  config,
		logger:  log.With().Str("component", "writer").Logger(),
	}
}

// WriteBatch persists one batch. It never fails the run: every example ends
// up written, deduplicated, or counted as a permanent failure. Returns the
// number written (real examples only, deduplicated and fallback writes not
// included) and the number permanently failed.
func (w *Writer) WriteBatch(ctx context.Context, batch []dataset.Example) (written, failed int) {
	if len(batch) == 0 {
		return 0, 0
	}

	start := time.Now()
	defer func() {
		writeBatchDuration.Observe(time.Since(start).Seconds())
	}()

	inserted, err := w.store.UpsertMany(ctx, batch)
	if err != nil {
		// One malformed item can poison a bulk write; retry item by item so
		// the good ones survive.
		bulkFallbacksTotal.Inc()
		w.logger.Warn().
			Err(err).
			Int("batch_size", len(batch)).
			Msg("Bulk write failed, falling back to per-item writes")
		return w.writeIndividually(ctx, batch)
	}

	for i, example := range batch {
		w.record(example, inserted[i], &written)
	}

	w.logger.Debug().
		Int("batch_size", len(batch)).
		Int("written", written).
		Msg("Batch written")

	return written, failed
}

// writeIndividually upserts each example on its own, wrapped in retries for
// transient store errors.
func (w *Writer) writeIndividually(ctx context.Context, batch []dataset.Example) (written, failed int) {
	for _, example := range batch {
		example := example
		var inserted bool

		err := retry.Do(ctx, w.config.Retry, func() error {
			var upsertErr error
			inserted, upsertErr = w.store.UpsertOne(ctx, example)
			return upsertErr
		}, store.ClassifyError)

		if err != nil {
			w.logger.Error().
				Err(err).
				Str("id", example.ID).
				Str("category", example.Category).
				Msg("Example permanently failed to write")
			w.tracker.AddFailed(example.Category, 1)
			writesTotal.WithLabelValues("failed").Inc()
			failed++
			continue
		}

		w.record(example, inserted, &written)
	}
	return written, failed
}

// record updates counters for one acknowledged upsert. A false inserted flag
// means the ID already existed (a retried write) and must not be recounted.
func (w *Writer) record(example dataset.Example, inserted bool, written *int) {
	if !inserted {
		writesTotal.WithLabelValues("duplicate").Inc()
		return
	}

	if example.Metadata.SyntheticFallback {
		w.tracker.AddFallback(example.Category, 1)
		writesTotal.WithLabelValues("fallback").Inc()
		return
	}

	w.tracker.AddWritten(example.Category, 1)
	writesTotal.WithLabelValues("written").Inc()
	*written++
}

// Drain consumes batches from a channel until it is closed, pausing between
// batches. One Drain loop serializes all writes for its category; batches
// for different categories may interleave freely on other loops.
func (w *Writer) Drain(ctx context.Context, batches <-chan []dataset.Example) {
	for batch := range batches {
		w.WriteBatch(ctx, batch)

		if w.config.Pause > 0 {
			select {
			case <-time.After(w.config.Pause):
			case <-ctx.Done():
				// Keep draining without pacing so producers never block on a
				// full channel during shutdown
			}
		}
	}
}
