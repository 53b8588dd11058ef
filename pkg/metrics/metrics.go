// Package metrics provides the centralized Prometheus metrics reference for
// the generation pipeline. All metrics are defined in their respective
// packages (generator, retry, ratelimit, writer, progress) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Generation Metrics (pkg/generator):
//   - datagen_generation_requests_total{category, status} (Counter): Requests by category and HTTP status
//   - datagen_generation_request_duration_seconds{category} (Histogram): Request duration by category
//   - datagen_generation_errors_total{class} (Counter): Errors by class (network, service, throttled, malformed, invalid)
//
// Retry Metrics (pkg/retry):
//   - datagen_retries_total{error_class} (Counter): Retry attempts by error class
//   - datagen_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - datagen_retry_exhausted_total{error_class} (Counter): Operations that exhausted max retries
//
// Throttle Metrics (pkg/ratelimit):
//   - datagen_throttle_wait_seconds (Histogram): Time spent waiting for a call slot
//   - datagen_inflight_calls (Gauge): Current in-flight calls to the generation service
//
// Write Metrics (pkg/writer):
//   - datagen_writes_total{outcome} (Counter): Write outcomes (written, duplicate, fallback, failed)
//   - datagen_write_batch_duration_seconds (Histogram): Batch write duration
//   - datagen_write_bulk_fallbacks_total (Counter): Bulk writes that fell back to per-item writes
//
// Progress Metrics (pkg/progress):
//   - datagen_examples_generated (Gauge): Examples produced in the current run
//   - datagen_examples_written (Gauge): Examples durably written in the current run
//   - datagen_examples_failed (Gauge): Examples permanently failed in the current run
//   - datagen_examples_fallback (Gauge): Synthetic fallback examples in the current run
//
// Example Prometheus Queries:
//
//   # Generation error rate
//   rate(datagen_generation_errors_total[5m])
//
//   # Run completion ratio
//   datagen_examples_written / (datagen_examples_written + datagen_examples_failed)
//
//   # P95 generation latency
//   histogram_quantile(0.95, rate(datagen_generation_request_duration_seconds_bucket[5m]))
//
//   # Duplicate write ratio (retries hitting the idempotency boundary)
//   rate(datagen_writes_total{outcome="duplicate"}[5m]) / rate(datagen_writes_total[5m])
