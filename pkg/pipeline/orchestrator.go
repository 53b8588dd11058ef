// Package pipeline wires the planner, workers, writer, and progress tracker
// into one run. The orchestrator owns the run lifecycle: it plans the
// remaining work, fans units out to a bounded worker pool, funnels produced
// batches into per-category writer loops, and drains everything on completion
// or cancellation.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/planner"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/progress"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/ratelimit"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/store"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/worker"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/writer"
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StatePlanning State = "planning"
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Config holds the pipeline configuration for one run.
type Config struct {
	// TargetTotal is the desired total number of stored examples.
	TargetTotal int

	// Categories to generate for. Must be non-empty.
	Categories []string

	// Concurrency is the number of generation workers.
	Concurrency int

	// BatchSize bounds the examples requested by one work unit.
	BatchSize int

	// MaxPerCall bounds the items requested in one service call.
	MaxPerCall int

	// MaxConcurrentCalls and MinCallInterval configure the throttle.
	MaxConcurrentCalls int
	MinCallInterval    time.Duration

	// CallTimeout bounds one generation call.
	CallTimeout time.Duration

	// Retry is the retry policy for generation and per-item write calls.
	Retry retry.Config

	// WritePause is the bounded delay between consecutive batch writes.
	WritePause time.Duration

	// Model is recorded in example metadata.
	Model string

	// AllowFallback enables synthetic placeholders after retry exhaustion.
	AllowFallback bool

	// Deadline bounds the whole run; zero means no deadline.
	Deadline time.Duration

	// ProgressInterval is how often the run logs a progress snapshot.
	// Reporting is a pure observer and never affects pipeline behavior.
	ProgressInterval time.Duration
}

// DefaultConfig returns a safe default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:        4,
		BatchSize:          10,
		MaxPerCall:         5,
		MaxConcurrentCalls: 5,
		MinCallInterval:    200 * time.Millisecond,
		CallTimeout:        90 * time.Second,
		Retry:              retry.DefaultConfig(),
		WritePause:         100 * time.Millisecond,
		ProgressInterval:   10 * time.Second,
	}
}

// Orchestrator runs the generation pipeline.
type Orchestrator struct {
	gen    worker.Generator
	store  store.Store
	config Config
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator. Configuration problems are fatal and surface
// here, before any work is dispatched.
func New(gen worker.Generator, st store.Store, config Config) (*Orchestrator, error) {
	if gen == nil {
		return nil, fmt.Errorf("generation capability is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.TargetTotal <= 0 {
		return nil, fmt.Errorf("target total must be positive (got %d)", config.TargetTotal)
	}
	if len(config.Categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.MaxPerCall <= 0 {
		config.MaxPerCall = DefaultConfig().MaxPerCall
	}

	return &Orchestrator{
		gen:    gen,
		store:  st,
		config: config,
		logger: log.With().Str("component", "pipeline").Logger(),
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Info().Str("state", string(s)).Msg("Pipeline state changed")
}

// Run executes one pipeline run and returns the final progress snapshot.
// Cancellation of ctx (or an elapsed deadline) stops dispatching new units
// immediately, lets in-flight work finish, and returns the partial snapshot.
func (o *Orchestrator) Run(ctx context.Context) (progress.Snapshot, error) {
	if o.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Deadline)
		defer cancel()
	}

	// PLANNING: read current store state, compute the remaining work
	o.setState(StatePlanning)

	existing, err := o.store.CountAll(ctx)
	if err != nil {
		o.setState(StateFailed)
		return progress.Snapshot{}, fmt.Errorf("read existing count: %w", err)
	}

	plan := planner.Plan(o.config.TargetTotal, o.config.Categories, existing, o.config.BatchSize)
	tracker := progress.NewTracker(o.config.TargetTotal, existing, planner.PerCategory(plan))

	if len(plan) == 0 {
		o.setState(StateDone)
		o.logger.Info().
			Int("target_total", o.config.TargetTotal).
			Int64("existing", existing).
			Msg("Target already met, nothing to do")
		return tracker.Snapshot(), nil
	}

	o.setState(StateRunning)
	o.logger.Info().
		Int("units", len(plan)).
		Int("remaining", planner.Total(plan)).
		Int("concurrency", o.config.Concurrency).
		Msg("Dispatching work units")

	throttle := ratelimit.New(ratelimit.Config{
		MaxConcurrent: o.config.MaxConcurrentCalls,
		MinInterval:   o.config.MinCallInterval,
	})
	batchWriter := writer.New(o.store, tracker, writer.Config{
		Pause: o.config.WritePause,
		Retry: o.config.Retry,
	})
	workerConfig := worker.Config{
		MaxPerCall:    o.config.MaxPerCall,
		CallTimeout:   o.config.CallTimeout,
		Retry:         o.config.Retry,
		Model:         o.config.Model,
		AllowFallback: o.config.AllowFallback,
	}

	// One write loop per category keeps same-category writes serialized;
	// cross-category writes interleave freely.
	writerChans := make(map[string]chan []dataset.Example)
	var writersWG sync.WaitGroup
	for category := range planner.PerCategory(plan) {
		ch := make(chan []dataset.Example, o.config.Concurrency)
		writerChans[category] = ch
		writersWG.Add(1)
		go func(ch <-chan []dataset.Example) {
			defer writersWG.Done()
			batchWriter.Drain(ctx, ch)
		}(ch)
	}

	// Dispatch units; cancellation stops dispatch within one select tick
	units := make(chan planner.WorkUnit)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(units)
		defer close(dispatchDone)
		for _, unit := range plan {
			select {
			case units <- unit:
			case <-ctx.Done():
				o.logger.Warn().Msg("Dispatch stopped by cancellation")
				return
			}
		}
	}()

	var workersWG sync.WaitGroup
	for i := 0; i < o.config.Concurrency; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			prod := worker.New(o.gen, throttle, workerConfig)
			for unit := range units {
				batch, failed := prod.Process(ctx, unit)
				if failed > 0 {
					tracker.AddFailed(unit.Category, failed)
				}
				if len(batch) > 0 {
					tracker.AddGenerated(unit.Category, len(batch))
					writerChans[unit.Category] <- batch
				}
			}
		}()
	}

	// Progress observer (pure reporting, no pipeline effect)
	observerStop := make(chan struct{})
	go o.observe(tracker, observerStop)

	<-dispatchDone
	o.setState(StateDraining)

	workersWG.Wait()
	for _, ch := range writerChans {
		close(ch)
	}
	writersWG.Wait()
	close(observerStop)

	o.setState(StateDone)

	snapshot := tracker.Snapshot()
	event := o.logger.Info().
		Int64("written", snapshot.Written).
		Int64("failed", snapshot.Failed).
		Int64("fallback", snapshot.Fallback).
		Int64("remaining", snapshot.Remaining)
	if shortfalls := snapshot.Shortfalls(); len(shortfalls) > 0 {
		event = event.Interface("shortfalls", shortfalls)
	}
	if ctx.Err() != nil {
		event.Msg("Run ended early by cancellation")
	} else {
		event.Msg("Run complete")
	}

	return snapshot, nil
}

// observe logs a progress snapshot at the configured interval until stopped.
func (o *Orchestrator) observe(tracker *progress.Tracker, stop <-chan struct{}) {
	interval := o.config.ProgressInterval
	if interval <= 0 {
		interval = DefaultConfig().ProgressInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snapshot := tracker.Snapshot()
			o.logger.Info().
				Int64("generated", snapshot.Generated).
				Int64("written", snapshot.Written).
				Int64("failed", snapshot.Failed).
				Int64("remaining", snapshot.Remaining).
				Msg("Progress")
		}
	}
}
