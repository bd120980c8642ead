package coordinator

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"

	"satoribalance/internal/fetcher"
	"satoribalance/internal/metrics"
)

// DefaultConcurrency is the number of lookups allowed in flight at once
const DefaultConcurrency = 10

// ProgressFunc is called once per completed address, in completion order.
// done counts completions so far, including this one.
type ProgressFunc func(done, total int, record fetcher.Record)

// Coordinator runs one fetch per address under a fixed concurrency limit
// and collects the results as they complete
type Coordinator struct {
	fetcher     fetcher.Fetcher
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Recorder
	progress    ProgressFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConcurrency sets the maximum number of lookups in flight.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics records in-flight lookups and outcome kinds.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = recorder
	}
}

// WithProgress registers a callback invoked for every completed address.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

// New creates a new Coordinator for the given fetcher
func New(f fetcher.Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:     f,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Run looks up every address and returns exactly one record per address,
// in completion order.
//
// All lookups start at once; a counting gate owned by this call admits at
// most the configured concurrency into Fetch. A lookup holds its permit for
// its whole duration, retries and retry waits included. Lookups that could
// not get a permit before ctx ended are recorded as failures.
func (c *Coordinator) Run(ctx context.Context, addresses []string) []fetcher.Record {
	total := len(addresses)
	records := make([]fetcher.Record, 0, total)
	if total == 0 {
		return records
	}

	gate := semaphore.NewWeighted(int64(c.concurrency))

	// Create a channel for collecting results
	resultChan := make(chan fetcher.Record, total)

	var wg conc.WaitGroup
	for _, address := range addresses {
		address := address // per-iteration copy (pre-Go 1.22 loop semantics)
		wg.Go(func() {
			resultChan <- c.fetchOne(ctx, gate, address)
		})
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results as they arrive
	for record := range resultChan {
		records = append(records, record)
		c.metrics.ObserveOutcome(record.Outcome.Kind.String())

		c.logger.Info("balance fetched",
			"address", record.Address,
			"outcome", record.Outcome.Kind.String(),
			"done", len(records),
			"total", total)

		if c.progress != nil {
			c.progress(len(records), total, record)
		}
	}

	return records
}

// fetchOne runs a single lookup inside the gate.
// The permit is released on every path, including a panicking fetcher.
func (c *Coordinator) fetchOne(ctx context.Context, gate *semaphore.Weighted, address string) fetcher.Record {
	if err := gate.Acquire(ctx, 1); err != nil {
		return fetcher.Record{Address: address, Outcome: fetcher.ErrorFailure(err)}
	}
	defer gate.Release(1)

	c.metrics.FetchStarted()
	defer c.metrics.FetchFinished()

	var outcome fetcher.Outcome
	if recovered := panics.Try(func() { outcome = c.fetcher.Fetch(ctx, address) }); recovered != nil {
		c.logger.Error("balance fetch panicked",
			"address", address,
			"panic", recovered.Value)
		outcome = fetcher.ErrorFailure(recovered.AsError())
	}

	return fetcher.Record{Address: address, Outcome: outcome}
}
