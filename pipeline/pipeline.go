// Package pipeline sequences a run: collect the batch, ensure the destination
// table, then load the batch, passing it between steps through a key/value store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-booksync/models"
)

// BatchKey is the handoff key under which the collected batch is stored.
const BatchKey = "book_data"

const (
	StepCollect     = "fetch_book_data"
	StepEnsureTable = "create_books_table"
	StepLoad        = "insert_book_data"
)

// BatchCollector produces the deduplicated batch for a run.
type BatchCollector interface {
	Collect(ctx context.Context, targetCount, maxPages int) (*models.RunReport, error)
}

// BookSink is the destination of a run.
type BookSink interface {
	EnsureTable(ctx context.Context) error
	Load(ctx context.Context, books []models.BookRecord) (int, error)
}

// StepResult records how one step went.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// RunSummary is what a run reports back to its caller.
type RunSummary struct {
	RunID  string
	Report *models.RunReport
	Loaded int
	Steps  []StepResult
}

// Runner executes the three steps of a run in order.
type Runner struct {
	collector BatchCollector
	sink      BookSink
	store     Store
	exporter  OutputWriter
}

// Option customises a Runner.
type Option func(*Runner)

// WithExporter also writes the collected batch to w.
func WithExporter(w OutputWriter) Option {
	return func(r *Runner) {
		r.exporter = w
	}
}

func NewRunner(collector BatchCollector, sink BookSink, store Store, opts ...Option) *Runner {
	r := &Runner{
		collector: collector,
		sink:      sink,
		store:     store,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes collect, ensure-table and load. The table step runs even when
// collection failed; load is skipped only when the table could not be ensured.
// Step errors are joined into the returned error.
func (r *Runner) Run(ctx context.Context, runID string, targetCount, maxPages int) (*RunSummary, error) {
	summary := &RunSummary{RunID: runID}

	collectErr := r.step(summary, StepCollect, func() error {
		return r.collect(ctx, summary, targetCount, maxPages)
	})

	ensureErr := r.step(summary, StepEnsureTable, func() error {
		return r.sink.EnsureTable(ctx)
	})
	if ensureErr != nil {
		slog.Error("skipping load, destination table unavailable", slog.String("run_id", runID))
		return summary, errors.Join(collectErr, ensureErr)
	}

	loadErr := r.step(summary, StepLoad, func() error {
		return r.load(ctx, summary)
	})

	return summary, errors.Join(collectErr, loadErr)
}

func (r *Runner) step(summary *RunSummary, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	summary.Steps = append(summary.Steps, StepResult{Name: name, Duration: time.Since(start), Err: err})

	if err != nil {
		slog.Error("step failed", slog.String("run_id", summary.RunID), slog.String("step", name), slog.Any("error", err))
	} else {
		slog.Info("step finished", slog.String("run_id", summary.RunID), slog.String("step", name))
	}
	return err
}

func (r *Runner) collect(ctx context.Context, summary *RunSummary, targetCount, maxPages int) error {
	report, err := r.collector.Collect(ctx, targetCount, maxPages)
	if err != nil {
		return err
	}
	summary.Report = report

	payload, err := EncodeBatch(report.Books)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, summary.RunID, BatchKey, payload); err != nil {
		return fmt.Errorf("hand off batch: %w", err)
	}

	if r.exporter != nil && len(report.Books) > 0 {
		if err := r.exporter.Write(report.Books); err != nil {
			return fmt.Errorf("export batch: %w", err)
		}
	}
	return nil
}

func (r *Runner) load(ctx context.Context, summary *RunSummary) error {
	payload, err := r.store.Get(ctx, summary.RunID, BatchKey)
	if errors.Is(err, ErrNotFound) {
		slog.Warn("no batch handed off for run, nothing to load", slog.String("run_id", summary.RunID))
		payload = nil
	} else if err != nil {
		return fmt.Errorf("fetch handed off batch: %w", err)
	}

	books, err := DecodeBatch(payload)
	if err != nil {
		return err
	}

	n, err := r.sink.Load(ctx, books)
	summary.Loaded = n
	return err
}
