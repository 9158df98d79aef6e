package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/progress"
	"github.com/sells-group/postal-enrich/internal/resilience"
)

// RowProcessor expands one record into rows.
type RowProcessor interface {
	Process(ctx context.Context, rec model.InputRecord) ([]model.OutputRow, error)
}

// Merger persists rows into the output table.
type Merger interface {
	Merge(ctx context.Context, rows []model.OutputRow) error
}

// Ledger records per-record results.
type Ledger interface {
	RecordResult(ctx context.Context, res *model.RecordResult) error
}

// Runner is the single sequential worker of a run.
type Runner struct {
	processor RowProcessor
	merger    Merger
	ledger    Ledger
	sink      progress.Sink
	log       *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLedger records a RecordResult per processed record.
func WithLedger(l Ledger) RunnerOption {
	return func(r *Runner) { r.ledger = l }
}

// WithSink publishes progress and completion events.
func WithSink(s progress.Sink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

// NewRunner creates a Runner.
func NewRunner(processor RowProcessor, merger Merger, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		processor: processor,
		merger:    merger,
		sink:      progress.Discard{},
		log:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes records one at a time, merging each record's rows before
// moving on. A failed record becomes an ERROR row and the run continues; a
// merge failure or cancellation stops the run. Exactly one completion event
// is published.
func (r *Runner) Run(ctx context.Context, runID string, records []model.InputRecord) (model.RunSummary, error) {
	var summary model.RunSummary
	err := r.run(ctx, runID, records, &summary)
	if err != nil {
		summary.Error = err.Error()
	}
	r.sink.Complete(err)
	return summary, err
}

func (r *Runner) run(ctx context.Context, runID string, records []model.InputRecord, summary *model.RunSummary) error {
	total := len(records)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "enrich: run cancelled")
		}

		start := time.Now()
		rows, perr := r.processor.Process(ctx, rec)

		if len(rows) > 0 {
			if err := r.merger.Merge(ctx, rows); err != nil {
				return eris.Wrapf(err, "enrich: merge record %d", i+1)
			}
		}

		res := resultFor(runID, i, rec, rows, perr, time.Since(start))
		summary.Processed++
		summary.Emails += res.Emails
		if res.Status == model.StatusError {
			summary.Failed++
		} else {
			summary.Succeeded++
		}

		if r.ledger != nil {
			if err := r.ledger.RecordResult(ctx, res); err != nil {
				r.log.Warn("enrich: record result failed", zap.Int("index", i), zap.Error(err))
			}
		}

		r.sink.Progress(i+1, total)
	}
	return nil
}

func resultFor(runID string, index int, rec model.InputRecord, rows []model.OutputRow, perr error, elapsed time.Duration) *model.RecordResult {
	res := &model.RecordResult{
		ID:         uuid.New().String(),
		RunID:      runID,
		Index:      index,
		Record:     rec,
		Status:     model.StatusSuccess,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	for _, row := range rows {
		if row.City != "" || row.District != "" {
			res.Cities++
		}
		res.Emails += len(row.Emails)
	}
	if perr != nil {
		res.Status = model.StatusError
		res.Error = perr.Error()
		res.ErrorType = resilience.ClassifyError(perr)
	}
	return res
}
