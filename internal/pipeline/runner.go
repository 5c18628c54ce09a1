// Package pipeline runs a full ingestion cycle: ingest every source,
// categorize the raw postings, then recompute every user's matches.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/archive"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ingestion"
	"github.com/NathanBvumbwe/peza-ganyu/internal/sources"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ingester runs the source adapters.
type Ingester interface {
	RunAllSources(ctx context.Context, adapters []sources.Adapter) (*ingestion.Result, error)
}

// Categorizer runs the categorization stage.
type Categorizer interface {
	Run(ctx context.Context) types.CategorizeReport
}

// Recomputer recomputes every user's matches.
type Recomputer interface {
	RecomputeAll(ctx context.Context, topN int) (types.MatchReport, error)
}

// Options configures a Runner.
type Options struct {
	Adapters   []sources.Adapter
	TopN       int
	Archiver   archive.Archiver
	Logger     *zap.Logger
	OnProgress ProgressCallback
	Now        func() time.Time
}

// Runner sequences the pipeline stages.
type Runner struct {
	ingester    Ingester
	categorizer Categorizer
	recomputer  Recomputer
	opts        Options
	logger      *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(ing Ingester, cat Categorizer, rec Recomputer, opts Options) *Runner {
	if opts.Archiver == nil {
		opts.Archiver = archive.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{ingester: ing, categorizer: cat, recomputer: rec, opts: opts, logger: opts.Logger}
}

func (r *Runner) emit(runID uuid.UUID, step, status, message string, content any) {
	if r.opts.OnProgress == nil {
		return
	}
	ev := ProgressEvent{Step: step, Status: status, Message: message, Content: content}
	if runID != uuid.Nil {
		ev.RunID = runID.String()
	}
	r.opts.OnProgress(ev)
}

// Ingest runs every adapter and archives the aggregate. The returned
// location is empty when nothing was archived. Archive failures are
// logged, never returned.
func (r *Runner) Ingest(ctx context.Context, runID uuid.UUID) (types.IngestReport, string, error) {
	r.emit(runID, StepIngest, StatusStarted, fmt.Sprintf("running %d sources", len(r.opts.Adapters)), nil)
	res, err := r.ingester.RunAllSources(ctx, r.opts.Adapters)
	if err != nil {
		r.emit(runID, StepIngest, StatusFailed, err.Error(), nil)
		return types.IngestReport{}, "", err
	}
	r.emit(runID, StepIngest, StatusCompleted,
		fmt.Sprintf("%d fetched, %d inserted", res.Report.Fetched, res.Report.Inserted), res.Report)

	loc, err := r.opts.Archiver.Archive(ctx, archive.Snapshot{
		RunID:     runID.String(),
		CreatedAt: r.opts.Now(),
		Report:    res.Report,
		Postings:  res.Postings,
	})
	switch {
	case err != nil:
		r.logger.Warn("failed to archive ingestion snapshot", zap.String("run_id", runID.String()), zap.Error(err))
		r.emit(runID, StepArchive, StatusFailed, err.Error(), nil)
	case loc != "":
		r.logger.Info("archived ingestion snapshot", zap.String("location", loc))
		r.emit(runID, StepArchive, StatusCompleted, loc, nil)
	}
	return res.Report, loc, nil
}

// Categorize runs the categorization stage. It never fails.
func (r *Runner) Categorize(ctx context.Context, runID uuid.UUID) types.CategorizeReport {
	r.emit(runID, StepCategorize, StatusStarted, "categorizing raw postings", nil)
	report := r.categorizer.Run(ctx)
	if report.Skipped {
		r.emit(runID, StepCategorize, StatusSkipped, report.Reason, report)
	} else {
		r.emit(runID, StepCategorize, StatusCompleted, fmt.Sprintf("%d categorized", report.Categorized), report)
	}
	return report
}

// Match recomputes every user's matches.
func (r *Runner) Match(ctx context.Context, runID uuid.UUID) (types.MatchReport, error) {
	r.emit(runID, StepMatch, StatusStarted, fmt.Sprintf("recomputing top %d matches", r.opts.TopN), nil)
	report, err := r.recomputer.RecomputeAll(ctx, r.opts.TopN)
	if err != nil {
		r.emit(runID, StepMatch, StatusFailed, err.Error(), nil)
		return report, err
	}
	r.emit(runID, StepMatch, StatusCompleted,
		fmt.Sprintf("%d users, %d failed", len(report.Users), report.Failed), report)
	return report, nil
}

// Run executes ingest, categorize and match in order. Per-source,
// per-posting and per-user failures are recorded in the report; only a
// stage that cannot start (store unreachable, schema failure) ends the run
// with an error, in which case the partial report is still returned.
func (r *Runner) Run(ctx context.Context) (*types.RunReport, error) {
	report := &types.RunReport{RunID: uuid.New(), StartedAt: r.opts.Now()}
	logger := r.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("pipeline run started")
	r.emit(report.RunID, StepRun, StatusStarted, "pipeline run started", nil)

	finish := func(err error) (*types.RunReport, error) {
		report.FinishedAt = r.opts.Now()
		if err != nil {
			logger.Error("pipeline run failed", zap.Error(err))
			r.emit(report.RunID, StepRun, StatusFailed, err.Error(), report)
			return report, err
		}
		logger.Info("pipeline run finished",
			zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
			zap.Int("source_failures", report.Ingest.SourceFailures()),
			zap.Int("user_failures", report.Match.Failed))
		r.emit(report.RunID, StepRun, StatusCompleted, "pipeline run finished", report)
		return report, nil
	}

	ingest, loc, err := r.Ingest(ctx, report.RunID)
	if err != nil {
		return finish(fmt.Errorf("ingestion failed: %w", err))
	}
	report.Ingest = ingest
	report.Archive = loc

	report.Categorize = r.Categorize(ctx, report.RunID)

	match, err := r.Match(ctx, report.RunID)
	report.Match = match
	if err != nil {
		return finish(fmt.Errorf("matching failed: %w", err))
	}
	return finish(nil)
}
