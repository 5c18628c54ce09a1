// Package ingestion drives the source adapters, normalizes and
// deduplicates their postings and persists them with insert-or-ignore
// semantics.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/sources"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the deduplicating posting store.
type Store interface {
	EnsureSchema(ctx context.Context) (types.SchemaStatus, error)
	InsertRawPosting(ctx context.Context, p *types.RawPosting) (bool, error)
	// GetRawPostingByURL returns the stored posting for a canonical URL, or
	// nil when there is none.
	GetRawPostingByURL(ctx context.Context, url string) (*types.RawPosting, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Source is handed to every adapter.
	Source sources.Config
	// Concurrency is how many adapters run at once; 1 runs them in order.
	Concurrency int
	Logger      *zap.Logger
}

// Orchestrator runs every adapter once per invocation with per-source
// failure isolation.
type Orchestrator struct {
	store       Store
	source      sources.Config
	concurrency int
	logger      *zap.Logger
}

// Result is the outcome of one ingestion cycle.
type Result struct {
	Report types.IngestReport
	// Postings is the normalized, in-batch deduplicated aggregate. Postings
	// that were inserted carry their store id.
	Postings []types.RawPosting
}

// NewOrchestrator creates an Orchestrator persisting into store.
func NewOrchestrator(store Store, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Source.Logger == nil {
		opts.Source.Logger = opts.Logger
	}
	return &Orchestrator{
		store:       store,
		source:      opts.Source,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

type sourceRun struct {
	outcome  types.SourceOutcome
	postings []types.RawPosting
}

// RunAllSources ensures the schema, runs every adapter, and persists the
// aggregate. Only a schema failure or cancellation is returned as an error;
// adapter and insert failures are recorded in the report.
func (o *Orchestrator) RunAllSources(ctx context.Context, adapters []sources.Adapter) (*Result, error) {
	status, err := o.store.EnsureSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	if status.ConstraintNew {
		o.logger.Info("added unique url constraint")
	}
	for _, d := range status.Duplicates {
		o.logger.Warn("duplicate url prevents unique url constraint",
			zap.String("url", d.URL), zap.Int("count", d.Count))
	}

	runs := o.runAdapters(ctx, adapters)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	seen := make(map[string]bool)
	for i := range runs {
		run := &runs[i]
		for _, p := range run.postings {
			res.Report.Fetched++
			normalized, err := Normalize(p)
			if err != nil {
				o.logger.Warn("dropping posting with invalid url",
					zap.String("source", run.outcome.Source), zap.String("url", p.CanonicalURL), zap.Error(err))
				run.outcome.ParseSkipped++
				continue
			}
			if seen[normalized.CanonicalURL] {
				res.Report.Duplicates++
				continue
			}
			seen[normalized.CanonicalURL] = true
			res.Postings = append(res.Postings, normalized)
		}
		res.Report.Sources = append(res.Report.Sources, run.outcome)
	}
	res.Report.Unique = len(res.Postings)

	if err := o.persist(ctx, res); err != nil {
		return nil, err
	}

	o.logger.Info("ingestion finished",
		zap.Int("sources", len(adapters)),
		zap.Int("source_failures", res.Report.SourceFailures()),
		zap.Int("fetched", res.Report.Fetched),
		zap.Int("inserted", res.Report.Inserted),
		zap.Int("duplicates", res.Report.Duplicates),
		zap.Int("insert_failed", res.Report.InsertFailed))
	return res, nil
}

// runAdapters runs each adapter exactly once and waits for all of them.
// Results are kept in adapter order.
func (o *Orchestrator) runAdapters(ctx context.Context, adapters []sources.Adapter) []sourceRun {
	runs := make([]sourceRun, len(adapters))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, adapter := range adapters {
		g.Go(func() error {
			runs[i] = o.runAdapter(ctx, adapter)
			return nil
		})
	}
	_ = g.Wait()

	return runs
}

func (o *Orchestrator) runAdapter(ctx context.Context, adapter sources.Adapter) (run sourceRun) {
	name := adapter.Name()
	logger := o.logger.With(zap.String("source", name))
	start := time.Now()
	run.outcome.Source = name

	defer func() {
		if r := recover(); r != nil {
			run.postings = nil
			run.outcome.Error = fmt.Sprintf("adapter panicked: %v", r)
			logger.Error("source failed", zap.Any("panic", r))
		}
		run.outcome.Duration = time.Since(start)
	}()

	logger.Info("starting source")
	result, err := adapter.Fetch(ctx, o.source)
	if err != nil {
		run.outcome.Error = err.Error()
		logger.Error("source failed", zap.Error(err))
		return run
	}
	if result == nil {
		result = &sources.Result{}
	}

	run.postings = result.Postings
	run.outcome.Postings = len(result.Postings)
	run.outcome.Tally(result.Items)
	if len(result.Postings) == 0 {
		logger.Warn("no postings scraped")
	}
	logger.Info("completed source",
		zap.Int("postings", run.outcome.Postings),
		zap.Int("parse_skipped", run.outcome.ParseSkipped),
		zap.Int("partial", run.outcome.Partial))
	return run
}

// persist inserts every posting; a failed insert is logged and skipped.
func (o *Orchestrator) persist(ctx context.Context, res *Result) error {
	for i := range res.Postings {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := &res.Postings[i]
		inserted, err := o.store.InsertRawPosting(ctx, p)
		switch {
		case err != nil:
			res.Report.InsertFailed++
			o.logger.Warn("failed to insert job",
				zap.String("source", p.SourceID), zap.String("url", p.CanonicalURL), zap.Error(err))
		case inserted:
			res.Report.Inserted++
		default:
			res.Report.Duplicates++
			o.logDuplicate(ctx, p)
		}
	}
	return nil
}

// logDuplicate reports which stored posting an ignored insert collided
// with. The lookup only happens when debug logging is on.
func (o *Orchestrator) logDuplicate(ctx context.Context, p *types.RawPosting) {
	ce := o.logger.Check(zap.DebugLevel, "skipped duplicate job")
	if ce == nil {
		return
	}
	fields := []zap.Field{zap.String("url", p.CanonicalURL), zap.String("source", p.SourceID)}
	existing, err := o.store.GetRawPostingByURL(ctx, p.CanonicalURL)
	switch {
	case err != nil:
		fields = append(fields, zap.NamedError("lookup_error", err))
	case existing != nil:
		fields = append(fields,
			zap.Int64("existing_id", existing.ID),
			zap.String("existing_source", existing.SourceID),
			zap.Time("existing_date_posted", existing.DatePosted))
	}
	ce.Write(fields...)
}
