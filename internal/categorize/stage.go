package categorize

import (
	"context"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"go.uber.org/zap"
)

// Store reads raw postings and writes cleaned ones.
type Store interface {
	ListRawPostings(ctx context.Context) ([]types.RawPosting, error)
	UpsertCleanedPosting(ctx context.Context, p *types.CleanedPosting) error
}

// Stage categorizes every raw posting and replaces its cleaned copy.
type Stage struct {
	store       Store
	categorizer Categorizer
	logger      *zap.Logger
}

// NewStage creates a categorization stage.
func NewStage(store Store, categorizer Categorizer, logger *zap.Logger) *Stage {
	return &Stage{store: store, categorizer: categorizer, logger: observability.OrNop(logger)}
}

// Run never fails the pipeline. When postings cannot be listed or the
// categorizer errors, the stage is reported as skipped and existing
// cleaned postings keep their previous categories.
func (s *Stage) Run(ctx context.Context) types.CategorizeReport {
	var report types.CategorizeReport

	postings, err := s.store.ListRawPostings(ctx)
	if err != nil {
		return s.skip(report, fmt.Errorf("failed to list raw postings: %w", err))
	}
	if len(postings) == 0 {
		s.logger.Info("no raw postings to categorize")
		return report
	}

	inputs := make([]Input, len(postings))
	for i, p := range postings {
		inputs[i] = Input{ID: p.ID, Title: Preprocess(p.Title)}
	}

	labels, err := s.categorizer.Categorize(ctx, inputs)
	if err != nil {
		return s.skip(report, err)
	}
	if len(labels) != len(postings) {
		return s.skip(report, &ClassificationError{
			Message: fmt.Sprintf("got %d labels for %d postings", len(labels), len(postings)),
		})
	}

	for i := range postings {
		if err := ctx.Err(); err != nil {
			report.Reason = err.Error()
			break
		}
		cleaned := types.CleanedPosting{RawPosting: postings[i], Category: Canonical(labels[i])}
		if err := s.store.UpsertCleanedPosting(ctx, &cleaned); err != nil {
			report.Failed++
			s.logger.Error("failed to store cleaned posting",
				zap.Int64("posting_id", cleaned.ID), zap.String("url", cleaned.CanonicalURL), zap.Error(err))
			continue
		}
		report.Categorized++
	}

	s.logger.Info("categorization finished",
		zap.Int("categorized", report.Categorized), zap.Int("failed", report.Failed))
	return report
}

func (s *Stage) skip(report types.CategorizeReport, err error) types.CategorizeReport {
	s.logger.Error("categorization skipped", zap.Error(err))
	report.Skipped = true
	report.Reason = err.Error()
	return report
}
