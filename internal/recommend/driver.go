// Package recommend recomputes and persists each user's top-N job matches.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/events"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ranking"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is how many users RecomputeAll scores at once.
const DefaultConcurrency = 4

// Store reads profiles and postings and replaces match sets.
type Store interface {
	GetUserProfile(ctx context.Context, id int64) (*types.UserProfile, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	ListCleanedPostings(ctx context.Context) ([]types.CleanedPosting, error)
	ReplaceMatches(ctx context.Context, userID int64, records []types.MatchRecord) error
}

// Scorer ranks postings for a profile text.
type Scorer interface {
	Score(ctx context.Context, profileText string, jobs []types.CleanedPosting, topN int) ([]types.ScoredJob, error)
}

// Options configures a Driver.
type Options struct {
	Concurrency int
	// Publisher receives an event after every replaced match set.
	Publisher events.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

// Driver recomputes match sets for one user or for everyone.
type Driver struct {
	store       Store
	scorer      Scorer
	publisher   events.Publisher
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewDriver creates a Driver.
func NewDriver(store Store, scorer Scorer, opts Options) *Driver {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{
		store:       store,
		scorer:      scorer,
		publisher:   opts.Publisher,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// RecomputeForUser replaces the user's matches and returns how many were
// written. An unknown user or an empty posting set writes nothing and is
// not an error.
func (d *Driver) RecomputeForUser(ctx context.Context, userID int64, topN int) (int, error) {
	postings, err := d.store.ListCleanedPostings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load cleaned postings: %w", err)
	}
	return d.recompute(ctx, userID, postings, topN)
}

// RecomputeAll recomputes every user against one shared posting snapshot.
// A failing user is recorded in the report and never stops the batch; only
// failing to list users or postings is returned as an error.
func (d *Driver) RecomputeAll(ctx context.Context, topN int) (types.MatchReport, error) {
	var report types.MatchReport

	ids, err := d.store.ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	postings, err := d.store.ListCleanedPostings(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load cleaned postings: %w", err)
	}

	outcomes := make([]types.UserOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = d.recomputeIsolated(ctx, id, postings, topN)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.Add(o)
	}
	d.logger.Info("match recompute finished",
		zap.Int("users", len(ids)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("written", report.Written))
	return report, nil
}

func (d *Driver) recomputeIsolated(ctx context.Context, userID int64, postings []types.CleanedPosting, topN int) (out types.UserOutcome) {
	out.UserID = userID
	defer func() {
		if r := recover(); r != nil {
			out.Matches = 0
			out.Error = fmt.Sprintf("recompute panicked: %v", r)
			d.logger.Error("user recompute failed", zap.Int64("user_id", userID), zap.Any("panic", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}
	n, err := d.recompute(ctx, userID, postings, topN)
	if err != nil {
		out.Error = err.Error()
		d.logger.Error("user recompute failed", zap.Int64("user_id", userID), zap.Error(err))
		return out
	}
	out.Matches = n
	return out
}

// recompute scores postings for one user. postings is shared between
// goroutines and must not be modified.
func (d *Driver) recompute(ctx context.Context, userID int64, postings []types.CleanedPosting, topN int) (int, error) {
	user, err := d.store.GetUserProfile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		d.logger.Info("user not found, skipping", zap.Int64("user_id", userID))
		return 0, nil
	}
	if len(postings) == 0 {
		d.logger.Info("no cleaned postings to match", zap.Int64("user_id", userID))
		return 0, nil
	}

	ranked, err := d.scorer.Score(ctx, ranking.ProfileText(user), postings, topN)
	if err != nil {
		return 0, fmt.Errorf("failed to score postings for user %d: %w", userID, err)
	}

	records := types.NewMatchRecords(user, ranked)
	if err := d.store.ReplaceMatches(ctx, userID, records); err != nil {
		return 0, fmt.Errorf("failed to replace matches for user %d: %w", userID, err)
	}
	d.logger.Debug("replaced matches", zap.Int64("user_id", userID), zap.Int("matches", len(records)))

	ev := events.MatchesUpdated{UserID: userID, Matches: len(records), RunAt: d.now().UTC()}
	if err := d.publisher.PublishMatchesUpdated(ctx, ev); err != nil {
		d.logger.Warn("failed to publish match update", zap.Int64("user_id", userID), zap.Error(err))
	}
	return len(records), nil
}
