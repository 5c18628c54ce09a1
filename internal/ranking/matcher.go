package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/embedding"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

// Matcher ranks postings for a profile text.
type Matcher struct {
	embedder embedding.Embedder
}

// NewMatcher creates a Matcher using embedder.
func NewMatcher(embedder embedding.Embedder) *Matcher {
	return &Matcher{embedder: embedder}
}

// Score embeds the profile and every job in a single call and returns the
// best min(topN, len(jobs)) jobs by similarity, highest first. Equal scores
// are ordered by ascending job ID, so the result is reproducible. A blank
// profile scores 0 against every job.
func (m *Matcher) Score(ctx context.Context, profileText string, jobs []types.CleanedPosting, topN int) ([]types.ScoredJob, error) {
	if topN < 1 {
		return nil, fmt.Errorf("top_n must be at least 1, got %d", topN)
	}
	if len(jobs) == 0 {
		return []types.ScoredJob{}, nil
	}

	// A blank profile is never embedded.
	blankProfile := strings.TrimSpace(profileText) == ""
	texts := make([]string, 0, len(jobs)+1)
	if !blankProfile {
		texts = append(texts, profileText)
	}
	for i := range jobs {
		texts = append(texts, JobText(&jobs[i]))
	}

	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	var profileVec []float32
	jobVecs := vecs
	if !blankProfile {
		profileVec, jobVecs = vecs[0], vecs[1:]
	}

	scored := make([]types.ScoredJob, len(jobs))
	for i := range jobs {
		scored[i] = types.ScoredJob{Job: jobs[i], Score: Cosine(profileVec, jobVecs[i])}
	}
	Rank(scored)

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

// Rank sorts by score descending, then job ID ascending.
func Rank(scored []types.ScoredJob) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Job.ID < scored[j].Job.ID
	})
}
