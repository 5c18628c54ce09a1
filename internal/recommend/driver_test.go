package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/embedding"
	"github.com/NathanBvumbwe/peza-ganyu/internal/events"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ranking"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	mu         sync.Mutex
	users      map[int64]*types.UserProfile
	postings   []types.CleanedPosting
	matches    map[int64][]types.MatchRecord
	failUser   map[int64]error
	failWrite  map[int64]error
	listErr    error
	postingErr error
	postLoads  atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*types.UserProfile{},
		matches:   map[int64][]types.MatchRecord{},
		failUser:  map[int64]error{},
		failWrite: map[int64]error{},
	}
}

func (m *memStore) GetUserProfile(_ context.Context, id int64) (*types.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUser[id]; err != nil {
		return nil, err
	}
	return m.users[id], nil
}

func (m *memStore) ListUserIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]int64, 0, len(m.users))
	for id := int64(1); id <= 100; id++ {
		if _, ok := m.users[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) ListCleanedPostings(context.Context) ([]types.CleanedPosting, error) {
	m.postLoads.Add(1)
	return m.postings, m.postingErr
}

func (m *memStore) ReplaceMatches(_ context.Context, userID int64, records []types.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failWrite[userID]; err != nil {
		return err
	}
	m.matches[userID] = records
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MatchesUpdated
	err    error
}

func (p *recordingPublisher) PublishMatchesUpdated(_ context.Context, ev events.MatchesUpdated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type panicScorer struct{ onText string }

func (s panicScorer) Score(ctx context.Context, text string, jobs []types.CleanedPosting, topN int) ([]types.ScoredJob, error) {
	if strings.Contains(text, s.onText) {
		panic("embedder exploded")
	}
	return ranking.NewMatcher(embedding.NewHashing(64)).Score(ctx, text, jobs, topN)
}

func posting(id int64, title, category string) types.CleanedPosting {
	return types.CleanedPosting{
		RawPosting: types.RawPosting{ID: id, Title: title, CanonicalURL: fmt.Sprintf("https://ntchito.com/job/%d", id)},
		Category:   category,
	}
}

func seeded() *memStore {
	s := newMemStore()
	s.users[1] = &types.UserProfile{ID: 1, Name: "Chikondi", Email: "c@example.com", Skills: []string{"python", "developer"}}
	s.users[2] = &types.UserProfile{ID: 2, Name: "Tiwonge", Email: "t@example.com", Experience: "registered nurse"}
	s.users[3] = &types.UserProfile{ID: 3, Name: "Kondwani", About: "accountant"}
	s.postings = []types.CleanedPosting{
		posting(10, "Python Developer", "Information Technology"),
		posting(11, "Registered Nurse", "Healthcare"),
		posting(12, "Accountant", "Finance & Accounting"),
	}
	return s
}

var fixedNow = func() time.Time { return time.Date(2026, 5, 20, 7, 0, 0, 0, time.UTC) }

func newDriver(store Store, scorer Scorer, opts Options) *Driver {
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return NewDriver(store, scorer, opts)
}

func TestRecomputeForUser(t *testing.T) {
	store := seeded()
	pub := &recordingPublisher{}
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(384)), Options{Publisher: pub})

	n, err := d.RecomputeForUser(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := store.matches[1]
	require.Len(t, records, 2)
	assert.Equal(t, int64(10), records[0].JobID)
	assert.Equal(t, "Chikondi", records[0].UserName)
	assert.Equal(t, "c@example.com", records[0].UserEmail)
	assert.Equal(t, "Python Developer", records[0].JobTitle)
	assert.Equal(t, "Information Technology", records[0].JobCategory)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.MatchesUpdated{UserID: 1, Matches: 2, RunAt: fixedNow()}, pub.events[0])
}

func TestRecomputeForUser_ReplacesPreviousSet(t *testing.T) {
	store := seeded()
	store.matches[1] = []types.MatchRecord{{UserID: 1, JobID: 999}}
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(384)), Options{})

	n, err := d.RecomputeForUser(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "fewer postings than N writes all of them")
	for _, r := range store.matches[1] {
		assert.NotEqual(t, int64(999), r.JobID)
	}
}

func TestRecomputeForUser_SoftNoOps(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		store := seeded()
		pub := &recordingPublisher{}
		d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{Publisher: pub})

		n, err := d.RecomputeForUser(context.Background(), 77, 6)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, store.matches)
		assert.Empty(t, pub.events)
	})

	t.Run("no postings", func(t *testing.T) {
		store := seeded()
		store.postings = nil
		store.matches[1] = []types.MatchRecord{{UserID: 1, JobID: 10}}
		d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{})

		n, err := d.RecomputeForUser(context.Background(), 1, 6)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, store.matches[1], 1, "existing matches are left alone")
	})
}

func TestRecomputeForUser_Errors(t *testing.T) {
	store := seeded()
	store.failWrite[1] = errors.New("deadlock detected")
	pub := &recordingPublisher{}
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{Publisher: pub})

	_, err := d.RecomputeForUser(context.Background(), 1, 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.Empty(t, pub.events, "no event when nothing was written")

	store.postingErr = errors.New("connection reset")
	_, err = d.RecomputeForUser(context.Background(), 2, 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load cleaned postings")
}

func TestRecomputeForUser_PublishFailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := seeded()
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{Publisher: pub, Logger: zap.New(core)})

	n, err := d.RecomputeForUser(context.Background(), 2, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish match update").Len())
}

func TestRecomputeAll_IsolatesFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := seeded()
	store.failUser[2] = errors.New("profile row corrupt")
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{Logger: zap.New(core), Concurrency: 2})

	report, err := d.RecomputeAll(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, report.Users, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{report.Users[0].UserID, report.Users[1].UserID, report.Users[2].UserID})
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.Written)
	assert.Contains(t, report.Users[1].Error, "profile row corrupt")
	assert.Len(t, store.matches[1], 2)
	assert.Len(t, store.matches[3], 2)

	failures := logs.FilterMessage("user recompute failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(2), failures[0].ContextMap()["user_id"])
}

func TestRecomputeAll_RecoversPanics(t *testing.T) {
	store := seeded()
	d := newDriver(store, panicScorer{onText: "Tiwonge"}, Options{})

	report, err := d.RecomputeAll(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Users[1].Error, "recompute panicked")
}

func TestRecomputeAll_LoadsPostingsOnce(t *testing.T) {
	store := seeded()
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{Concurrency: 3})

	_, err := d.RecomputeAll(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.postLoads.Load())
}

func TestRecomputeAll_ListFailures(t *testing.T) {
	store := seeded()
	store.listErr = errors.New("timeout")
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{})

	_, err := d.RecomputeAll(context.Background(), 6)
	assert.ErrorContains(t, err, "failed to list users")

	store.listErr = nil
	store.postingErr = errors.New("timeout")
	_, err = d.RecomputeAll(context.Background(), 6)
	assert.ErrorContains(t, err, "failed to load cleaned postings")
}

func TestRecomputeAll_CanceledContext(t *testing.T) {
	store := seeded()
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(64)), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.RecomputeAll(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)
	assert.Empty(t, store.matches)
}

func TestRecomputeAll_Deterministic(t *testing.T) {
	store := seeded()
	d := newDriver(store, ranking.NewMatcher(embedding.NewHashing(384)), Options{Concurrency: 3})

	_, err := d.RecomputeAll(context.Background(), 2)
	require.NoError(t, err)
	first := store.matches[1]

	_, err = d.RecomputeAll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, first, store.matches[1])
}
