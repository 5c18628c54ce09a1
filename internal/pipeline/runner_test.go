package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/archive"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ingestion"
	"github.com/NathanBvumbwe/peza-ganyu/internal/sources"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeIngester struct {
	result *ingestion.Result
	err    error
	calls  int
}

func (f *fakeIngester) RunAllSources(context.Context, []sources.Adapter) (*ingestion.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeCategorizer struct {
	report types.CategorizeReport
	calls  int
}

func (f *fakeCategorizer) Run(context.Context) types.CategorizeReport {
	f.calls++
	return f.report
}

type fakeRecomputer struct {
	report types.MatchReport
	err    error
	topN   int
	calls  int
}

func (f *fakeRecomputer) RecomputeAll(_ context.Context, topN int) (types.MatchReport, error) {
	f.calls++
	f.topN = topN
	return f.report, f.err
}

type fakeArchiver struct {
	snap archive.Snapshot
	err  error
}

func (f *fakeArchiver) Archive(_ context.Context, snap archive.Snapshot) (string, error) {
	f.snap = snap
	if f.err != nil {
		return "", f.err
	}
	return "s3://bucket/" + snap.RunID + ".json", nil
}

type progressLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (p *progressLog) record(ev ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *progressLog) steps() []string {
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Step + ":" + ev.Status
	}
	return out
}

func clock() func() time.Time {
	t := time.Date(2026, 5, 20, 7, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func ingestResult() *ingestion.Result {
	return &ingestion.Result{
		Report: types.IngestReport{
			Sources:  []types.SourceOutcome{{Source: "A", Postings: 1}, {Source: "B", Error: "timeout"}},
			Fetched:  1,
			Unique:   1,
			Inserted: 1,
		},
		Postings: []types.RawPosting{{ID: 1, Title: "Accountant", CanonicalURL: "https://a.example/1", SourceID: "a.example"}},
	}
}

func TestRunner_Run(t *testing.T) {
	ing := &fakeIngester{result: ingestResult()}
	cat := &fakeCategorizer{report: types.CategorizeReport{Categorized: 1}}
	rec := &fakeRecomputer{report: types.MatchReport{Succeeded: 2, Written: 2}}
	arch := &fakeArchiver{}
	progress := &progressLog{}

	r := NewRunner(ing, cat, rec, Options{TopN: 6, Archiver: arch, OnProgress: progress.record, Now: clock()})
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.True(t, report.FinishedAt.After(report.StartedAt))
	assert.Equal(t, 1, report.Ingest.Inserted)
	assert.Equal(t, 1, report.Ingest.SourceFailures(), "a failed source does not fail the run")
	assert.Equal(t, 1, report.Categorize.Categorized)
	assert.Equal(t, 2, report.Match.Written)
	assert.Equal(t, 6, rec.topN)

	assert.Equal(t, report.RunID.String(), arch.snap.RunID)
	assert.Len(t, arch.snap.Postings, 1)
	assert.Equal(t, "s3://bucket/"+report.RunID.String()+".json", report.Archive)

	assert.Equal(t, []string{
		"run:started",
		"ingest:started", "ingest:completed",
		"archive:completed",
		"categorize:started", "categorize:completed",
		"match:started", "match:completed",
		"run:completed",
	}, progress.steps())
	for _, ev := range progress.events {
		assert.Equal(t, report.RunID.String(), ev.RunID)
	}
}

func TestRunner_Run_IngestFailureIsFatal(t *testing.T) {
	ing := &fakeIngester{err: errors.New("failed to ensure schema: connection refused")}
	cat := &fakeCategorizer{}
	rec := &fakeRecomputer{}

	report, err := NewRunner(ing, cat, rec, Options{TopN: 6}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
	require.NotNil(t, report)
	assert.False(t, report.FinishedAt.IsZero())
	assert.Zero(t, cat.calls)
	assert.Zero(t, rec.calls)
}

func TestRunner_Run_SkippedCategorizationStillMatches(t *testing.T) {
	progress := &progressLog{}
	cat := &fakeCategorizer{report: types.CategorizeReport{Skipped: true, Reason: "model unavailable"}}
	rec := &fakeRecomputer{}

	report, err := NewRunner(&fakeIngester{result: ingestResult()}, cat, rec, Options{TopN: 5, OnProgress: progress.record}).
		Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Categorize.Skipped)
	assert.Equal(t, 1, rec.calls)
	assert.Contains(t, progress.steps(), "categorize:skipped")
}

func TestRunner_Run_MatchListFailure(t *testing.T) {
	rec := &fakeRecomputer{err: errors.New("failed to list users: timeout")}

	report, err := NewRunner(&fakeIngester{result: ingestResult()}, &fakeCategorizer{}, rec, Options{TopN: 5}).
		Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matching failed")
	assert.Equal(t, 1, report.Ingest.Inserted, "earlier stages are still reported")
}

func TestRunner_ArchiveFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	arch := &fakeArchiver{err: errors.New("access denied")}

	r := NewRunner(&fakeIngester{result: ingestResult()}, &fakeCategorizer{}, &fakeRecomputer{},
		Options{TopN: 5, Archiver: arch, Logger: zap.New(core)})
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Archive)
	assert.Equal(t, 1, logs.FilterMessage("failed to archive ingestion snapshot").Len())
}

func TestRunner_IngestWithoutArchiver(t *testing.T) {
	r := NewRunner(&fakeIngester{result: ingestResult()}, &fakeCategorizer{}, &fakeRecomputer{}, Options{})

	report, loc, err := r.Ingest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, loc)
	assert.Equal(t, 1, report.Fetched)
}
