package fetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFetcher struct {
	mu    sync.Mutex
	times []time.Time
}

func (r *recordingFetcher) Get(_ context.Context, urlStr string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, time.Now())
	return &Result{URL: urlStr, StatusCode: 200}, nil
}

func TestLimited_SpacesRequests(t *testing.T) {
	rec := &recordingFetcher{}
	l := NewLimited(rec, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := l.Get(context.Background(), "http://example.test")
		require.NoError(t, err)
	}

	require.Len(t, rec.times, 3)
	assert.GreaterOrEqual(t, rec.times[2].Sub(rec.times[0]), 90*time.Millisecond)
}

func TestLimited_ZeroIntervalDoesNotWait(t *testing.T) {
	rec := &recordingFetcher{}
	l := NewLimited(rec, 0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := l.Get(context.Background(), "http://example.test")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimited_CanceledContext(t *testing.T) {
	rec := &recordingFetcher{}
	l := NewLimited(rec, time.Hour)

	_, err := l.Get(context.Background(), "http://example.test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Get(ctx, "http://example.test")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Len(t, rec.times, 1)
}

func TestNewBrowser_Defaults(t *testing.T) {
	b := NewBrowser(&Options{Proxy: "http://proxy.local:3128"})
	assert.Equal(t, DefaultTimeout, b.opts.Timeout)
	assert.Equal(t, DefaultUserAgent, b.opts.UserAgent)
	assert.Equal(t, DefaultSettleTime, b.settle)
	assert.Greater(t, len(b.allocatorOptions()), len(NewBrowser(nil).allocatorOptions()))
}
