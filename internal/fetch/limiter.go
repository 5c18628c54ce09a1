package fetch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited spaces requests made through the wrapped Fetcher at least
// interval apart. One Limited is shared by every request to a source.
type Limited struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewLimited wraps next. A non-positive interval disables limiting.
func NewLimited(next Fetcher, interval time.Duration) *Limited {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Get waits for the limiter and delegates to the wrapped Fetcher.
func (l *Limited) Get(ctx context.Context, urlStr string) (*Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "rate limiter wait",
			Cause:     err,
			permanent: true,
		}
	}
	return l.next.Get(ctx, urlStr)
}
