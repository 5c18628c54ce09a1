// Package sources implements the source adapters that scrape job postings
// from external job boards and feeds.
package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"go.uber.org/zap"
)

// Adapter fetches raw postings for one source. Site-specific extraction
// lives entirely inside the adapter.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, cfg Config) (*Result, error)
}

// Config is the per-run environment handed to an adapter.
type Config struct {
	// Fetcher performs the requests. It is wrapped in a per-source rate
	// limiter by the adapter, so it may be shared between adapters.
	Fetcher      fetch.Fetcher
	RequestDelay time.Duration
	ListRetry    fetch.RetryPolicy
	DetailRetry  fetch.RetryPolicy
	Logger       *zap.Logger
	// Now is the fetch clock, used for postings without a usable date.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Fetcher == nil {
		c.Fetcher, _ = fetch.NewHTTP(nil)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Result is a best-effort partial result: the postings that could be built
// and one outcome per item or page attempted.
type Result struct {
	Postings []types.RawPosting
	Items    []types.ItemOutcome
}

func (r *Result) add(p types.RawPosting, status types.ItemStatus, reason string) {
	r.Postings = append(r.Postings, p)
	r.Items = append(r.Items, types.ItemOutcome{Ref: p.CanonicalURL, Status: status, Reason: reason})
}

func (r *Result) skip(ref string, status types.ItemStatus, reason string) {
	r.Items = append(r.Items, types.ItemOutcome{Ref: ref, Status: status, Reason: reason})
}

// ParseError reports an item whose required fields could not be extracted.
type ParseError struct {
	Source  string
	Ref     string
	Missing []string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in %s item %s: %v", e.Source, e.Ref, e.Cause)
	}
	return fmt.Sprintf("parse error in %s item %s: missing %s", e.Source, e.Ref, strings.Join(e.Missing, ", "))
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
