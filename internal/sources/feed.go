package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// FeedAdapter reads postings from an RSS or Atom job feed. Feeds carry the
// description inline, so no detail pages are fetched.
type FeedAdapter struct {
	name    string
	feedURL string
}

// NewFeed returns an adapter for the feed at feedURL.
func NewFeed(name, feedURL string) *FeedAdapter {
	return &FeedAdapter{name: name, feedURL: feedURL}
}

// Name returns the adapter name used in configuration.
func (f *FeedAdapter) Name() string { return f.name }

// Fetch downloads and parses the feed. A feed that cannot be fetched or
// parsed fails the source; individual bad entries are skipped.
func (f *FeedAdapter) Fetch(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With(zap.String("source", f.name))
	fetcher := fetch.NewLimited(cfg.Fetcher, cfg.RequestDelay)

	base, err := url.Parse(f.feedURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%s: invalid feed url %q", f.name, f.feedURL)
	}

	raw, err := fetch.Retry(ctx, cfg.ListRetry, logger, func(ctx context.Context) (*fetch.Result, error) {
		return fetcher.Get(ctx, f.feedURL)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch feed: %w", f.name, err)
	}

	feed, err := gofeed.NewParser().ParseString(raw.HTML)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse feed: %w", f.name, err)
	}
	logger.Info("parsed feed", zap.String("title", feed.Title), zap.Int("items", len(feed.Items)))

	now := cfg.Now()
	res := &Result{}
	for i, item := range feed.Items {
		ref := item.Link
		if ref == "" {
			ref = fmt.Sprintf("%s#%d", f.feedURL, i)
		}

		href := strings.TrimSpace(item.Link)
		if href == "" {
			res.skip(ref, types.ItemSkippedParse, (&ParseError{Source: f.name, Ref: ref, Missing: []string{"url"}}).Error())
			continue
		}
		link, err := base.Parse(href)
		if err != nil {
			res.skip(ref, types.ItemSkippedParse, err.Error())
			continue
		}

		date := types.DateOnly(now)
		if item.PublishedParsed != nil {
			date = types.DateOnly(*item.PublishedParsed)
		} else if item.UpdatedParsed != nil {
			date = types.DateOnly(*item.UpdatedParsed)
		}

		company := ""
		if item.Author != nil {
			company = item.Author.Name
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}
		description := htmlText(body)

		p := types.RawPosting{
			Title:           cleanText(item.Title),
			Company:         orNotAvailable(cleanText(company)),
			Location:        types.NotAvailable,
			EmploymentType:  types.NotAvailable,
			DatePosted:      date,
			CanonicalURL:    link.String(),
			SourceID:        base.Host,
			Description:     description,
			ExtractedSkills: SkillsFromText(description),
		}
		if err := p.Validate(); err != nil {
			logger.Warn("skipping invalid feed entry", zap.String("ref", ref), zap.Error(err))
			res.skip(ref, types.ItemSkippedParse, err.Error())
			continue
		}
		res.add(p, types.ItemOK, "")
	}
	return res, nil
}

// htmlText returns the visible text of an HTML fragment.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return cleanText(fragment)
	}
	return cleanText(doc.Text())
}
