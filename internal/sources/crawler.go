package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Card is what a list page reveals about one posting.
type Card struct {
	Title          string
	Company        string
	Location       string
	EmploymentType string
	URL            string
	RawDate        string
}

// CardParser extracts a Card from one list page element. It returns a
// *ParseError when required fields are missing.
type CardParser func(card *goquery.Selection) (Card, error)

// ListingCrawler is the shared engine for paginated job boards: list
// pages yield cards, each card links to a detail page with the
// description and skills.
type ListingCrawler struct {
	name         string
	sourceID     string
	baseURL      string
	pages        int
	cardSelector string
	parseCard    CardParser
}

// Option customizes a ListingCrawler.
type Option func(*ListingCrawler)

// WithBaseURL overrides the first list page URL.
func WithBaseURL(u string) Option {
	return func(c *ListingCrawler) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithPages overrides how many list pages are crawled.
func WithPages(n int) Option {
	return func(c *ListingCrawler) {
		if n > 0 {
			c.pages = n
		}
	}
}

func newListingCrawler(c *ListingCrawler, opts []Option) *ListingCrawler {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the adapter name used in configuration.
func (c *ListingCrawler) Name() string { return c.name }

// SourceID returns the source identity stored with each posting.
func (c *ListingCrawler) SourceID() string { return c.sourceID }

// PageURL returns the URL of list page n (1-based).
func (c *ListingCrawler) PageURL(n int) string {
	if n <= 1 {
		return c.baseURL
	}
	return fmt.Sprintf("%spage/%d/", c.baseURL, n)
}

// Fetch crawls the list pages and every card's detail page. A list page
// that keeps failing is recorded and skipped; the fetch fails as a whole
// only when no posting could be produced and a list page failed.
func (c *ListingCrawler) Fetch(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With(zap.String("source", c.name))
	fetcher := fetch.NewLimited(cfg.Fetcher, cfg.RequestDelay)

	res := &Result{}
	var lastListErr error

	for page := 1; page <= c.pages; page++ {
		pageURL := c.PageURL(page)
		logger.Info("scraping list page", zap.Int("page", page), zap.String("url", pageURL))

		doc, err := fetch.Retry(ctx, cfg.ListRetry, logger, func(ctx context.Context) (*goquery.Document, error) {
			r, err := fetcher.Get(ctx, pageURL)
			if err != nil {
				return nil, err
			}
			return goquery.NewDocumentFromReader(strings.NewReader(r.HTML))
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("all attempts to scrape list page failed", zap.String("url", pageURL), zap.Error(err))
			res.skip(pageURL, types.ItemSkippedFetch, err.Error())
			lastListErr = err
			continue
		}

		cards := doc.Find(c.cardSelector)
		if cards.Length() == 0 {
			logger.Info("no listings on page, stopping pagination", zap.Int("page", page))
			break
		}
		logger.Info("found job elements", zap.Int("page", page), zap.Int("count", cards.Length()))

		base, _ := url.Parse(pageURL)
		for i := range cards.Length() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ref := fmt.Sprintf("%s#%d", pageURL, i)
			c.processCard(ctx, cfg, fetcher, logger, base, ref, cards.Eq(i), res)
		}
	}

	if len(res.Postings) == 0 && lastListErr != nil {
		return nil, fmt.Errorf("%s: no postings scraped: %w", c.name, lastListErr)
	}
	return res, nil
}

func (c *ListingCrawler) processCard(ctx context.Context, cfg Config, fetcher fetch.Fetcher, logger *zap.Logger,
	base *url.URL, ref string, sel *goquery.Selection, res *Result) {
	card, err := c.parseCard(sel)
	if err != nil {
		logger.Warn("skipping job due to parse failure", zap.String("ref", ref), zap.Error(err))
		res.skip(ref, types.ItemSkippedParse, err.Error())
		return
	}

	link, err := base.Parse(card.URL)
	if err != nil {
		logger.Warn("skipping job with invalid url", zap.String("ref", ref), zap.String("url", card.URL))
		res.skip(ref, types.ItemSkippedParse, (&ParseError{Source: c.name, Ref: ref, Cause: err}).Error())
		return
	}

	p := types.RawPosting{
		Title:          card.Title,
		Company:        orNotAvailable(card.Company),
		Location:       orNotAvailable(card.Location),
		EmploymentType: orNotAvailable(card.EmploymentType),
		DatePosted:     NormalizeDate(card.RawDate, cfg.Now()),
		CanonicalURL:   link.String(),
		SourceID:       c.sourceID,
	}
	if err := p.Validate(); err != nil {
		logger.Warn("skipping invalid job", zap.String("ref", ref), zap.Error(err))
		res.skip(ref, types.ItemSkippedParse, err.Error())
		return
	}

	detail, err := fetch.Retry(ctx, cfg.DetailRetry, logger, func(ctx context.Context) (*fetch.Result, error) {
		return fetcher.Get(ctx, p.CanonicalURL)
	})
	if err != nil {
		logger.Warn("failed to scrape details", zap.String("url", p.CanonicalURL), zap.Error(err))
		res.add(p, types.ItemPartial, err.Error())
		return
	}

	p.Description, p.ExtractedSkills = ParseDetail(detail.HTML, link)
	logger.Debug("parsed job",
		zap.String("title", p.Title),
		zap.Int("description_chars", len(p.Description)),
		zap.Strings("skills", p.ExtractedSkills))
	res.add(p, types.ItemOK, "")
}

func orNotAvailable(s string) string {
	if s == "" {
		return types.NotAvailable
	}
	return s
}

// requireFields returns a *ParseError naming every empty required field.
func requireFields(source, ref string, fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ParseError{Source: source, Ref: ref, Missing: missing}
}
