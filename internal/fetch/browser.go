package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultSettleTime is how long the browser waits after the body is ready
// for client-side rendering to finish.
const DefaultSettleTime = 3 * time.Second

// Browser renders pages in headless Chrome. Each Get starts its own browser
// process and tears it down before returning.
// Requires Chrome/Chromium to be installed on the system.
type Browser struct {
	opts   Options
	settle time.Duration
}

// NewBrowser creates a headless browser fetcher. A nil opts uses DefaultOptions.
func NewBrowser(opts *Options) *Browser {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return &Browser{opts: o, settle: DefaultSettleTime}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	if b.opts.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.opts.Proxy))
	}
	return opts
}

// Get navigates to urlStr and returns the rendered HTML.
func (b *Browser) Get(ctx context.Context, urlStr string) (*Result, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.opts.Timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "browser rendering failed",
			Cause:   err,
		}
	}

	return &Result{
		URL:         urlStr,
		HTML:        html,
		ContentType: "text/html",
		StatusCode:  200,
	}, nil
}
