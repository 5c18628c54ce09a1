package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		ListRetry:   fetch.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond},
		DetailRetry: fetch.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond},
		Now:         func() time.Time { return fixedNow },
	}
}

const jsmListPage = `<html><body>
<a href="/job/python-developer/">
  <h3>Python Developer</h3>
  <div class="company"><strong>Acme Malawi</strong></div>
  <div class="location">Lilongwe</div>
  <ul><li class="job-type">Full Time</li><li class="date"><time datetime="2026-05-18T08:00:00+00:00">2 days ago</time></li></ul>
</a>
<a href="/job/broken/">
  <h3>Missing company</h3>
  <div class="location">Blantyre</div>
</a>
<a href="/job/accountant/">
  <h3>Accountant</h3>
  <div class="company"><strong>Bank Co</strong></div>
  <div class="location">Blantyre</div>
</a>
</body></html>`

const pythonDetail = `<html><body>
<div class="job-description">
  <p>We need a developer. Skills: Python, Django and SQL. Apply now.</p>
</div>
</body></html>`

const accountantDetail = `<html><body>
<div class="entry-content">Prepare statements.</div>
<ul class="skills"><li>IFRS</li><li> Excel </li></ul>
</body></html>`

func newBoard(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func html(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}
}

func TestJobSearchMalawi_Fetch(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/":                  html(jsmListPage),
		"/jobs/page/2/":           html(`<html><body><p>No more jobs</p></body></html>`),
		"/job/python-developer/": html(pythonDetail),
		"/job/accountant/":       html(accountantDetail),
	})

	adapter := NewJobSearchMalawi(WithBaseURL(server.URL + "/jobs"))
	res, err := adapter.Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Postings, 2)

	py := res.Postings[0]
	assert.Equal(t, "Python Developer", py.Title)
	assert.Equal(t, "Acme Malawi", py.Company)
	assert.Equal(t, "Lilongwe", py.Location)
	assert.Equal(t, "Full Time", py.EmploymentType)
	assert.Equal(t, time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC), py.DatePosted)
	assert.Equal(t, server.URL+"/job/python-developer/", py.CanonicalURL)
	assert.Equal(t, "jobsearchmalawi.com", py.SourceID)
	assert.Contains(t, py.Description, "We need a developer")
	assert.Equal(t, []string{"Python", "Django", "SQL"}, py.ExtractedSkills)

	acc := res.Postings[1]
	assert.Equal(t, types.NotAvailable, acc.EmploymentType)
	assert.Equal(t, types.DateOnly(fixedNow), acc.DatePosted)
	assert.Equal(t, "Prepare statements.", acc.Description)
	assert.Equal(t, []string{"IFRS", "Excel"}, acc.ExtractedSkills)

	var o types.SourceOutcome
	o.Tally(res.Items)
	assert.Equal(t, 1, o.ParseSkipped)
	assert.Zero(t, o.Partial)
}

func TestListingCrawler_DetailFailureKeepsItem(t *testing.T) {
	var detailCalls int32
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/": html(jsmListPage),
		"/job/python-developer/": func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&detailCalls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"/job/accountant/": html(accountantDetail),
	})

	adapter := NewJobSearchMalawi(WithBaseURL(server.URL+"/jobs/"), WithPages(1))
	res, err := adapter.Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Postings, 2)

	assert.Empty(t, res.Postings[0].Description)
	assert.Empty(t, res.Postings[0].ExtractedSkills)
	assert.Equal(t, int32(3), atomic.LoadInt32(&detailCalls))

	var o types.SourceOutcome
	o.Tally(res.Items)
	assert.Equal(t, 1, o.Partial)
}

func TestListingCrawler_ListPageRetried(t *testing.T) {
	var listCalls int32
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/": func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&listCalls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			html(jsmListPage)(w, r)
		},
		"/job/python-developer/": html(pythonDetail),
		"/job/accountant/":       html(accountantDetail),
	})

	adapter := NewJobSearchMalawi(WithBaseURL(server.URL+"/jobs/"), WithPages(1))
	res, err := adapter.Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Len(t, res.Postings, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&listCalls))
}

func TestListingCrawler_AllListPagesFail(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	adapter := NewNtchito(WithBaseURL(server.URL + "/jobs/"))
	res, err := adapter.Fetch(context.Background(), testConfig())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "ntchito: no postings scraped")
}

func TestListingCrawler_LaterPageFailureIsPartial(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/": html(jsmListPage),
		"/jobs/page/2/": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"/job/python-developer/": html(pythonDetail),
		"/job/accountant/":       html(accountantDetail),
	})

	adapter := NewJobSearchMalawi(WithBaseURL(server.URL+"/jobs/"), WithPages(2))
	res, err := adapter.Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Len(t, res.Postings, 2)

	var o types.SourceOutcome
	o.Tally(res.Items)
	assert.Equal(t, 1, o.FetchSkipped)
}

func TestListingCrawler_CanceledContext(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{"/jobs/": html(jsmListPage)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJobSearchMalawi(WithBaseURL(server.URL+"/jobs/")).Fetch(ctx, testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNtchito_Fetch(t *testing.T) {
	list := `<html><body>
<article class="job_listing">
  <h2 class="entry-title"><a href="/job/nurse/">Registered Nurse</a></h2>
  <div class="company-address">Mzuzu</div>
  <ul><li class="job-type">Contract</li><li class="date">Posted 3 days ago</li></ul>
</article>
<article class="job_listing">
  <h2 class="entry-title">No link</h2>
  <div class="company-address">Zomba</div>
</article>
</body></html>`
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/":      html(list),
		"/job/nurse/": html(`<div class="content">Care for patients.</div>`),
	})

	res, err := NewNtchito(WithBaseURL(server.URL+"/jobs/"), WithPages(1)).Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Postings, 1)

	p := res.Postings[0]
	assert.Equal(t, "Registered Nurse", p.Title)
	assert.Equal(t, types.NotAvailable, p.Company)
	assert.Equal(t, "Mzuzu", p.Location)
	assert.Equal(t, time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC), p.DatePosted)
	assert.Equal(t, "ntchito.com", p.SourceID)
	assert.Equal(t, "Care for patients.", p.Description)
	assert.Len(t, res.Items, 2)
}

func TestCareersMW_Fetch(t *testing.T) {
	list := `<html><body><ul class="job_listings">
<li class="job_listing"><a href="/job/driver/">
  <div class="position"><h3>Driver</h3></div>
  <div class="company"><strong>Transport Ltd</strong></div>
  <div class="location">Lilongwe</div>
  <ul class="meta"><li class="job-type">Full Time</li><li class="date"><time datetime="2026-05-01">May 1</time></li></ul>
</a></li>
</ul></body></html>`
	server := newBoard(t, map[string]http.HandlerFunc{
		"/jobs/":       html(list),
		"/job/driver/": html(`<div class="job_description">Drive safely.</div>`),
	})

	res, err := NewCareersMW(WithBaseURL(server.URL+"/jobs/"), WithPages(1)).Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Postings, 1)
	assert.Equal(t, "Driver", res.Postings[0].Title)
	assert.Equal(t, "Transport Ltd", res.Postings[0].Company)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), res.Postings[0].DatePosted)
	assert.Equal(t, "careersmw.com", res.Postings[0].SourceID)
}

func TestListingCrawler_PageURL(t *testing.T) {
	c := NewJobSearchMalawi()
	assert.Equal(t, "https://jobsearchmalawi.com/jobs/", c.PageURL(1))
	assert.Equal(t, "https://jobsearchmalawi.com/jobs/page/3/", c.PageURL(3))
	assert.Equal(t, "jobsearchmalawi", c.Name())
	assert.Equal(t, "jobsearchmalawi.com", c.SourceID())
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Source: "ntchito", Ref: "x", Missing: []string{"title", "url"}}
	assert.Equal(t, "parse error in ntchito item x: missing title, url", err.Error())

	wrapped := &ParseError{Source: "feed", Ref: "y", Cause: fmt.Errorf("bad")}
	assert.Contains(t, wrapped.Error(), "bad")
}
