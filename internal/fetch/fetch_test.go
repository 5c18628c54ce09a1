package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTP(nil)
	require.NoError(t, err)
	return f
}

func TestHTTPFetcher_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := newTestFetcher(t).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestHTTPFetcher_Get_InvalidURL(t *testing.T) {
	_, err := newTestFetcher(t).Get(context.Background(), "not-a-valid-url")
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
	assert.False(t, fetchErr.Transient())
}

func TestHTTPFetcher_Get_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := newTestFetcher(t).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPFetcher_SendsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, err := NewHTTP(&Options{UserAgent: "peza-test", Headers: map[string]string{"Accept-Language": "en"}})
	require.NoError(t, err)

	_, err = f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "peza-test", gotUA)
	assert.Equal(t, "en", gotLang)
}

func TestHTTPFetcher_Proxy(t *testing.T) {
	var proxied string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.String()
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxy.Close()

	f, err := NewHTTP(&Options{Proxy: proxy.URL})
	require.NoError(t, err)

	result, err := f.Get(context.Background(), "http://jobs.example.test/listing")
	require.NoError(t, err)
	assert.Equal(t, "via proxy", result.HTML)
	assert.Equal(t, "http://jobs.example.test/listing", proxied)
}

func TestNewHTTP_InvalidProxy(t *testing.T) {
	_, err := NewHTTP(&Options{Proxy: "::not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid proxy URL")
}

func TestError_Transient(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"server error", &Error{StatusCode: 503}, true},
		{"too many requests", &Error{StatusCode: 429}, true},
		{"not found", &Error{StatusCode: 404}, false},
		{"forbidden", &Error{StatusCode: 403}, false},
		{"network", &Error{Cause: errors.New("connection reset")}, true},
		{"canceled", &Error{Cause: context.Canceled}, false},
		{"invalid url", &Error{Message: "invalid URL", permanent: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Transient())
		})
	}
}

func TestIsTransient_NonFetchError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("parse failure")))
	assert.True(t, IsTransient(&Error{StatusCode: 500}))
}

func mainText(t *testing.T, html string, contentSelectors []string, noiseSelectors ...string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return MainText(doc.Selection, contentSelectors, noiseSelectors...)
}

func TestMainText_WithMainElement(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Main Content</h1>
				<p>This is the important text.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text := mainText(t, html, JobPostingSelectors())
	assert.Contains(t, text, "Main Content")
	assert.Contains(t, text, "important text")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
}

func TestMainText_FallbackToBody(t *testing.T) {
	html := `
	<html>
		<body>
			<div>Some content here.</div>
		</body>
	</html>`

	text := mainText(t, html, []string{".missing"})
	assert.Contains(t, text, "Some content here")
}

func TestMainText_JobPostingSelectors(t *testing.T) {
	html := `
	<html>
		<body>
			<div class="sidebar">Sidebar junk</div>
			<div class="job-description">
				<h2>Requirements</h2>
				<p>5 years experience in Go</p>
			</div>
		</body>
	</html>`

	text := mainText(t, html, JobPostingSelectors(), ".apply-button")
	assert.Contains(t, text, "Requirements")
	assert.Contains(t, text, "5 years experience")
	assert.NotContains(t, text, "Sidebar junk")
}

func TestJobPostingSelectors(t *testing.T) {
	selectors := JobPostingSelectors()
	assert.Contains(t, selectors, ".job-description")
	assert.Contains(t, selectors, "#job-content")
}
