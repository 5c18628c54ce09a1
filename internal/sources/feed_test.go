package sources

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Jobs feed</title>
  <link>https://jobs.example.com</link>
  <item>
    <title>  Software Engineer </title>
    <link>https://jobs.example.com/job/software-engineer</link>
    <description><![CDATA[<p>Build services.</p><p>Skills: Go and PostgreSQL.</p>]]></description>
    <pubDate>Mon, 18 May 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>No link</title>
  </item>
  <item>
    <title></title>
    <link>/job/untitled</link>
  </item>
</channel>
</rss>`

func TestFeedAdapter_Fetch(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{
		"/feed": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(jobFeed))
		},
	})

	adapter := NewFeed("examplejobs", server.URL+"/feed")
	assert.Equal(t, "examplejobs", adapter.Name())

	res, err := adapter.Fetch(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, res.Postings, 1)

	p := res.Postings[0]
	assert.Equal(t, "Software Engineer", p.Title)
	assert.Equal(t, "https://jobs.example.com/job/software-engineer", p.CanonicalURL)
	assert.Equal(t, time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC), p.DatePosted)
	assert.Equal(t, "Build services.Skills: Go and PostgreSQL.", p.Description)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, p.ExtractedSkills)
	assert.Equal(t, types.NotAvailable, p.Company)

	var o types.SourceOutcome
	o.Tally(res.Items)
	assert.Equal(t, 2, o.ParseSkipped)
}

func TestFeedAdapter_InvalidFeed(t *testing.T) {
	server := newBoard(t, map[string]http.HandlerFunc{"/feed": html("<html>not a feed</html>")})

	_, err := NewFeed("bad", server.URL+"/feed").Fetch(context.Background(), testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}

func TestFeedAdapter_InvalidURL(t *testing.T) {
	_, err := NewFeed("bad", "not a url").Fetch(context.Background(), testConfig())
	require.Error(t, err)
}
