package sources

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2026, 5, 20, 23, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"empty", "", day(2026, 5, 20)},
		{"iso date", "2026-04-30", day(2026, 4, 30)},
		{"iso datetime", "2026-04-30T18:00:00+00:00", day(2026, 4, 30)},
		{"long form", "April 3, 2026", day(2026, 4, 3)},
		{"today", "Today", day(2026, 5, 20)},
		{"yesterday", "yesterday", day(2026, 5, 19)},
		{"days ago", "Posted 3 days ago", day(2026, 5, 17)},
		{"a week ago", "a week ago", day(2026, 5, 13)},
		{"hours ago", "5 hours ago", day(2026, 5, 20)},
		{"months ago", "2 months ago", day(2026, 3, 20)},
		{"garbage", "closing soon!", day(2026, 5, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw, now))
		})
	}
}

func TestSkillsFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"comma and and", "Skills: Go, Docker and Kubernetes. Other text", []string{"Go", "Docker", "Kubernetes"}},
		{"case insensitive", "SKILLS: Excel", []string{"Excel"}},
		{"keeps words containing and", "Skills: understanding of Android", []string{"understanding of Android"}},
		{"none", "No skills section here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SkillsFromText(tt.text))
		})
	}
}

func TestParseDetail_QualificationsWithoutList(t *testing.T) {
	page := `<html><body>
<div class="content">Role summary.</div>
<div class="qualifications">Degree in Accounting</div>
</body></html>`

	desc, skills := ParseDetail(page, &url.URL{Scheme: "https", Host: "example.com"})
	assert.Equal(t, "Role summary.", desc)
	assert.Equal(t, []string{"Degree in Accounting"}, skills)
}

func TestParseDetail_ReadabilityFallback(t *testing.T) {
	page := `<html><head><title>Data Analyst</title></head><body>
<div id="post">
<p>We are looking for a data analyst to join our growing team in Lilongwe. The role involves building dashboards,
cleaning data and presenting findings to management every week.</p>
<p>Skills: SQL, Power BI and Python. Candidates should have at least two years of experience with reporting tools.</p>
</div>
</body></html>`

	desc, skills := ParseDetail(page, nil)
	assert.Contains(t, desc, "data analyst")
	assert.Equal(t, []string{"SQL", "Power BI", "Python"}, skills)
}

func TestParseDetail_Empty(t *testing.T) {
	desc, skills := ParseDetail("", nil)
	assert.Empty(t, desc)
	assert.Empty(t, skills)
}
