package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/araddon/dateparse"
)

var relativeDate = regexp.MustCompile(`(?i)(\d+|an?|one)\s+(minute|hour|day|week|month|year)s?\s+ago`)

// NormalizeDate turns a scraped date string into a calendar date. Relative
// forms ("3 days ago", "yesterday") are resolved against now. Blank or
// unparseable input yields now's date; it never fails.
func NormalizeDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "Posted "), "posted ")
	if raw == "" {
		return types.DateOnly(now)
	}

	switch strings.ToLower(raw) {
	case "today", "just now":
		return types.DateOnly(now)
	case "yesterday":
		return types.DateOnly(now.AddDate(0, 0, -1))
	}

	if m := relativeDate.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = 1
		}
		switch strings.ToLower(m[2]) {
		case "minute", "hour":
			return types.DateOnly(now)
		case "day":
			return types.DateOnly(now.AddDate(0, 0, -n))
		case "week":
			return types.DateOnly(now.AddDate(0, 0, -7*n))
		case "month":
			return types.DateOnly(now.AddDate(0, -n, 0))
		case "year":
			return types.DateOnly(now.AddDate(-n, 0, 0))
		}
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return types.DateOnly(now)
	}
	return types.DateOnly(t)
}
