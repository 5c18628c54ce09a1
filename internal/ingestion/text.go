package ingestion

import (
	"regexp"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

var (
	spaceRun    = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLines  = regexp.MustCompile(`\n\n\n+`)
	bulletStart = regexp.MustCompile(`^[•·▪‣◦*-]\s*`)
)

// CleanText normalizes a multi-line description while preserving its
// line structure: line endings become LF, runs of spaces collapse, bullets
// are rewritten as "- ", and at most one blank line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := blankLines.ReplaceAllString(strings.Join(cleaned, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	if line == "" {
		return ""
	}
	if loc := bulletStart.FindStringIndex(line); loc != nil && loc[1] < len(line) {
		return "- " + line[loc[1]:]
	}
	return line
}

// CleanField collapses all whitespace in a single-line field.
func CleanField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanSkills trims skills and drops blanks, "N/A" and case-insensitive
// repeats, keeping first-seen order.
func CleanSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = CleanField(s)
		key := strings.ToLower(s)
		if s == "" || s == types.NotAvailable || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Normalize returns p with a canonical URL and cleaned text fields.
func Normalize(p types.RawPosting) (types.RawPosting, error) {
	canonical, err := CanonicalURL(p.CanonicalURL)
	if err != nil {
		return p, err
	}
	p.CanonicalURL = canonical
	p.Title = CleanField(p.Title)
	p.Company = CleanField(p.Company)
	p.Location = CleanField(p.Location)
	p.EmploymentType = CleanField(p.EmploymentType)
	p.SourceID = CleanField(p.SourceID)
	p.Description = CleanText(p.Description)
	p.ExtractedSkills = CleanSkills(p.ExtractedSkills)
	if !p.DatePosted.IsZero() {
		p.DatePosted = types.DateOnly(p.DatePosted)
	}
	return p, nil
}
