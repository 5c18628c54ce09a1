package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	descriptionSelector = "div.job-description, div.job_description, div.content, div.entry-content"
	skillsSelector      = "ul.skills, div.requirements, div.qualifications"
)

var (
	skillsSentence = regexp.MustCompile(`(?i)skills:\s*([^.]*)`)
	andWord        = regexp.MustCompile(`(?i)\band\b`)
)

// ParseDetail extracts the description and skills from a detail page.
// The description falls back to readability extraction, then to the
// generic job posting selectors. Skills fall back to the "Skills: ..."
// sentence of the description.
func ParseDetail(html string, pageURL *url.URL) (string, []string) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil
	}

	skills := listSkills(doc.Find(skillsSelector).First())

	description := cleanText(doc.Find(descriptionSelector).First().Text())
	if description == "" {
		if article, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
			description = cleanText(article.TextContent)
		}
	}
	if description == "" {
		description = cleanText(fetch.MainText(doc.Selection, fetch.JobPostingSelectors()))
	}

	if len(skills) == 0 {
		skills = SkillsFromText(description)
	}
	return description, skills
}

func listSkills(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}
	var skills []string
	sel.Find("li").Each(func(_ int, li *goquery.Selection) {
		if s := cleanText(li.Text()); s != "" {
			skills = append(skills, s)
		}
	})
	if len(skills) == 0 {
		if s := cleanText(sel.Text()); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// SkillsFromText returns the comma or "and" separated items of the first
// "Skills: ..." sentence in text.
func SkillsFromText(text string) []string {
	m := skillsSentence.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var skills []string
	for _, part := range strings.Split(andWord.ReplaceAllString(m[1], ","), ",") {
		if s := cleanText(part); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// cleanText collapses all whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// selText is the cleaned text of the first element of sel.
func selText(sel *goquery.Selection) string {
	return cleanText(sel.First().Text())
}
