// Package ranking scores cleaned postings against a user profile by
// embedding cosine similarity and selects a deterministic top N.
package ranking

import (
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

// SkillSeparator joins profile skills inside the profile text.
const SkillSeparator = ", "

// ProfileText concatenates name, qualifications, experience, skills and
// about, in that order, skipping blank fields.
func ProfileText(p *types.UserProfile) string {
	if p == nil {
		return ""
	}
	skills := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return joinNonEmpty(p.Name, p.Qualifications, p.Experience, strings.Join(skills, SkillSeparator), p.About)
}

// JobText concatenates a posting's title and category.
func JobText(j *types.CleanedPosting) string {
	return joinNonEmpty(j.Title, j.Category)
}

func joinNonEmpty(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
