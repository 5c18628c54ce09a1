package db

import (
	"context"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

// Column limits of jobs_cleaned.
const (
	MaxCleanedURLLength         = 255
	MaxCleanedDescriptionLength = 1000
)

// UpsertCleanedPosting inserts or replaces the categorized copy of a raw
// posting. URL and description are truncated to the column limits.
func (db *DB) UpsertCleanedPosting(ctx context.Context, p *types.CleanedPosting) error {
	skills := p.ExtractedSkills
	if skills == nil {
		skills = []string{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO jobs_cleaned (id, title, company, location, job_type, date_posted, url, source, description, skills, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     company = EXCLUDED.company,
		     location = EXCLUDED.location,
		     job_type = EXCLUDED.job_type,
		     date_posted = EXCLUDED.date_posted,
		     url = EXCLUDED.url,
		     source = EXCLUDED.source,
		     description = EXCLUDED.description,
		     skills = EXCLUDED.skills,
		     category = EXCLUDED.category,
		     updated_at = NOW()`,
		p.ID, p.Title, nullIfEmpty(p.Company), nullIfEmpty(p.Location), nullIfEmpty(p.EmploymentType),
		p.DatePosted, truncateRunes(p.CanonicalURL, MaxCleanedURLLength), p.SourceID,
		nullIfEmpty(truncateRunes(p.Description, MaxCleanedDescriptionLength)), skills, p.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cleaned posting %d: %w", p.ID, err)
	}
	return nil
}

// ListCleanedPostings returns every categorized posting ordered by id.
func (db *DB) ListCleanedPostings(ctx context.Context) ([]types.CleanedPosting, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, COALESCE(company, ''), COALESCE(location, ''), COALESCE(job_type, ''),
		        COALESCE(date_posted, updated_at::date), COALESCE(url, ''), COALESCE(source, ''),
		        COALESCE(description, ''), skills, category
		 FROM jobs_cleaned ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleaned postings: %w", err)
	}
	defer rows.Close()

	var postings []types.CleanedPosting
	for rows.Next() {
		var p types.CleanedPosting
		if err := rows.Scan(&p.ID, &p.Title, &p.Company, &p.Location, &p.EmploymentType,
			&p.DatePosted, &p.CanonicalURL, &p.SourceID, &p.Description, &p.ExtractedSkills, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan cleaned posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}
