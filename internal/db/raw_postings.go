package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/jackc/pgx/v5"
)

const insertRawOnConflict = `
	INSERT INTO jobs (title, company, location, job_type, date_posted, url, source, description, skills)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (url) DO NOTHING
	RETURNING id, created_at`

// Used until the unique_url constraint exists. Not race-free, but never
// adds a second row for a URL that is already stored.
const insertRawNotExists = `
	INSERT INTO jobs (title, company, location, job_type, date_posted, url, source, description, skills)
	SELECT $1::text, $2::text, $3::text, $4::text, $5::date, $6::text, $7::text, $8::text, $9::text[]
	WHERE NOT EXISTS (SELECT 1 FROM jobs WHERE url = $6::text)
	RETURNING id, created_at`

// InsertRawPosting stores p unless a posting with the same URL exists.
// It reports whether a row was inserted; on insert p.ID and p.CreatedAt
// are set. The existing row always wins.
func (db *DB) InsertRawPosting(ctx context.Context, p *types.RawPosting) (bool, error) {
	query := insertRawNotExists
	if db.uniqueURL.Load() {
		query = insertRawOnConflict
	}

	skills := p.ExtractedSkills
	if skills == nil {
		skills = []string{}
	}

	err := db.pool.QueryRow(ctx, query,
		p.Title, nullIfEmpty(p.Company), nullIfEmpty(p.Location), nullIfEmpty(p.EmploymentType),
		p.DatePosted, p.CanonicalURL, p.SourceID, nullIfEmpty(p.Description), skills,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if pgErrorCode(err) == codeNoUniqueMatching {
			// constraint was dropped after EnsureSchema
			db.uniqueURL.Store(false)
		}
		return false, fmt.Errorf("failed to insert posting %s: %w", p.CanonicalURL, err)
	}
	return true, nil
}

// ListRawPostings returns every raw posting ordered by id.
func (db *DB) ListRawPostings(ctx context.Context) ([]types.RawPosting, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, COALESCE(company, ''), COALESCE(location, ''), COALESCE(job_type, ''),
		        COALESCE(date_posted, created_at::date), url, source, COALESCE(description, ''), skills, created_at
		 FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	var postings []types.RawPosting
	for rows.Next() {
		var p types.RawPosting
		if err := rows.Scan(&p.ID, &p.Title, &p.Company, &p.Location, &p.EmploymentType,
			&p.DatePosted, &p.CanonicalURL, &p.SourceID, &p.Description, &p.ExtractedSkills, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// GetRawPostingByURL returns the posting stored under url, or nil if none.
func (db *DB) GetRawPostingByURL(ctx context.Context, url string) (*types.RawPosting, error) {
	var p types.RawPosting
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, COALESCE(company, ''), COALESCE(location, ''), COALESCE(job_type, ''),
		        COALESCE(date_posted, created_at::date), url, source, COALESCE(description, ''), skills, created_at
		 FROM jobs WHERE url = $1 ORDER BY id LIMIT 1`,
		url,
	).Scan(&p.ID, &p.Title, &p.Company, &p.Location, &p.EmploymentType,
		&p.DatePosted, &p.CanonicalURL, &p.SourceID, &p.Description, &p.ExtractedSkills, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return &p, nil
}
