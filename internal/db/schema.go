package db

import (
	"context"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

// UniqueURLConstraint is the name of the dedup constraint on jobs.url.
const UniqueURLConstraint = "unique_url"

// PostgreSQL error codes handled by the store.
const (
	codeDuplicateObject  = "42710"
	codeDuplicateTable   = "42P07"
	codeNoUniqueMatching = "42P10"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id          SERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		company     TEXT,
		location    TEXT,
		job_type    TEXT,
		date_posted DATE,
		url         TEXT NOT NULL,
		source      TEXT NOT NULL,
		description TEXT,
		skills      TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// Older deployments created jobs without skills.
	`ALTER TABLE jobs ADD COLUMN IF NOT EXISTS skills TEXT[] NOT NULL DEFAULT '{}'`,
	`CREATE TABLE IF NOT EXISTS jobs_cleaned (
		id          INTEGER PRIMARY KEY,
		title       TEXT NOT NULL,
		company     TEXT,
		location    TEXT,
		job_type    TEXT,
		date_posted DATE,
		url         VARCHAR(255),
		source      TEXT,
		description VARCHAR(1000),
		skills      TEXT[] NOT NULL DEFAULT '{}',
		category    TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matched_jobs (
		id               SERIAL PRIMARY KEY,
		user_id          INTEGER NOT NULL,
		user_name        TEXT,
		user_email       TEXT,
		job_id           INTEGER NOT NULL,
		job_title        TEXT,
		job_category     TEXT,
		similarity_score DOUBLE PRECISION NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, job_id)
	)`,
	`CREATE INDEX IF NOT EXISTS matched_jobs_user_score_idx ON matched_jobs (user_id, similarity_score DESC)`,
}

// EnsureSchema creates missing tables and adds the unique_url constraint
// when no duplicate URLs prevent it. Duplicates are reported, not fixed.
// It is safe to run concurrently and repeatedly.
func (db *DB) EnsureSchema(ctx context.Context) (types.SchemaStatus, error) {
	var status types.SchemaStatus

	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return status, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	exists, err := db.uniqueURLExists(ctx)
	if err != nil {
		return status, err
	}
	if exists {
		status.UniqueURL = true
		db.uniqueURL.Store(true)
		return status, nil
	}

	dups, err := db.DuplicateURLs(ctx)
	if err != nil {
		return status, err
	}
	if len(dups) > 0 {
		status.Duplicates = dups
		return status, nil
	}

	_, err = db.pool.Exec(ctx, `ALTER TABLE jobs ADD CONSTRAINT `+UniqueURLConstraint+` UNIQUE (url)`)
	switch code := pgErrorCode(err); {
	case err == nil:
		status.ConstraintNew = true
	case code == codeDuplicateObject || code == codeDuplicateTable:
		// added concurrently
	default:
		return status, fmt.Errorf("failed to add %s constraint: %w", UniqueURLConstraint, err)
	}

	status.UniqueURL = true
	db.uniqueURL.Store(true)
	return status, nil
}

func (db *DB) uniqueURLExists(ctx context.Context) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM pg_constraint
			WHERE conname = $1 AND conrelid = 'jobs'::regclass
		)`,
		UniqueURLConstraint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s constraint: %w", UniqueURLConstraint, err)
	}
	return exists, nil
}

// DuplicateURLs lists URLs stored more than once in jobs.
func (db *DB) DuplicateURLs(ctx context.Context) ([]types.DuplicateURL, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT url, COUNT(*) FROM jobs GROUP BY url HAVING COUNT(*) > 1 ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate urls: %w", err)
	}
	defer rows.Close()

	var dups []types.DuplicateURL
	for rows.Next() {
		var d types.DuplicateURL
		if err := rows.Scan(&d.URL, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate url: %w", err)
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}
