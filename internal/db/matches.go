package db

import (
	"context"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/jackc/pgx/v5"
)

// matchLockClass namespaces the per-user advisory lock taken by
// ReplaceMatches.
const matchLockClass int32 = 0x6d617463

var matchColumns = []string{"user_id", "user_name", "user_email", "job_id", "job_title", "job_category", "similarity_score"}

// ReplaceMatches atomically replaces every match of userID with records.
// Readers see either the previous set or the new one, never a mix; on
// error the previous set is kept. Concurrent replaces for the same user are
// serialized by a transaction-scoped advisory lock, so the last commit wins
// whole.
func (db *DB) ReplaceMatches(ctx context.Context, userID int64, records []types.MatchRecord) error {
	for _, r := range records {
		if r.UserID != userID {
			return fmt.Errorf("match for user %d in replacement set of user %d", r.UserID, userID)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, matchLockClass, int32(userID)); err != nil {
		return fmt.Errorf("failed to lock matches for user %d: %w", userID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM matched_jobs WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete matches for user %d: %w", userID, err)
	}

	if len(records) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"matched_jobs"}, matchColumns,
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				r := records[i]
				return []any{r.UserID, r.UserName, r.UserEmail, r.JobID, r.JobTitle, r.JobCategory, r.SimilarityScore}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to insert matches for user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit matches for user %d: %w", userID, err)
	}
	return nil
}

// ListMatches returns the current matches of userID, best first.
func (db *DB) ListMatches(ctx context.Context, userID int64) ([]types.MatchRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, COALESCE(user_name, ''), COALESCE(user_email, ''), job_id,
		        COALESCE(job_title, ''), COALESCE(job_category, ''), similarity_score
		 FROM matched_jobs WHERE user_id = $1
		 ORDER BY similarity_score DESC, job_id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := []types.MatchRecord{}
	for rows.Next() {
		var m types.MatchRecord
		if err := rows.Scan(&m.UserID, &m.UserName, &m.UserEmail, &m.JobID, &m.JobTitle, &m.JobCategory, &m.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
