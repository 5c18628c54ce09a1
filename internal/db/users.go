package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/jackc/pgx/v5"
)

// The "user" table belongs to the web application; it is only read here.

// GetUserProfile returns the profile with the given id, or nil if none.
func (db *DB) GetUserProfile(ctx context.Context, id int64) (*types.UserProfile, error) {
	var u types.UserProfile
	err := db.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(academic_qualification, ''),
		        COALESCE(experience, ''), COALESCE(skills, '{}'), COALESCE(about, '')
		 FROM "user" WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Qualifications, &u.Experience, &u.Skills, &u.About)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &u, nil
}

// ListUserIDs returns the ids of every user profile in ascending order.
func (db *DB) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.pool.Query(ctx, `SELECT id FROM "user" ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user id: %w", err)
	}
	return ids, nil
}
