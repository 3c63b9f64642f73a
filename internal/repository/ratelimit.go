package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type RateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(db *sql.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Increment bumps the fixed-window counter for key and returns the new count
// and when the window closes. An expired window restarts at 1.
func (r *RateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now().UTC()
	var count int
	var expiresAt time.Time
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rate_limit_counters (key, count, expires_at) VALUES ($1, 1, $2)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limit_counters.expires_at <= $3 THEN 1 ELSE rate_limit_counters.count + 1 END,
			expires_at = CASE WHEN rate_limit_counters.expires_at <= $3 THEN $2 ELSE rate_limit_counters.expires_at END
		RETURNING count, expires_at`,
		key, now.Add(window), now,
	).Scan(&count, &expiresAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("Increment: %w", err)
	}
	return count, expiresAt, nil
}

func (r *RateLimitRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limit_counters WHERE expires_at <= $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: rows affected: %w", err)
	}
	return n, nil
}
