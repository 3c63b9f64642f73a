package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type counterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
}

// PostgresLimiter keeps counters in the rate_limit_counters table so limits
// hold across instances without Redis.
type PostgresLimiter struct {
	store  counterStore
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewPostgresLimiter(store counterStore, limit int, window time.Duration) *PostgresLimiter {
	return &PostgresLimiter{store: store, limit: limit, window: window, now: time.Now}
}

func (l *PostgresLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, expiresAt, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("PostgresLimiter.Allow: %w", err)
	}
	return decide(count, l.limit, expiresAt.Sub(l.now())), nil
}
