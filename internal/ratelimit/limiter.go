// Package ratelimit counts requests per key in fixed windows, backed by Redis
// when available and by the Postgres counter table otherwise.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the result of consuming one request from a window.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count, limit int, ttl time.Duration) Decision {
	if ttl < time.Second {
		ttl = time.Second
	}
	return Decision{
		Allowed:    count <= limit,
		Count:      count,
		RetryAfter: ttl,
	}
}

// RetryAfterSeconds rounds up so clients never retry inside the window.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
