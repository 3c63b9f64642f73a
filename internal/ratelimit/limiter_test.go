package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "test:", limit, window), mr
}

func TestRedisLimiter_BlocksAfterLimit(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := limiter.Allow(ctx, "login:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should pass", i)
		assert.Equal(t, i, d.Count)
	}

	d, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 60, d.RetryAfterSeconds())
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "login:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_WindowResets(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1, 10*time.Second)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "register:10.0.0.1")
	require.NoError(t, err)
	d, err := limiter.Allow(ctx, "register:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	mr.FastForward(11 * time.Second)

	d, err = limiter.Allow(ctx, "register:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestRedisLimiter_UsesPrefix(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 5, time.Minute)

	_, err := limiter.Allow(context.Background(), "login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:login:10.0.0.1"))
}

func TestRedisLimiter_ServerDown(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 5, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "login:10.0.0.1")
	require.Error(t, err)
}

type fakeCounter struct {
	counts    map[string]int
	expiresAt time.Time
	err       error
}

func (f *fakeCounter) Increment(_ context.Context, key string, _ time.Duration) (int, time.Time, error) {
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	f.counts[key]++
	return f.counts[key], f.expiresAt, nil
}

func TestPostgresLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeCounter{counts: map[string]int{}, expiresAt: now.Add(30 * time.Second)}
	limiter := NewPostgresLimiter(store, 2, time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for range 2 {
		d, err := limiter.Allow(ctx, "login:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30, d.RetryAfterSeconds())
}

func TestPostgresLimiter_StoreError(t *testing.T) {
	limiter := NewPostgresLimiter(&fakeCounter{err: errors.New("db down")}, 2, time.Minute)

	_, err := limiter.Allow(context.Background(), "login:10.0.0.1")
	require.Error(t, err)
}

func TestDecide_ClampsRetryAfter(t *testing.T) {
	d := decide(5, 1, -time.Second)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RetryAfterSeconds())
}
