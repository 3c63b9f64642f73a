package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/lingualance-api/internal/testutil"
)

func TestIdempotencyRepository_Save(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewIdempotencyRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	record := func(hash string, status int) *IdempotencyRecord {
		now := time.Now().UTC()
		return &IdempotencyRecord{
			Key:          "deposit-key",
			UserID:       userID,
			RequestHash:  hash,
			StatusCode:   status,
			ResponseBody: []byte(`{"hash":"` + hash + `"}`),
			CreatedAt:    now,
			ExpiresAt:    now.Add(time.Hour),
		}
	}

	saved, err := repo.Save(ctx, record("first", 200))
	require.NoError(t, err)
	assert.True(t, saved)

	t.Run("live record is kept", func(t *testing.T) {
		saved, err := repo.Save(ctx, record("second", 201))
		require.NoError(t, err)
		assert.False(t, saved)

		got, err := repo.Get(ctx, "deposit-key", userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.RequestHash)
	})

	t.Run("expired record is replaced", func(t *testing.T) {
		_, err := db.Exec(`UPDATE idempotency_cache SET expires_at = now() - interval '1 minute'
			WHERE idempotency_key = $1 AND user_id = $2`, "deposit-key", userID)
		require.NoError(t, err)

		got, err := repo.Get(ctx, "deposit-key", userID)
		require.NoError(t, err)
		assert.Nil(t, got)

		saved, err := repo.Save(ctx, record("third", 201))
		require.NoError(t, err)
		assert.True(t, saved)

		got, err = repo.Get(ctx, "deposit-key", userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "third", got.RequestHash)
		assert.Equal(t, 201, got.StatusCode)
		assert.JSONEq(t, `{"hash":"third"}`, string(got.ResponseBody))
	})

	t.Run("keys are scoped per user", func(t *testing.T) {
		other := record("other-user", 200)
		other.UserID = uuid.New()
		saved, err := repo.Save(ctx, other)
		require.NoError(t, err)
		assert.True(t, saved)
	})
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewIdempotencyRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		_, err := repo.Save(ctx, &IdempotencyRecord{
			Key:          uuid.NewString(),
			UserID:       uuid.New(),
			RequestHash:  "h",
			StatusCode:   200 + i,
			ResponseBody: []byte(`{}`),
			CreatedAt:    now,
			ExpiresAt:    expires,
		})
		require.NoError(t, err)
	}

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
