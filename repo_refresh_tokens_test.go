package roadside_test

import (
	"context"
	"os"
	"testing"
	"time"

	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func exerciseRefreshStore(t *testing.T, store roadside.RefreshTokenStore, db bun.IDB) {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()

	first := &roadside.RefreshTokenRecord{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	second := &roadside.RefreshTokenRecord{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, db, first))
	require.NoError(t, store.Save(ctx, db, second))

	active, err := store.IsActive(ctx, db, first.ID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = store.IsActive(ctx, db, uuid.New())
	require.NoError(t, err)
	assert.False(t, active, "unknown token")

	require.NoError(t, store.Revoke(ctx, db, first.ID, &second.ID))
	active, err = store.IsActive(ctx, db, first.ID)
	require.NoError(t, err)
	assert.False(t, active)

	assert.ErrorIs(t, store.Revoke(ctx, db, first.ID, nil), roadside.ErrInvalidToken)

	require.NoError(t, store.RevokeAllForUser(ctx, db, userID))
	active, err = store.IsActive(ctx, db, second.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSQLRefreshTokenStore(t *testing.T) {
	db, err := roadside.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, roadside.CreateSchema(context.Background(), db, roadside.AllModels()...))

	store := roadside.NewSQLRefreshTokenStore()
	exerciseRefreshStore(t, store, db)

	expired := &roadside.RefreshTokenRecord{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, store.Save(context.Background(), db, expired))
	active, err := store.IsActive(context.Background(), db, expired.ID)
	require.NoError(t, err)
	assert.False(t, active, "expired token")
}

func TestRedisRefreshTokenStore(t *testing.T) {
	addr := os.Getenv("ROADSIDE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROADSIDE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	store := roadside.NewRedisRefreshTokenStore(client, "roadside:test:"+uuid.NewString()+":")
	exerciseRefreshStore(t, store, nil)

	expired := &roadside.RefreshTokenRecord{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}
	assert.ErrorIs(t, store.Save(context.Background(), nil, expired), roadside.ErrInvalidToken)
}
