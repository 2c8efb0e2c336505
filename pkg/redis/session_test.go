package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/config"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewSessionStore(rdb, 24*time.Hour)
}

func TestSessionLifecycle(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := t.Context()
	userID := uuid.New()

	sid, exp, err := store.Create(ctx, userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, time.Minute)
	assert.Equal(t, 24*time.Hour, mr.TTL(KeySession(sid)))

	got, err := store.UserID(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	require.NoError(t, store.Delete(ctx, sid))
	_, err = store.UserID(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sid), ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := t.Context()

	sid, _, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)
	_, err = store.UserID(ctx, sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options(config.RedisConfig{Addr: "r:6379", PoolSize: 42, ReadTimeoutSeconds: 9})

	assert.Equal(t, "r:6379", opts.Addr)
	assert.Equal(t, 42, opts.PoolSize)
	assert.Equal(t, defaultMinIdle, opts.MinIdleConns)
	assert.Equal(t, defaultDialTimeout, opts.DialTimeout)
	assert.Equal(t, 9*time.Second, opts.ReadTimeout)
}

func TestNewRedisFromCentral(t *testing.T) {
	_, err := NewRedisFromCentral(t.Context(), config.RedisConfig{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb, err := NewRedisFromCentral(t.Context(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())
}
