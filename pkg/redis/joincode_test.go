package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCodeCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewJoinCodeCache(rdb, 12*time.Hour)
	ctx := t.Context()

	orgID, sessionID := uuid.New(), uuid.New()
	_, err := cache.Lookup(ctx, orgID, "abc")
	assert.ErrorIs(t, err, ErrJoinCodeNotCached)

	require.NoError(t, cache.Put(ctx, orgID, "abc", sessionID))
	assert.Equal(t, 12*time.Hour, mr.TTL(KeyJoinCode(orgID, "abc")))

	got, err := cache.Lookup(ctx, orgID, "abc")
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)

	_, err = cache.Lookup(ctx, uuid.New(), "abc")
	assert.ErrorIs(t, err, ErrJoinCodeNotCached, "scoped per organisation")

	require.NoError(t, cache.Delete(ctx, orgID, "abc"))
	_, err = cache.Lookup(ctx, orgID, "abc")
	assert.ErrorIs(t, err, ErrJoinCodeNotCached)
}
