package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrJoinCodeNotCached means the caller must fall back to the database.
var ErrJoinCodeNotCached = errors.New("join code not cached")

// KeyJoinCode returns the Redis key for a hashed join code within an
// organisation.
func KeyJoinCode(orgID uuid.UUID, hash string) string {
	return "joincode:" + orgID.String() + ":" + hash
}

// JoinCodeCache maps hashed join codes to session ids so joining a session
// does not hit Postgres. Entries expire on their own; ending a session
// removes its entry.
type JoinCodeCache struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewJoinCodeCache(rdb goredis.UniversalClient, ttl time.Duration) *JoinCodeCache {
	return &JoinCodeCache{rdb: rdb, ttl: ttl}
}

func (c *JoinCodeCache) Put(ctx context.Context, orgID uuid.UUID, hash string, sessionID uuid.UUID) error {
	if err := c.rdb.Set(ctx, KeyJoinCode(orgID, hash), sessionID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache join code: %w", err)
	}
	return nil
}

func (c *JoinCodeCache) Lookup(ctx context.Context, orgID uuid.UUID, hash string) (uuid.UUID, error) {
	v, err := c.rdb.Get(ctx, KeyJoinCode(orgID, hash)).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, ErrJoinCodeNotCached
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("redis get join code: %w", err)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, ErrJoinCodeNotCached
	}
	return id, nil
}

func (c *JoinCodeCache) Delete(ctx context.Context, orgID uuid.UUID, hash string) error {
	return c.rdb.Del(ctx, KeyJoinCode(orgID, hash)).Err()
}
