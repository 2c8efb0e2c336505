package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// KeySession returns the Redis key for a login session.
func KeySession(sessionID uuid.UUID) string { return "session:" + sessionID.String() }

// SessionStore keeps login sessions as `session:<id>` -> user id with a fixed
// TTL. Sessions are never extended; a new login creates a new one.
type SessionStore struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewSessionStore(rdb goredis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create stores a new session for userID and returns its id and expiry.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, time.Time, error) {
	id := uuid.Must(uuid.NewV7())
	if err := s.rdb.Set(ctx, KeySession(id), userID.String(), s.ttl).Err(); err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("store session: %w", err)
	}
	return id, time.Now().Add(s.ttl), nil
}

// UserID resolves the owner of a live session.
func (s *SessionStore) UserID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	v, err := s.rdb.Get(ctx, KeySession(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("redis get session: %w", err)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session value: %w", err)
	}
	return id, nil
}

// Delete removes a session. Deleting an unknown session reports ErrSessionNotFound.
func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	n, err := s.rdb.Del(ctx, KeySession(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
