package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

// CtxKeyClaims is the fiber Locals key the auth middleware stores *Claims under.
const CtxKeyClaims = "auth.claims"

type TokenType string

// TokenTypeAccess is the only type issued; there are no refresh tokens.
const TokenTypeAccess TokenType = "access"

// Claims is what a verified token carries. SessionID points at the Redis
// session that logout deletes.
type Claims struct {
	Type      TokenType
	TokenID   string
	UserID    uuid.UUID
	SessionID *uuid.UUID
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

func (c *Claims) GetUserID() uuid.UUID     { return c.UserID }
func (c *Claims) GetSessionID() *uuid.UUID { return c.SessionID }
func (c *Claims) GetTokenType() string     { return string(c.Type) }
func (c *Claims) IsExpired() bool          { return time.Now().After(c.ExpiresAt) }
