// Package pasetotoken issues and verifies the v4 PASETO access tokens handed
// out after a Firebase sign-in. Tokens live for a fixed TTL and are never
// rotated.
package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/config"
)

const (
	DefaultTTL = 24 * time.Hour
	clockSkew  = 30 * time.Second
)

type Config struct {
	Mode     Mode
	Issuer   string
	Audience string
	TTL      time.Duration
}

type Manager struct {
	cfg    Config
	keys   Keys
	parser paseto.Parser
}

func New(cfg Config, keys Keys) (*Manager, error) {
	switch {
	case cfg.Mode != keys.Mode:
		return nil, configErr("mode %q does not match keys %q", cfg.Mode, keys.Mode)
	case cfg.Issuer == "":
		return nil, configErr("issuer is required")
	case cfg.Audience == "":
		return nil, configErr("audience is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(cfg.Issuer))
	p.AddRule(paseto.ForAudience(cfg.Audience))
	p.AddRule(paseto.NotExpired())

	return &Manager{cfg: cfg, keys: keys, parser: p}, nil
}

// NewPasetoManager builds a Manager whose TTL matches the Redis session TTL.
func NewPasetoManager(cfg *config.Config) (*Manager, error) {
	p := cfg.Authentication.Paseto
	keys, err := LoadKeys(p)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Mode:     Mode(p.Mode),
		Issuer:   p.Issuer,
		Audience: p.Audience,
		TTL:      time.Duration(cfg.Authentication.SessionTTLHours) * time.Hour,
	}, keys)
}

func (m *Manager) TTL() time.Duration { return m.cfg.TTL }

// IssueAccess returns a token for userID bound to sessionID and its expiry.
func (m *Manager) IssueAccess(userID uuid.UUID, sessionID *uuid.UUID) (string, time.Time, error) {
	exp := time.Now().Add(m.cfg.TTL)
	tok, err := m.issue(TokenTypeAccess, userID, sessionID, exp)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (m *Manager) issue(tt TokenType, userID uuid.UUID, sessionID *uuid.UUID, exp time.Time) (string, error) {
	now := time.Now()
	jti := make([]byte, 16)
	_, _ = rand.Read(jti)

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(hex.EncodeToString(jti))
	tok.SetSubject(userID.String())
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetString("typ", string(tt))
	if sessionID != nil {
		tok.SetString("sid", sessionID.String())
	}

	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		return tok.V4Encrypt(*m.keys.Symmetric, nil), nil
	case m.cfg.Mode == ModePublic && m.keys.Secret != nil:
		return tok.V4Sign(*m.keys.Secret, nil), nil
	}
	return "", configErr("no signing key for mode %q", m.cfg.Mode)
}

// Verify checks signature or encryption, issuer, audience and expiry. Every
// failure wraps ErrInvalidToken.
func (m *Manager) Verify(token string) (*Claims, error) {
	var (
		tok *paseto.Token
		err error
	)
	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		tok, err = m.parser.ParseV4Local(*m.keys.Symmetric, token, nil)
	case m.cfg.Mode == ModePublic && m.keys.Public != nil:
		tok, err = m.parser.ParseV4Public(*m.keys.Public, token, nil)
	default:
		return nil, configErr("no verification key for mode %q", m.cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, err := claimsFrom(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func claimsFrom(tok *paseto.Token) (*Claims, error) {
	var (
		c   Claims
		err error
	)
	if c.TokenID, err = tok.GetJti(); err != nil {
		return nil, err
	}
	if c.IssuedAt, err = tok.GetIssuedAt(); err != nil {
		return nil, err
	}
	if c.NotBefore, err = tok.GetNotBefore(); err != nil {
		return nil, err
	}
	if c.NotBefore.After(time.Now().Add(clockSkew)) {
		return nil, fmt.Errorf("not valid before %s", c.NotBefore.Format(time.RFC3339))
	}
	if c.ExpiresAt, err = tok.GetExpiration(); err != nil {
		return nil, err
	}

	typ, err := tok.GetString("typ")
	if err != nil {
		return nil, err
	}
	c.Type = TokenType(typ)

	sub, err := tok.GetSubject()
	if err != nil {
		return nil, err
	}
	if c.UserID, err = uuid.Parse(sub); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}

	if sid, err := tok.GetString("sid"); err == nil {
		id, err := uuid.Parse(sid)
		if err != nil {
			return nil, fmt.Errorf("sid: %w", err)
		}
		c.SessionID = &id
	}
	return &c, nil
}
