package pasetotoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/config"
)

func newTestManager(t *testing.T, keys Keys, ttl time.Duration) *Manager {
	t.Helper()
	m, err := New(Config{Mode: keys.Mode, Issuer: "simward", Audience: "simward-api", TTL: ttl}, keys)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	for name, keys := range map[string]Keys{
		"local":  NewLocalKeys(),
		"public": NewPublicKeys(),
	} {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t, keys, time.Hour)
			uid := uuid.New()
			sid := uuid.New()

			tok, exp, err := m.IssueAccess(uid, &sid)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

			claims, err := m.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, uid, claims.UserID)
			require.NotNil(t, claims.SessionID)
			assert.Equal(t, sid, *claims.SessionID)
			assert.Equal(t, TokenTypeAccess, claims.Type)
			assert.False(t, claims.IsExpired())
		})
	}
}

func TestDefaultTTLIsOneDay(t *testing.T) {
	m := newTestManager(t, NewLocalKeys(), 0)
	assert.Equal(t, 24*time.Hour, m.TTL())
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	issuer := newTestManager(t, NewLocalKeys(), time.Hour)
	verifier := newTestManager(t, NewLocalKeys(), time.Hour)

	tok, _, err := issuer.IssueAccess(uuid.New(), nil)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	keys := NewLocalKeys()
	a := newTestManager(t, keys, time.Hour)
	b, err := New(Config{Mode: ModeLocal, Issuer: "simward", Audience: "other", TTL: time.Hour}, keys)
	require.NoError(t, err)

	tok, _, err := a.IssueAccess(uuid.New(), nil)
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t, NewLocalKeys(), time.Hour)
	tok, err := m.issue(TokenTypeAccess, uuid.New(), nil, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Mode: ModePublic, Issuer: "x", Audience: "y"}, NewLocalKeys())
	assert.ErrorIs(t, err, ErrConfig)

	_, err = New(Config{Mode: ModeLocal, Audience: "y"}, NewLocalKeys())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadKeys(t *testing.T) {
	_, err := LoadKeys(config.PasetoConfig{Mode: "local"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = LoadKeys(config.PasetoConfig{Mode: "weird"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = LoadKeys(config.PasetoConfig{Mode: "public"})
	assert.ErrorIs(t, err, ErrConfig)

	k := NewLocalKeys()
	loaded, err := LoadKeys(config.PasetoConfig{Mode: "local", LocalKeyHex: k.Symmetric.ExportHex()})
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, loaded.Mode)

	pub := NewPublicKeys()
	loaded, err = LoadKeys(config.PasetoConfig{Mode: "public", SecretKeyHex: pub.Secret.ExportHex()})
	require.NoError(t, err)
	require.NotNil(t, loaded.Public)
	assert.Equal(t, pub.Public.ExportHex(), loaded.Public.ExportHex())
}
