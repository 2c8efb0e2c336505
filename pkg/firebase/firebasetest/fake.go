// Package firebasetest provides an in-memory IdentityProvider for tests.
package firebasetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Alijeyrad/simward_backend/pkg/firebase"
)

type Account struct {
	UID         string
	Email       string
	DisplayName string
	Disabled    bool
}

// Fake maps ID tokens straight to identities. Tokens are registered with
// AddToken; anything else fails verification.
type Fake struct {
	mu       sync.Mutex
	tokens   map[string]firebase.Identity
	accounts map[string]*Account // by uid
	seq      int
}

func New() *Fake {
	return &Fake{
		tokens:   map[string]firebase.Identity{},
		accounts: map[string]*Account{},
	}
}

func (f *Fake) AddToken(token string, id firebase.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = id
	if _, ok := f.accounts[id.UID]; !ok {
		f.accounts[id.UID] = &Account{UID: id.UID, Email: id.Email}
	}
}

func (f *Fake) Account(uid string) (Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[uid]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

func (f *Fake) VerifyIDToken(_ context.Context, idToken string) (*firebase.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[idToken]
	if !ok {
		return nil, firebase.ErrInvalidToken
	}
	if a, ok := f.accounts[id.UID]; ok && a.Disabled {
		return nil, firebase.ErrInvalidToken
	}
	return &id, nil
}

func (f *Fake) LookupByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			return a.UID, nil
		}
	}
	return "", firebase.ErrUserNotFound
}

func (f *Fake) CreateAccount(_ context.Context, n firebase.NewAccount) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	uid := fmt.Sprintf("fb-%d", f.seq)
	f.accounts[uid] = &Account{UID: uid, Email: n.Email, DisplayName: n.DisplayName}
	return uid, nil
}

func (f *Fake) SetDisabled(_ context.Context, uid string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[uid]
	if !ok {
		return firebase.ErrUserNotFound
	}
	a.Disabled = disabled
	return nil
}

func (f *Fake) PasswordResetLink(_ context.Context, email string) (string, error) {
	return "https://auth.example.test/reset?email=" + email, nil
}

var _ firebase.IdentityProvider = (*Fake)(nil)
