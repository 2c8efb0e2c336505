// Package firebase wraps the Firebase Admin auth client. Firebase owns
// credentials: the API only verifies ID tokens and manages account state.
package firebase

import (
	"context"
	"errors"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/Alijeyrad/simward_backend/config"
)

var (
	ErrInvalidToken = errors.New("invalid firebase id token")
	ErrUserNotFound = errors.New("firebase user not found")
)

// Identity is the verified subject of an ID token.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// NewAccount describes an account to provision.
type NewAccount struct {
	Email       string
	DisplayName string
	PhoneNumber string
}

// IdentityProvider is what services depend on, so tests can swap in a fake.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	LookupByEmail(ctx context.Context, email string) (uid string, err error)
	CreateAccount(ctx context.Context, a NewAccount) (uid string, err error)
	SetDisabled(ctx context.Context, uid string, disabled bool) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// Client implements IdentityProvider over the Admin SDK.
type Client struct {
	auth         *auth.Client
	checkRevoked bool
}

// New builds the admin client. With no credentials file the SDK falls back
// to application default credentials.
func New(ctx context.Context, cfg config.FirebaseConfig) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	a, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: init auth: %w", err)
	}
	return &Client{auth: a, checkRevoked: cfg.CheckRevoked}, nil
}

func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	var (
		tok *auth.Token
		err error
	)
	if c.checkRevoked {
		tok, err = c.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		tok, err = c.auth.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &Identity{UID: tok.UID}
	if v, ok := tok.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := tok.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	return id, nil
}

func (c *Client) LookupByEmail(ctx context.Context, email string) (string, error) {
	u, err := c.auth.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("firebase: get user by email: %w", err)
	}
	return u.UID, nil
}

func (c *Client) CreateAccount(ctx context.Context, a NewAccount) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(a.Email).
		EmailVerified(false).
		Disabled(false)
	if a.DisplayName != "" {
		params = params.DisplayName(a.DisplayName)
	}
	if a.PhoneNumber != "" {
		params = params.PhoneNumber(a.PhoneNumber)
	}

	u, err := c.auth.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("firebase: create user: %w", err)
	}
	return u.UID, nil
}

// SetDisabled toggles the account and, when disabling, revokes refresh
// tokens so existing Firebase sessions cannot mint new ID tokens.
func (c *Client) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	if _, err := c.auth.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Disabled(disabled)); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("firebase: update user: %w", err)
	}
	if disabled {
		if err := c.auth.RevokeRefreshTokens(ctx, uid); err != nil {
			return fmt.Errorf("firebase: revoke tokens: %w", err)
		}
	}
	return nil
}

func (c *Client) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := c.auth.PasswordResetLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("firebase: password reset link: %w", err)
	}
	return link, nil
}
