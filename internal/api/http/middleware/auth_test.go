package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/auth"
	pasetotoken "github.com/Alijeyrad/simward_backend/pkg/paseto"
)

type stubAuthenticator struct {
	p   *auth.Principal
	err error
}

func (s stubAuthenticator) Authenticate(context.Context, string) (*auth.Principal, error) {
	return s.p, s.err
}

func TestAuthRequired(t *testing.T) {
	uid := uuid.New()
	principal := &auth.Principal{
		User:   &repo.User{ID: uid, Role: "faculty"},
		Claims: &pasetotoken.Claims{UserID: uid},
	}

	tests := []struct {
		name   string
		header string
		authn  stubAuthenticator
		status int
		body   string
	}{
		{"valid session", "Bearer tok", stubAuthenticator{p: principal}, fiber.StatusOK, uid.String()},
		{"missing header", "", stubAuthenticator{p: principal}, fiber.StatusUnauthorized, ""},
		{"wrong scheme", "Basic tok", stubAuthenticator{p: principal}, fiber.StatusUnauthorized, ""},
		{"expired token", "Bearer tok", stubAuthenticator{err: auth.ErrInvalidToken}, fiber.StatusUnauthorized, auth.ErrInvalidToken.Error()},
		{"revoked session", "Bearer tok", stubAuthenticator{err: auth.ErrSessionNotFound}, fiber.StatusUnauthorized, ""},
		{"inactive account", "Bearer tok", stubAuthenticator{err: auth.ErrAccountInactive}, fiber.StatusUnauthorized, ""},
		{"store down", "Bearer tok", stubAuthenticator{err: errors.New("dial tcp 10.0.0.3:6379: connection refused")}, fiber.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{
				// Mirrors the API error handler: only *fiber.Error text is shown.
				ErrorHandler: func(c fiber.Ctx, err error) error {
					var fe *fiber.Error
					if errors.As(err, &fe) {
						return c.Status(fe.Code).SendString(fe.Message)
					}
					return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
				},
			})
			app.Get("/", AuthRequired(tt.authn), func(c fiber.Ctx) error {
				s, ok := ScopeFromFiber(c)
				if !ok {
					return fiber.ErrInternalServerError
				}
				return c.SendString(s.UserID.String())
			})

			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}
}
