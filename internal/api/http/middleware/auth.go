package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/auth"
	pasetotoken "github.com/Alijeyrad/simward_backend/pkg/paseto"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const LocalsPrincipal = "auth.principal"

// Authenticator is satisfied by auth.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// AuthRequired validates a Bearer PASETO access token, its Redis-backed
// session and the account state. On success the principal, its claims and
// a default scope are stored in Locals and the request context.
func AuthRequired(authn Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		h := c.Get("Authorization")
		if h == "" {
			return fiber.ErrUnauthorized
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.ErrUnauthorized
		}

		p, err := authn.Authenticate(c.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if isAuthFailure(err) {
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			}
			// Store failures reach the error handler, which logs them and
			// answers 500 without the detail.
			return fmt.Errorf("authenticate: %w", err)
		}

		c.Locals(LocalsPrincipal, p)
		c.Locals(pasetotoken.CtxKeyClaims, p.Claims)
		setScope(c, p.Scope())

		ctx := reqctx.WithClaims(c.Context(), p.Claims)
		c.SetContext(ctx)
		return c.Next()
	}
}

func isAuthFailure(err error) bool {
	for _, target := range []error{
		auth.ErrInvalidToken,
		auth.ErrSessionNotFound,
		auth.ErrAccountDeleted,
		auth.ErrAccountInactive,
		auth.ErrOrganisationDeleted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// PrincipalFromFiber returns the caller set by AuthRequired.
func PrincipalFromFiber(c fiber.Ctx) (*auth.Principal, bool) {
	p, ok := c.Locals(LocalsPrincipal).(*auth.Principal)
	return p, ok && p != nil
}
