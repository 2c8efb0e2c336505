package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

// RequirePermission enforces (caller, org:<id>, resource, action) against
// Casbin. Superadmins pass only when the authorizer's bypass is enabled;
// they hold no per-organisation grouping rows.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := ScopeFromFiber(c); !ok {
			return fiber.ErrUnauthorized
		}
		if err := authorize.EnforceInContext(c.Context(), auth, resource, action); err != nil {
			switch {
			case errors.Is(err, authorize.ErrForbidden):
				return fiber.ErrForbidden
			case errors.Is(err, authorize.ErrNoScopeInContext), errors.Is(err, authorize.ErrNoSubjectInContext):
				return fiber.ErrUnauthorized
			}
			return err
		}
		return c.Next()
	}
}

// RequireSuperAdmin gates platform-level routes.
func RequireSuperAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		scope, ok := ScopeFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if !scope.IsSuperAdmin {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}
