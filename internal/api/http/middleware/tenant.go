package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const (
	HeaderOrganisationID = "X-Organisation-ID"
	LocalsScope          = "tenant.scope"
)

// OrganisationLookup is satisfied by *repo.OrganisationRepo.
type OrganisationLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
}

// OrgContext resolves the organisation a request acts on. A superadmin may
// target any live organisation through X-Organisation-ID; everyone else is
// pinned to their own organisation and a header naming another one is
// refused. Must run after AuthRequired.
func OrgContext(orgs OrganisationLookup) fiber.Handler {
	return func(c fiber.Ctx) error {
		scope, ok := ScopeFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		header := c.Get(HeaderOrganisationID)
		if header == "" {
			if !scope.HasOrg() && !scope.IsSuperAdmin {
				return fiber.NewError(fiber.StatusForbidden, "no organisation context")
			}
			return c.Next()
		}

		orgID, err := uuid.Parse(header)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+HeaderOrganisationID)
		}
		if !scope.IsSuperAdmin {
			if orgID != scope.OrgID {
				return fiber.NewError(fiber.StatusForbidden, "organisation is outside your account")
			}
			return c.Next()
		}

		o, err := orgs.Get(c.Context(), orgID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.OrgDelete) {
			return fiber.NewError(fiber.StatusNotFound, "organisation not found")
		}
		if err != nil {
			return err
		}

		targeted := *scope
		targeted.OrgID = orgID
		setScope(c, &targeted)
		return c.Next()
	}
}

// ScopeFromFiber returns the tenant scope of the request.
func ScopeFromFiber(c fiber.Ctx) (*reqctx.Scope, bool) {
	s, ok := c.Locals(LocalsScope).(*reqctx.Scope)
	return s, ok && s != nil
}

func setScope(c fiber.Ctx, s *reqctx.Scope) {
	c.Locals(LocalsScope, s)
	c.SetContext(reqctx.WithScope(c.Context(), s))
}
