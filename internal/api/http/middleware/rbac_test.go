package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/authorize/authorizetest"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// denyAll refuses every check.
type denyAll struct{ authorize.IAuthorization }

func (denyAll) MustEnforce(context.Context, authorize.GroupSubject, authorize.Domain, authorize.Resource, authorize.Action) error {
	return authorize.ErrForbidden
}

func TestRequirePermission(t *testing.T) {
	ctx := context.Background()
	authz := authorizetest.New(t)

	org := uuid.New()
	root := &reqctx.Scope{UserID: uuid.New(), OrgID: org, Role: authorize.UserRoleSuperAdmin, IsSuperAdmin: true}
	require.NoError(t, authorize.AssignUserRole(ctx, authz, root.UserID.String(), authorize.UserRoleSuperAdmin, ""))
	faculty := &reqctx.Scope{UserID: uuid.New(), OrgID: org, Role: authorize.UserRoleFaculty}
	require.NoError(t, authorize.AssignUserRole(ctx, authz, faculty.UserID.String(), authorize.UserRoleFaculty, org.String()))
	// Claims a superadmin role without the grouping row.
	forged := &reqctx.Scope{UserID: uuid.New(), OrgID: org, Role: authorize.UserRoleSuperAdmin, IsSuperAdmin: true}
	outsider := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New(), Role: authorize.UserRoleFaculty}

	newApp := func(auth authorize.IAuthorization, s *reqctx.Scope) *fiber.App {
		app := fiber.New()
		app.Use(func(c fiber.Ctx) error {
			if s != nil {
				setScope(c, s)
			}
			return c.Next()
		})
		app.Get("/", RequirePermission(auth, authorize.ResourcePatient, authorize.ActionRead), func(c fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	tests := []struct {
		name   string
		auth   authorize.IAuthorization
		scope  *reqctx.Scope
		status int
	}{
		{"superadmin through bypass", authz, root, fiber.StatusOK},
		{"member with permission", authz, faculty, fiber.StatusOK},
		{"superadmin flag without grouping", authz, forged, fiber.StatusForbidden},
		{"other organisation", authz, outsider, fiber.StatusForbidden},
		{"superadmin denied by authorizer", denyAll{}, root, fiber.StatusForbidden},
		{"no scope", authz, nil, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.auth, tt.scope).Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
