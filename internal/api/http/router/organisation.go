package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

// Middleware is attached per route: group middleware matches by path prefix
// and the two audiences below share /organisations.
func (r *Router) registerOrganisationRoutes(api fiber.Router, h *handler.OrganisationHandler, scoped orgChain, requirePerm permFunc) {
	orgs := api.Group("/organisations")
	superOnly := middleware.RequireSuperAdmin()

	// Platform administration
	orgs.Get("/", scoped.auth, scoped.org, superOnly, h.List)
	orgs.Post("/", scoped.auth, scoped.org, superOnly, scoped.activity, h.Create)
	orgs.Delete("/:id", scoped.auth, scoped.org, superOnly, scoped.activity, h.Delete)
	orgs.Post("/:id/recover", scoped.auth, scoped.org, superOnly, scoped.activity, h.Recover)

	// Superadmin, or staff of that organisation
	orgs.Get("/:id", scoped.auth, scoped.org, requirePerm(authorize.ResourceOrganisation, authorize.ActionRead), h.Get)
	orgs.Patch("/:id", scoped.auth, scoped.org, scoped.activity, requirePerm(authorize.ResourceOrganisation, authorize.ActionUpdate), h.Update)
}
