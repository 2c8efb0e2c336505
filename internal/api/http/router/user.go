package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, scoped orgChain, requirePerm permFunc) {
	users := api.Group("/users", scoped.auth, scoped.org, scoped.activity)

	users.Get("/", requirePerm(authorize.ResourceUser, authorize.ActionList), h.List)
	users.Post("/", requirePerm(authorize.ResourceUser, authorize.ActionCreate), h.Create)
	users.Get("/:id", requirePerm(authorize.ResourceUser, authorize.ActionRead), h.Get)
	users.Patch("/:id", requirePerm(authorize.ResourceUser, authorize.ActionUpdate), h.Update)
	users.Put("/:id/role", requirePerm(authorize.ResourceUser, authorize.ActionGrant), h.ChangeRole)
	users.Put("/:id/status", requirePerm(authorize.ResourceUser, authorize.ActionUpdate), h.SetStatus)
	users.Delete("/:id", requirePerm(authorize.ResourceUser, authorize.ActionDelete), h.Delete)
	users.Post("/:id/recover", requirePerm(authorize.ResourceUser, authorize.ActionRecover), h.Recover)
}
