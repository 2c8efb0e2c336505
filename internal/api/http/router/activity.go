package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerActivityRoutes(api fiber.Router, h *handler.ActivityHandler, scoped orgChain, requirePerm permFunc) {
	api.Get("/activity-logs", scoped.auth, scoped.org,
		requirePerm(authorize.ResourceActivityLog, authorize.ActionList), h.List)
}
