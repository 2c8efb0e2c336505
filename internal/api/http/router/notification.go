package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
)

// Notifications belong to the caller, so no organisation context applies.
func (r *Router) registerNotificationRoutes(api fiber.Router, h *handler.NotificationHandler, authRequired fiber.Handler) {
	group := api.Group("/notifications", authRequired)
	group.Get("/", h.List)
	group.Get("/unread-count", h.UnreadCount)
	group.Patch("/read-all", h.MarkAllRead)
	group.Patch("/:id/read", h.MarkRead)
	group.Delete("/:id", h.Delete)
}
