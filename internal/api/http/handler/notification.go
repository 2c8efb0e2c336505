package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/notification"
)

type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func mapNotificationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, notification.ErrNotFound):
		return notFound(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /notifications?unread_only=true
func (h *NotificationHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), scopeOf(c), notification.ListRequest{
		UnreadOnly: fiber.Query[bool](c, "unread_only"),
		Page:       pageFromQuery(c),
	})
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, res)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c fiber.Ctx) error {
	n, err := h.svc.UnreadCount(c.Context(), scopeOf(c))
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, fiber.Map{"count": n})
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapNotificationError(c, err)
	}
	if err := h.svc.MarkRead(c.Context(), scopeOf(c), id); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}

// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	n, err := h.svc.MarkAllRead(c.Context(), scopeOf(c))
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}

// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapNotificationError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), id); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}
