package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/activity"
)

type ActivityHandler struct {
	svc activity.Service
}

func NewActivityHandler(svc activity.Service) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// GET /activity-logs?user_id=&entity=&from=&to=
func (h *ActivityHandler) List(c fiber.Ctx) error {
	uid, err := uuidQuery(c, "user_id")
	if err != nil {
		return badRequest(c, "user_id must be a uuid")
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC 3339")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC 3339")
	}
	res, err := h.svc.List(c.Context(), scopeOf(c), activity.ListRequest{
		UserID: uid,
		Entity: c.Query("entity"),
		From:   from,
		To:     to,
		Page:   pageFromQuery(c),
	})
	if errors.Is(err, activity.ErrInvalidRange) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return internalError(c, err)
	}
	return ok(c, res)
}
