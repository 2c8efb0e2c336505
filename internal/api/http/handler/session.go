package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/internal/service/session"
)

type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func mapSessionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrPatientNotFound),
		errors.Is(err, session.ErrUserNotFound),
		errors.Is(err, session.ErrParticipantNotFound),
		errors.Is(err, session.ErrInvalidJoinCode):
		return notFound(c, err.Error())
	case errors.Is(err, session.ErrAlreadyStarted),
		errors.Is(err, session.ErrNotLive),
		errors.Is(err, session.ErrEnded):
		return conflict(c, err.Error())
	case errors.Is(err, session.ErrNameRequired),
		errors.Is(err, session.ErrInvalidKind),
		errors.Is(err, session.ErrInvalidRole),
		errors.Is(err, session.ErrInvalidPanel),
		errors.Is(err, session.ErrVRSettingsVirtualOnly):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /sessions?status=&kind=
func (h *SessionHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), scopeOf(c), session.ListRequest{
		Status: c.Query("status"),
		Kind:   c.Query("kind"),
		Page:   pageFromQuery(c),
	})
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, res)
}

// POST /sessions
//
// The response carries the join code; it is not retrievable later.
func (h *SessionHandler) Create(c fiber.Ctx) error {
	var body session.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.Create(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapSessionError(c, err)
	}
	return created(c, s)
}

// GET /sessions/:id
func (h *SessionHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	s, err := h.svc.Get(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, s)
}

// PATCH /sessions/:id
func (h *SessionHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	var body session.UpdateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.Update(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, s)
}

// DELETE /sessions/:id
func (h *SessionHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), id); err != nil {
		return mapSessionError(c, err)
	}
	return noContent(c)
}

// POST /sessions/:id/start
func (h *SessionHandler) Start(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	s, err := h.svc.Start(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, s)
}

// POST /sessions/:id/end
func (h *SessionHandler) End(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	s, err := h.svc.End(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, s)
}

// PATCH /sessions/:id/visibility
//
// Body is a partial panel map, e.g. {"observations": false}.
func (h *SessionHandler) SetVisibility(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	var body repo.Visibility
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	v, err := h.svc.SetVisibility(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, v)
}

// POST /sessions/join
func (h *SessionHandler) Join(c fiber.Ctx) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.Join(c.Context(), scopeOf(c), body.Code)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, s)
}

// GET /sessions/:id/participants
func (h *SessionHandler) Participants(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	res, err := h.svc.ListParticipants(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapSessionError(c, err)
	}
	return ok(c, res)
}

// POST /sessions/:id/participants
func (h *SessionHandler) AddParticipant(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	var body struct {
		UserID uuid.UUID `json:"user_id"`
		Role   string    `json:"role"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.AddParticipant(c.Context(), scopeOf(c), id, body.UserID, body.Role)
	if err != nil {
		return mapSessionError(c, err)
	}
	return created(c, p)
}

// DELETE /sessions/:id/participants/:userId
func (h *SessionHandler) RemoveParticipant(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapSessionError(c, err)
	}
	uid, err := paramID(c, "userId")
	if err != nil {
		return mapSessionError(c, err)
	}
	if err := h.svc.RemoveParticipant(c.Context(), scopeOf(c), id, uid); err != nil {
		return mapSessionError(c, err)
	}
	return noContent(c)
}
