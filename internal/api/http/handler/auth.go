package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/simward_backend/internal/service/auth"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidIDToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound):
		return unauthorized(c, err.Error())
	case errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrUserNotRegistered),
		errors.Is(err, auth.ErrAccountDeleted),
		errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrOrganisationDeleted):
		return forbidden(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /auth/session
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body auth.LoginRequest
	if err := c.Bind().JSON(&body); err != nil || body.IDToken == "" {
		return badRequest(c, "id_token is required")
	}

	sess, err := h.svc.Login(c.Context(), body)
	if err != nil {
		return mapAuthError(c, err)
	}
	return created(c, sess)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	p, found := middleware.PrincipalFromFiber(c)
	if !found {
		return unauthorized(c, "unauthorized")
	}
	if err := h.svc.Logout(c.Context(), p.SessionID); err != nil {
		return mapAuthError(c, err)
	}
	return noContent(c)
}

// GET /auth/me
func (h *AuthHandler) Me(c fiber.Ctx) error {
	me, err := h.svc.Me(c.Context(), scopeOf(c).UserID)
	if err != nil {
		return mapAuthError(c, err)
	}
	return ok(c, me)
}
