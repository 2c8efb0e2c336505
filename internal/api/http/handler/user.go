package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/service/user"
)

type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func mapUserError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrOrganisationNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrInvalidStatus),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidPhone),
		errors.Is(err, user.ErrOrganisationRequired):
		return badRequest(c, err.Error())
	case errors.Is(err, user.ErrEmailAlreadyExists),
		errors.Is(err, user.ErrAlreadyDeleted),
		errors.Is(err, user.ErrNotDeleted),
		errors.Is(err, user.ErrOrganisationDeleted):
		return conflict(c, err.Error())
	case errors.Is(err, user.ErrCannotModifySelf),
		errors.Is(err, user.ErrCannotModifySuperAdmin),
		errors.Is(err, user.ErrSuperAdminOnly):
		return forbidden(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /users
func (h *UserHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), scopeOf(c), user.ListRequest{
		Role:           c.Query("role"),
		Status:         c.Query("status"),
		Search:         c.Query("search"),
		IncludeDeleted: fiber.Query[bool](c, "include_deleted"),
		Page:           pageFromQuery(c),
	})
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, res)
}

// POST /users
func (h *UserHandler) Create(c fiber.Ctx) error {
	var body user.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s := scopeOf(c)
	// Admins create inside the organisation in context.
	if body.OrganisationID == nil && s.HasOrg() {
		org := s.OrgID
		body.OrganisationID = &org
	}
	u, err := h.svc.Create(c.Context(), s, body)
	if err != nil {
		return mapUserError(c, err)
	}
	return created(c, u)
}

// GET /users/:id
func (h *UserHandler) Get(c fiber.Ctx) error {
	id, err := h.target(c)
	if err != nil {
		return mapUserError(c, err)
	}
	u, err := h.svc.Get(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// PATCH /users/:id
func (h *UserHandler) Update(c fiber.Ctx) error {
	id, err := h.target(c)
	if err != nil {
		return mapUserError(c, err)
	}
	var body user.UpdateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.UpdateProfile(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// PUT /users/:id/role
func (h *UserHandler) ChangeRole(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapUserError(c, err)
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.ChangeRole(c.Context(), scopeOf(c), id, body.Role)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// PUT /users/:id/status
func (h *UserHandler) SetStatus(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapUserError(c, err)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.SetStatus(c.Context(), scopeOf(c), id, body.Status)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// DELETE /users/:id
func (h *UserHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapUserError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), id); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}

// POST /users/:id/recover
func (h *UserHandler) Recover(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapUserError(c, err)
	}
	if err := h.svc.Recover(c.Context(), scopeOf(c), id); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}

// target resolves :id, where "me" is the caller.
func (h *UserHandler) target(c fiber.Ctx) (uuid.UUID, error) {
	if c.Params("id") == "me" {
		return scopeOf(c).UserID, nil
	}
	return paramID(c, "id")
}
