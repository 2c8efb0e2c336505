package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/service/organisation"
)

type OrganisationHandler struct {
	svc organisation.Service
}

func NewOrganisationHandler(svc organisation.Service) *OrganisationHandler {
	return &OrganisationHandler{svc: svc}
}

func mapOrganisationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, organisation.ErrOrganisationNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, organisation.ErrNameRequired),
		errors.Is(err, organisation.ErrInvalidPlan),
		errors.Is(err, organisation.ErrInvalidPhone):
		return badRequest(c, err.Error())
	case errors.Is(err, organisation.ErrAlreadyDeleted),
		errors.Is(err, organisation.ErrNotDeleted):
		return conflict(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// canManage reports whether the caller may read or edit organisation id.
// Org staff only ever see their own; role checks happen in the router.
func canManage(c fiber.Ctx, id uuid.UUID) bool {
	s := scopeOf(c)
	return s != nil && (s.IsSuperAdmin || s.OrgID == id)
}

// GET /organisations
func (h *OrganisationHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), organisation.ListRequest{
		Search:         c.Query("search"),
		IncludeDeleted: fiber.Query[bool](c, "include_deleted"),
		Page:           pageFromQuery(c),
	})
	if err != nil {
		return mapOrganisationError(c, err)
	}
	return ok(c, res)
}

// POST /organisations
func (h *OrganisationHandler) Create(c fiber.Ctx) error {
	var body organisation.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.svc.Create(c.Context(), body)
	if err != nil {
		return mapOrganisationError(c, err)
	}
	return created(c, o)
}

// GET /organisations/:id
func (h *OrganisationHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapOrganisationError(c, err)
	}
	if !canManage(c, id) {
		return forbidden(c, "not your organisation")
	}
	o, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapOrganisationError(c, err)
	}
	return ok(c, o)
}

// PATCH /organisations/:id
func (h *OrganisationHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapOrganisationError(c, err)
	}
	if !canManage(c, id) {
		return forbidden(c, "not your organisation")
	}
	var body organisation.UpdateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.svc.Update(c.Context(), id, body)
	if err != nil {
		return mapOrganisationError(c, err)
	}
	return ok(c, o)
}

// DELETE /organisations/:id
func (h *OrganisationHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapOrganisationError(c, err)
	}
	if err := h.svc.Delete(c.Context(), id); err != nil {
		return mapOrganisationError(c, err)
	}
	return noContent(c)
}

// POST /organisations/:id/recover
func (h *OrganisationHandler) Recover(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapOrganisationError(c, err)
	}
	if err := h.svc.Recover(c.Context(), id); err != nil {
		return mapOrganisationError(c, err)
	}
	return noContent(c)
}
