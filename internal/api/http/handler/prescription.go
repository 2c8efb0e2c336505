package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/prescription"
)

type PrescriptionHandler struct {
	svc     prescription.Service
	catalog prescription.CatalogService
}

func NewPrescriptionHandler(svc prescription.Service, catalog prescription.CatalogService) *PrescriptionHandler {
	return &PrescriptionHandler{svc: svc, catalog: catalog}
}

func mapPrescriptionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, prescription.ErrPatientNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, prescription.ErrDrugNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, prescription.ErrGlobalCatalogForbidden):
		return forbidden(c, err.Error())
	case errors.Is(err, prescription.ErrCatalogEntryInUse),
		errors.Is(err, prescription.ErrCatalogEntryExists),
		errors.Is(err, prescription.ErrInvalidTransition),
		errors.Is(err, prescription.ErrNotActive),
		errors.Is(err, prescription.ErrFinalised):
		return conflict(c, err.Error())
	case errors.Is(err, prescription.ErrNameRequired),
		errors.Is(err, prescription.ErrInvalidDose),
		errors.Is(err, prescription.ErrFrequencyRequired),
		errors.Is(err, prescription.ErrInvalidPeriod),
		errors.Is(err, prescription.ErrInvalidStatus):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

type renameBody struct {
	Name string `json:"name"`
}

type statusBody struct {
	Status string `json:"status"`
}

// ---------------------------------------------------------------------------
// Drug catalogue
// ---------------------------------------------------------------------------

// GET /drugs
func (h *PrescriptionHandler) Catalog(c fiber.Ctx) error {
	tree, err := h.catalog.Tree(c.Context(), scopeOf(c))
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, tree)
}

// POST /drugs/groups
func (h *PrescriptionHandler) CreateGroup(c fiber.Ctx) error {
	var body prescription.GroupRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	g, err := h.catalog.CreateGroup(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return created(c, g)
}

// PATCH /drugs/groups/:id
func (h *PrescriptionHandler) RenameGroup(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body renameBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.catalog.RenameGroup(c.Context(), scopeOf(c), id, body.Name); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// DELETE /drugs/groups/:id
func (h *PrescriptionHandler) DeleteGroup(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	if err := h.catalog.DeleteGroup(c.Context(), scopeOf(c), id); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// POST /drugs/sub-groups
func (h *PrescriptionHandler) CreateSubGroup(c fiber.Ctx) error {
	var body prescription.SubGroupRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.catalog.CreateSubGroup(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return created(c, s)
}

// PATCH /drugs/sub-groups/:id
func (h *PrescriptionHandler) RenameSubGroup(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body renameBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.catalog.RenameSubGroup(c.Context(), scopeOf(c), id, body.Name); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// DELETE /drugs/sub-groups/:id
func (h *PrescriptionHandler) DeleteSubGroup(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	if err := h.catalog.DeleteSubGroup(c.Context(), scopeOf(c), id); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// POST /drugs/types
func (h *PrescriptionHandler) CreateType(c fiber.Ctx) error {
	var body prescription.TypeRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.catalog.CreateType(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return created(c, t)
}

// PUT /drugs/types/:id
func (h *PrescriptionHandler) UpdateType(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body prescription.TypeRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.catalog.UpdateType(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, t)
}

// DELETE /drugs/types/:id
func (h *PrescriptionHandler) DeleteType(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	if err := h.catalog.DeleteType(c.Context(), scopeOf(c), id); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Prescriptions
// ---------------------------------------------------------------------------

// GET /patients/:id/prescriptions?status=
func (h *PrescriptionHandler) List(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	res, err := h.svc.List(c.Context(), scopeOf(c), pid, c.Query("status"), pageFromQuery(c))
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, res)
}

// POST /patients/:id/prescriptions
func (h *PrescriptionHandler) Create(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body prescription.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Create(c.Context(), scopeOf(c), pid, body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return created(c, p)
}

// GET /patients/:id/prescriptions/:rxid
func (h *PrescriptionHandler) Get(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	p, err := h.svc.Get(c.Context(), scopeOf(c), pid, rxid)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, p)
}

// PATCH /patients/:id/prescriptions/:rxid
func (h *PrescriptionHandler) Update(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body prescription.UpdateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Update(c.Context(), scopeOf(c), pid, rxid, body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, p)
}

// PUT /patients/:id/prescriptions/:rxid/status
func (h *PrescriptionHandler) ChangeStatus(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body statusBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.ChangeStatus(c.Context(), scopeOf(c), pid, rxid, body.Status)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, p)
}

// DELETE /patients/:id/prescriptions/:rxid
func (h *PrescriptionHandler) Delete(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), pid, rxid); err != nil {
		return mapPrescriptionError(c, err)
	}
	return noContent(c)
}

// POST /patients/:id/prescriptions/:rxid/administrations
func (h *PrescriptionHandler) Administer(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	var body prescription.AdministerRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := h.svc.Administer(c.Context(), scopeOf(c), pid, rxid, body)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return created(c, a)
}

// GET /patients/:id/prescriptions/:rxid/administrations
func (h *PrescriptionHandler) Administrations(c fiber.Ctx) error {
	pid, rxid, err := childIDs(c, "rxid")
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	res, err := h.svc.ListAdministrations(c.Context(), scopeOf(c), pid, rxid)
	if err != nil {
		return mapPrescriptionError(c, err)
	}
	return ok(c, res)
}
