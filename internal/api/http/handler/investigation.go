package handler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/investigation"
)

type InvestigationHandler struct {
	svc     investigation.Service
	catalog investigation.CatalogService
}

func NewInvestigationHandler(svc investigation.Service, catalog investigation.CatalogService) *InvestigationHandler {
	return &InvestigationHandler{svc: svc, catalog: catalog}
}

func mapInvestigationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, investigation.ErrPatientNotFound),
		errors.Is(err, investigation.ErrCategoryNotFound),
		errors.Is(err, investigation.ErrTestNotFound),
		errors.Is(err, investigation.ErrParameterNotFound),
		errors.Is(err, investigation.ErrRequestNotFound),
		errors.Is(err, investigation.ErrReportNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, investigation.ErrGlobalCatalogForbidden):
		return forbidden(c, err.Error())
	case errors.Is(err, investigation.ErrCatalogEntryInUse),
		errors.Is(err, investigation.ErrCatalogEntryExists),
		errors.Is(err, investigation.ErrInvalidTransition),
		errors.Is(err, investigation.ErrAlreadyReported):
		return conflict(c, err.Error())
	case errors.Is(err, investigation.ErrNameRequired),
		errors.Is(err, investigation.ErrNestingTooDeep),
		errors.Is(err, investigation.ErrInvalidRange),
		errors.Is(err, investigation.ErrNoTests),
		errors.Is(err, investigation.ErrInvalidPriority),
		errors.Is(err, investigation.ErrInvalidStatus),
		errors.Is(err, investigation.ErrNoValues),
		errors.Is(err, investigation.ErrUnknownParameter):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// ---------------------------------------------------------------------------
// Investigation catalogue
// ---------------------------------------------------------------------------

// GET /investigations/catalog
func (h *InvestigationHandler) Catalog(c fiber.Ctx) error {
	tree, err := h.catalog.Tree(c.Context(), scopeOf(c))
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, tree)
}

// POST /investigations/categories
func (h *InvestigationHandler) CreateCategory(c fiber.Ctx) error {
	var body investigation.CategoryRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	cat, err := h.catalog.CreateCategory(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return created(c, cat)
}

// PATCH /investigations/categories/:id
func (h *InvestigationHandler) RenameCategory(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	var body renameBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.catalog.RenameCategory(c.Context(), scopeOf(c), id, body.Name); err != nil {
		return mapInvestigationError(c, err)
	}
	return noContent(c)
}

// DELETE /investigations/categories/:id
func (h *InvestigationHandler) DeleteCategory(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	if err := h.catalog.DeleteCategory(c.Context(), scopeOf(c), id); err != nil {
		return mapInvestigationError(c, err)
	}
	return noContent(c)
}

// POST /investigations/tests
func (h *InvestigationHandler) CreateTest(c fiber.Ctx) error {
	var body investigation.TestRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.catalog.CreateTest(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return created(c, t)
}

// DELETE /investigations/tests/:id
func (h *InvestigationHandler) DeleteTest(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	if err := h.catalog.DeleteTest(c.Context(), scopeOf(c), id); err != nil {
		return mapInvestigationError(c, err)
	}
	return noContent(c)
}

// GET /investigations/tests/:id/parameters
func (h *InvestigationHandler) ListParameters(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	res, err := h.catalog.ListParameters(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, res)
}

// POST /investigations/tests/:id/parameters
func (h *InvestigationHandler) AddParameter(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	var body investigation.ParameterRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.catalog.AddParameter(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return created(c, p)
}

// DELETE /investigations/tests/:id/parameters/:paramId
func (h *InvestigationHandler) DeleteParameter(c fiber.Ctx) error {
	id, pid, err := childIDs(c, "paramId")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	if err := h.catalog.DeleteParameter(c.Context(), scopeOf(c), id, pid); err != nil {
		return mapInvestigationError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Requests and reports
// ---------------------------------------------------------------------------

// POST /patients/:id/investigations
func (h *InvestigationHandler) Request(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	var body investigation.RequestBatch
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.Request(c.Context(), scopeOf(c), pid, body)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return created(c, res)
}

// GET /patients/:id/investigations?status=
func (h *InvestigationHandler) ListRequests(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	res, err := h.svc.ListRequests(c.Context(), scopeOf(c), pid, c.Query("status"), pageFromQuery(c))
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, res)
}

// GET /patients/:id/investigations/:rid
func (h *InvestigationHandler) GetRequest(c fiber.Ctx) error {
	pid, rid, err := childIDs(c, "rid")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	r, err := h.svc.GetRequest(c.Context(), scopeOf(c), pid, rid)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, r)
}

// PUT /patients/:id/investigations/:rid/status
func (h *InvestigationHandler) ChangeStatus(c fiber.Ctx) error {
	pid, rid, err := childIDs(c, "rid")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	var body statusBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	r, err := h.svc.ChangeStatus(c.Context(), scopeOf(c), pid, rid, body.Status)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, r)
}

// POST /patients/:id/investigations/:rid/report
func (h *InvestigationHandler) Report(c fiber.Ctx) error {
	pid, rid, err := childIDs(c, "rid")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	var body investigation.ReportRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rep, err := h.svc.Report(c.Context(), scopeOf(c), pid, rid, body)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return created(c, rep)
}

// GET /patients/:id/reports
func (h *InvestigationHandler) ListReports(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	res, err := h.svc.ListReports(c.Context(), scopeOf(c), pid, pageFromQuery(c))
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, res)
}

// GET /patients/:id/reports/:rid
func (h *InvestigationHandler) GetReport(c fiber.Ctx) error {
	pid, rid, err := childIDs(c, "rid")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	rep, err := h.svc.GetReport(c.Context(), scopeOf(c), pid, rid)
	if err != nil {
		return mapInvestigationError(c, err)
	}
	return ok(c, rep)
}

// GET /patients/:id/reports/:rid/pdf
func (h *InvestigationHandler) ExportReport(c fiber.Ctx) error {
	pid, rid, err := childIDs(c, "rid")
	if err != nil {
		return mapInvestigationError(c, err)
	}
	// Render into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.svc.ExportReport(c.Context(), scopeOf(c), pid, rid, &buf); err != nil {
		return mapInvestigationError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="report-%s.pdf"`, rid))
	return c.Send(buf.Bytes())
}
