package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/patient"
)

type PatientHandler struct {
	svc patient.Service
}

func NewPatientHandler(svc patient.Service) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func mapPatientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, patient.ErrNoteNotFound),
		errors.Is(err, patient.ErrAttachmentNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, patient.ErrHospitalNumberTaken):
		return conflict(c, err.Error())
	case errors.Is(err, patient.ErrAttachmentKeyNotInOrg):
		return forbidden(c, err.Error())
	case errors.Is(err, patient.ErrNameRequired),
		errors.Is(err, patient.ErrInvalidDateOfBirth),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, patient.ErrInvalidCategory),
		errors.Is(err, patient.ErrInvalidStatus),
		errors.Is(err, patient.ErrInvalidMeasurement),
		errors.Is(err, patient.ErrNoteBodyRequired),
		errors.Is(err, patient.ErrFileNameRequired):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// ---------------------------------------------------------------------------
// Patient CRUD
// ---------------------------------------------------------------------------

// GET /patients
func (h *PatientHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), scopeOf(c), patient.ListRequest{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Ward:     c.Query("ward"),
		Search:   c.Query("search"),
		Page:     pageFromQuery(c),
	})
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, res)
}

// POST /patients
func (h *PatientHandler) Create(c fiber.Ctx) error {
	var body patient.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Create(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapPatientError(c, err)
	}
	return created(c, p)
}

// GET /patients/:id
func (h *PatientHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	p, err := h.svc.Get(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, p)
}

// PATCH /patients/:id
func (h *PatientHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	var body patient.UpdateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.Update(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, p)
}

// DELETE /patients/:id
func (h *PatientHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), id); err != nil {
		return mapPatientError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Notes
// ---------------------------------------------------------------------------

// GET /patients/:id/notes
func (h *PatientHandler) ListNotes(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	res, err := h.svc.ListNotes(c.Context(), scopeOf(c), id, pageFromQuery(c))
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, res)
}

// POST /patients/:id/notes
func (h *PatientHandler) AddNote(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	var body patient.NoteRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	n, err := h.svc.AddNote(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapPatientError(c, err)
	}
	return created(c, n)
}

// DELETE /patients/:id/notes/:nid
func (h *PatientHandler) DeleteNote(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	nid, err := paramID(c, "nid")
	if err != nil {
		return mapPatientError(c, err)
	}
	if err := h.svc.DeleteNote(c.Context(), scopeOf(c), id, nid); err != nil {
		return mapPatientError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Attachments
// ---------------------------------------------------------------------------

// GET /patients/:id/attachments
func (h *PatientHandler) ListAttachments(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	res, err := h.svc.ListAttachments(c.Context(), scopeOf(c), id)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, res)
}

// POST /patients/:id/attachments
func (h *PatientHandler) AddAttachment(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	var body patient.AttachmentRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := h.svc.AddAttachment(c.Context(), scopeOf(c), id, body)
	if err != nil {
		return mapPatientError(c, err)
	}
	return created(c, a)
}

// GET /patients/:id/attachments/:aid/url
func (h *PatientHandler) AttachmentURL(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	aid, err := paramID(c, "aid")
	if err != nil {
		return mapPatientError(c, err)
	}
	u, err := h.svc.AttachmentURL(c.Context(), scopeOf(c), id, aid)
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, u)
}

// DELETE /patients/:id/attachments/:aid
func (h *PatientHandler) DeleteAttachment(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapPatientError(c, err)
	}
	aid, err := paramID(c, "aid")
	if err != nil {
		return mapPatientError(c, err)
	}
	if err := h.svc.DeleteAttachment(c.Context(), scopeOf(c), id, aid); err != nil {
		return mapPatientError(c, err)
	}
	return noContent(c)
}
