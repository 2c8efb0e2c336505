package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/observation"
	"github.com/Alijeyrad/simward_backend/pkg/ews"
)

type ObservationHandler struct {
	svc observation.Service
}

func NewObservationHandler(svc observation.Service) *ObservationHandler {
	return &ObservationHandler{svc: svc}
}

func mapObservationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, observation.ErrPatientNotFound),
		errors.Is(err, observation.ErrObservationNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, ews.ErrMissingParameters):
		// The message lists the missing vitals.
		return unprocessable(c, err.Error())
	case errors.Is(err, observation.ErrInvalidScoreType),
		errors.Is(err, observation.ErrInvalidVital),
		errors.Is(err, observation.ErrRecordedInFuture),
		errors.Is(err, observation.ErrAgeRequired),
		errors.Is(err, ews.ErrInvalidValue),
		errors.Is(err, ews.ErrUnknownScoreType):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /patients/:id/observations
func (h *ObservationHandler) Record(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	var body observation.RecordRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.svc.Record(c.Context(), scopeOf(c), pid, body)
	if err != nil {
		return mapObservationError(c, err)
	}
	return created(c, o)
}

// GET /patients/:id/observations?from=&to=
func (h *ObservationHandler) List(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC 3339")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC 3339")
	}
	res, err := h.svc.List(c.Context(), scopeOf(c), pid, observation.ListRequest{
		From: from,
		To:   to,
		Page: pageFromQuery(c),
	})
	if err != nil {
		return mapObservationError(c, err)
	}
	return ok(c, res)
}

// GET /patients/:id/observations/latest
func (h *ObservationHandler) Latest(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	o, err := h.svc.Latest(c.Context(), scopeOf(c), pid)
	if err != nil {
		return mapObservationError(c, err)
	}
	return ok(c, o)
}

// GET /patients/:id/observations/trend?from=&to=&limit=
func (h *ObservationHandler) Trend(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC 3339")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC 3339")
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	pts, err := h.svc.Trend(c.Context(), scopeOf(c), pid, observation.TrendRequest{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		return mapObservationError(c, err)
	}
	return ok(c, pts)
}

// GET /patients/:id/observations/:oid
func (h *ObservationHandler) Get(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	oid, err := paramID(c, "oid")
	if err != nil {
		return mapObservationError(c, err)
	}
	o, err := h.svc.Get(c.Context(), scopeOf(c), pid, oid)
	if err != nil {
		return mapObservationError(c, err)
	}
	return ok(c, o)
}

// DELETE /patients/:id/observations/:oid
func (h *ObservationHandler) Delete(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapObservationError(c, err)
	}
	oid, err := paramID(c, "oid")
	if err != nil {
		return mapObservationError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), pid, oid); err != nil {
		return mapObservationError(c, err)
	}
	return noContent(c)
}

// POST /ews/calculate
//
// Scores a set of vitals without storing anything.
func (h *ObservationHandler) Calculate(c fiber.Ctx) error {
	var body observation.CalculateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.Calculate(c.Context(), body)
	if err != nil {
		return mapObservationError(c, err)
	}
	return ok(c, res)
}
