package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/fluidbalance"
)

type FluidBalanceHandler struct {
	svc fluidbalance.Service
}

func NewFluidBalanceHandler(svc fluidbalance.Service) *FluidBalanceHandler {
	return &FluidBalanceHandler{svc: svc}
}

func mapFluidBalanceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return badRequest(c, err.Error())
	case errors.Is(err, fluidbalance.ErrPatientNotFound),
		errors.Is(err, fluidbalance.ErrEntryNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, fluidbalance.ErrInvalidDirection),
		errors.Is(err, fluidbalance.ErrRouteRequired),
		errors.Is(err, fluidbalance.ErrInvalidVolume),
		errors.Is(err, fluidbalance.ErrInvalidWindow),
		errors.Is(err, fluidbalance.ErrRecordedInFuture):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /patients/:id/fluid-balance
func (h *FluidBalanceHandler) Create(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	var body fluidbalance.CreateRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.svc.Create(c.Context(), scopeOf(c), pid, body)
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	return created(c, e)
}

// GET /patients/:id/fluid-balance?from=&to=
func (h *FluidBalanceHandler) List(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC 3339")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC 3339")
	}
	res, err := h.svc.List(c.Context(), scopeOf(c), pid, fluidbalance.ListRequest{
		From: from,
		To:   to,
		Page: pageFromQuery(c),
	})
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	return ok(c, res)
}

// GET /patients/:id/fluid-balance/summary?from=&to=
func (h *FluidBalanceHandler) Summary(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC 3339")
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC 3339")
	}
	sum, err := h.svc.Summary(c.Context(), scopeOf(c), pid, from, to)
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	return ok(c, sum)
}

// DELETE /patients/:id/fluid-balance/:eid
func (h *FluidBalanceHandler) Delete(c fiber.Ctx) error {
	pid, err := paramID(c, "id")
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	eid, err := paramID(c, "eid")
	if err != nil {
		return mapFluidBalanceError(c, err)
	}
	if err := h.svc.Delete(c.Context(), scopeOf(c), pid, eid); err != nil {
		return mapFluidBalanceError(c, err)
	}
	return noContent(c)
}
