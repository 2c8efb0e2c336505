package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/billing"
)

type BillingHandler struct {
	svc billing.Service
}

func NewBillingHandler(svc billing.Service) *BillingHandler {
	return &BillingHandler{svc: svc}
}

func mapBillingError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrOrganisationRequired):
		return forbidden(c, err.Error())
	case errors.Is(err, billing.ErrOrganisationNotFound),
		errors.Is(err, billing.ErrNoCustomer),
		errors.Is(err, billing.ErrNoSubscription):
		return notFound(c, err.Error())
	case errors.Is(err, billing.ErrInvalidPlan),
		errors.Is(err, billing.ErrInvalidSignature):
		return badRequest(c, err.Error())
	case errors.Is(err, billing.ErrBillingDisabled):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /billing/checkout
func (h *BillingHandler) Checkout(c fiber.Ctx) error {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	url, err := h.svc.Checkout(c.Context(), scopeOf(c), body.Plan)
	if err != nil {
		return mapBillingError(c, err)
	}
	return ok(c, fiber.Map{"url": url})
}

// POST /billing/portal
func (h *BillingHandler) Portal(c fiber.Ctx) error {
	url, err := h.svc.Portal(c.Context(), scopeOf(c))
	if err != nil {
		return mapBillingError(c, err)
	}
	return ok(c, fiber.Map{"url": url})
}

// GET /billing/subscription
func (h *BillingHandler) Subscription(c fiber.Ctx) error {
	sub, err := h.svc.Subscription(c.Context(), scopeOf(c))
	if err != nil {
		return mapBillingError(c, err)
	}
	return ok(c, sub)
}

// GET /billing/payments
func (h *BillingHandler) Payments(c fiber.Ctx) error {
	res, err := h.svc.Payments(c.Context(), scopeOf(c), pageFromQuery(c))
	if err != nil {
		return mapBillingError(c, err)
	}
	return ok(c, res)
}

// POST /billing/webhook
//
// Public; authenticity comes from the Stripe-Signature header over the raw
// body. Customers we do not know are acknowledged so Stripe stops retrying.
func (h *BillingHandler) Webhook(c fiber.Ctx) error {
	err := h.svc.HandleWebhook(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	switch {
	case err == nil, errors.Is(err, billing.ErrUnknownCustomer):
		return ok(c, fiber.Map{"received": true})
	default:
		return mapBillingError(c, err)
	}
}
