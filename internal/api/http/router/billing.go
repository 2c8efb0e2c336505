package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerBillingRoutes(api fiber.Router, h *handler.BillingHandler, scoped orgChain, requirePerm permFunc) {
	// Signed by Stripe, not by a user session. Registered ahead of the
	// group so the group middleware never runs for it.
	api.Post("/billing/webhook", h.Webhook)

	b := api.Group("/billing", scoped.auth, scoped.org, scoped.activity)
	b.Post("/checkout", requirePerm(authorize.ResourceBilling, authorize.ActionUpdate), h.Checkout)
	b.Post("/portal", requirePerm(authorize.ResourceBilling, authorize.ActionUpdate), h.Portal)
	b.Get("/subscription", requirePerm(authorize.ResourceBilling, authorize.ActionRead), h.Subscription)
	b.Get("/payments", requirePerm(authorize.ResourceBilling, authorize.ActionList), h.Payments)
}
