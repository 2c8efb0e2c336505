package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerSessionRoutes(api fiber.Router, h *handler.SessionHandler, scoped orgChain, requirePerm permFunc) {
	sessions := api.Group("/sessions", scoped.auth, scoped.org, scoped.activity)

	sessions.Get("/", requirePerm(authorize.ResourceSession, authorize.ActionList), h.List)
	sessions.Post("/", requirePerm(authorize.ResourceSession, authorize.ActionCreate), h.Create)
	sessions.Post("/join", requirePerm(authorize.ResourceSession, authorize.ActionRead), h.Join)

	s := sessions.Group("/:id")
	s.Get("/", requirePerm(authorize.ResourceSession, authorize.ActionRead), h.Get)
	s.Patch("/", requirePerm(authorize.ResourceSession, authorize.ActionUpdate), h.Update)
	s.Delete("/", requirePerm(authorize.ResourceSession, authorize.ActionDelete), h.Delete)
	s.Post("/start", requirePerm(authorize.ResourceSession, authorize.ActionExecute), h.Start)
	s.Post("/end", requirePerm(authorize.ResourceSession, authorize.ActionExecute), h.End)
	s.Patch("/visibility", requirePerm(authorize.ResourceSession, authorize.ActionExecute), h.SetVisibility)

	// Participants
	s.Get("/participants", requirePerm(authorize.ResourceSession, authorize.ActionRead), h.Participants)
	s.Post("/participants", requirePerm(authorize.ResourceSession, authorize.ActionUpdate), h.AddParticipant)
	s.Delete("/participants/:userId", requirePerm(authorize.ResourceSession, authorize.ActionUpdate), h.RemoveParticipant)
}
