package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerPatientRoutes(api fiber.Router, h *handler.PatientHandler, scoped orgChain, requirePerm permFunc) fiber.Router {
	patients := api.Group("/patients", scoped.auth, scoped.org, scoped.activity)

	// Patient CRUD
	patients.Get("/", requirePerm(authorize.ResourcePatient, authorize.ActionList), h.List)
	patients.Post("/", requirePerm(authorize.ResourcePatient, authorize.ActionCreate), h.Create)

	p := patients.Group("/:id")
	p.Get("/", requirePerm(authorize.ResourcePatient, authorize.ActionRead), h.Get)
	p.Patch("/", requirePerm(authorize.ResourcePatient, authorize.ActionUpdate), h.Update)
	p.Delete("/", requirePerm(authorize.ResourcePatient, authorize.ActionDelete), h.Delete)

	// Notes
	p.Get("/notes", requirePerm(authorize.ResourcePatientNote, authorize.ActionList), h.ListNotes)
	p.Post("/notes", requirePerm(authorize.ResourcePatientNote, authorize.ActionCreate), h.AddNote)
	p.Delete("/notes/:nid", requirePerm(authorize.ResourcePatientNote, authorize.ActionDelete), h.DeleteNote)

	// Attachments
	p.Get("/attachments", requirePerm(authorize.ResourcePatientAttachment, authorize.ActionList), h.ListAttachments)
	p.Post("/attachments", requirePerm(authorize.ResourcePatientAttachment, authorize.ActionCreate), h.AddAttachment)
	p.Get("/attachments/:aid/url", requirePerm(authorize.ResourcePatientAttachment, authorize.ActionRead), h.AttachmentURL)
	p.Delete("/attachments/:aid", requirePerm(authorize.ResourcePatientAttachment, authorize.ActionDelete), h.DeleteAttachment)

	return p
}
