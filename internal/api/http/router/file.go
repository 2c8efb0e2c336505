package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/api/http/handler"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

func (r *Router) registerFileRoutes(api fiber.Router, h *handler.FileHandler, scoped orgChain, requirePerm permFunc) {
	files := api.Group("/files", scoped.auth, scoped.org, scoped.activity)
	files.Post("/presign-upload", requirePerm(authorize.ResourceFile, authorize.ActionCreate), h.PresignUpload)
	files.Get("/presign-download", requirePerm(authorize.ResourceFile, authorize.ActionRead), h.PresignDownload)
}
