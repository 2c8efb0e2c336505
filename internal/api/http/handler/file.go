package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/service/file"
)

type FileHandler struct {
	svc file.Service
}

func NewFileHandler(svc file.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

func mapFileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, file.ErrOrganisationRequired),
		errors.Is(err, file.ErrAccessDenied):
		return forbidden(c, err.Error())
	case errors.Is(err, file.ErrInvalidPurpose),
		errors.Is(err, file.ErrContentTypeNotAllowed),
		errors.Is(err, file.ErrFileNameRequired),
		errors.Is(err, file.ErrKeyRequired):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /files/presign-upload
func (h *FileHandler) PresignUpload(c fiber.Ctx) error {
	var body file.UploadRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.PresignUpload(c.Context(), scopeOf(c), body)
	if err != nil {
		return mapFileError(c, err)
	}
	return ok(c, p)
}

// GET /files/presign-download?key=
func (h *FileHandler) PresignDownload(c fiber.Ctx) error {
	p, err := h.svc.PresignDownload(c.Context(), scopeOf(c), c.Query("key"))
	if err != nil {
		return mapFileError(c, err)
	}
	return ok(c, p)
}
