package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Data: data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func fail(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(Envelope{Error: msg})
}

func badRequest(c fiber.Ctx, msg string) error { return fail(c, fiber.StatusBadRequest, msg) }

func unauthorized(c fiber.Ctx, msg string) error { return fail(c, fiber.StatusUnauthorized, msg) }

func forbidden(c fiber.Ctx, msg string) error { return fail(c, fiber.StatusForbidden, msg) }

func notFound(c fiber.Ctx, msg string) error { return fail(c, fiber.StatusNotFound, msg) }

func conflict(c fiber.Ctx, msg string) error { return fail(c, fiber.StatusConflict, msg) }

func unprocessable(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusUnprocessableEntity, msg)
}

func internalError(c fiber.Ctx, err error) error {
	rid, _ := middleware.RequestIDFromFiber(c)
	slog.ErrorContext(c.Context(), "request failed",
		"method", c.Method(), "path", c.Path(), "request_id", rid, "err", err)
	return fail(c, fiber.StatusInternalServerError, "internal server error")
}

// ErrorHandler renders errors that escape handlers, mostly *fiber.Error from
// middleware, in the response envelope.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	return internalError(c, err)
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

var errBadID = errors.New("invalid id")

func scopeOf(c fiber.Ctx) *reqctx.Scope {
	s, _ := middleware.ScopeFromFiber(c)
	return s
}

func paramID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}

// childIDs reads the patient id and a nested resource id from the path.
func childIDs(c fiber.Ctx, child string) (uuid.UUID, uuid.UUID, error) {
	pid, err := paramID(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	cid, err := paramID(c, child)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return pid, cid, nil
}

func pageFromQuery(c fiber.Ctx) repo.Page {
	p, _ := strconv.Atoi(c.Query("page"))
	pp, _ := strconv.Atoi(c.Query("per_page"))
	return repo.Page{Page: p, PerPage: pp}
}

// timeQuery parses an RFC 3339 query value; empty yields the zero time.
func timeQuery(c fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func uuidQuery(c fiber.Ctx, key string) (*uuid.UUID, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
