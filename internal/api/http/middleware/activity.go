package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simward_backend/internal/repo"
)

// ActivityRecorder is satisfied by activity.Service.
type ActivityRecorder interface {
	Record(l repo.ActivityLog)
}

// ActivityLog records successful mutating requests. Recording is queued,
// so the request never waits on the write.
func ActivityLog(rec ActivityRecorder) fiber.Handler {
	return func(c fiber.Ctx) error {
		err := c.Next()

		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return err
		}
		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusBadRequest {
			return err
		}

		route := c.Route().Path
		entity, param := entityFromRoute(route)
		l := repo.ActivityLog{
			Method:     c.Method(),
			Route:      route,
			Path:       c.Path(),
			Entity:     entity,
			StatusCode: status,
			IP:         c.IP(),
			UserAgent:  c.Get(fiber.HeaderUserAgent),
			CreatedAt:  time.Now().UTC(),
		}
		if param != "" {
			l.EntityID = c.Params(param)
		}
		if rid, ok := RequestIDFromFiber(c); ok {
			l.RequestID = rid
		}
		if s, ok := ScopeFromFiber(c); ok {
			uid := s.UserID
			l.UserID = &uid
			if s.HasOrg() {
				oid := s.OrgID
				l.OrganisationID = &oid
			}
		}
		rec.Record(l)
		return nil
	}
}

// entityFromRoute picks the last static segment that is followed by a
// parameter, falling back to the last static segment:
// /api/v1/patients/:id/prescriptions/:pid/status gives ("prescriptions", "pid").
func entityFromRoute(route string) (entity, param string) {
	segs := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(segs) - 2; i >= 0; i-- {
		if !isParam(segs[i]) && isParam(segs[i+1]) {
			return segs[i], strings.TrimSuffix(strings.TrimPrefix(segs[i+1], ":"), "?")
		}
	}
	for i := len(segs) - 1; i >= 0; i-- {
		if !isParam(segs[i]) {
			return segs[i], ""
		}
	}
	return "", ""
}

func isParam(seg string) bool { return strings.HasPrefix(seg, ":") }
