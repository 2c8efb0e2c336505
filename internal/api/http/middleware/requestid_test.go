package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c fiber.Ctx) error {
		fromLocals, _ := RequestIDFromFiber(c)
		if reqctx.RequestIDFromContext(c.Context()) != fromLocals {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(fromLocals)
	})

	call := func(header string) (string, string) {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set(HeaderRequestID, header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		return resp.Header.Get(HeaderRequestID), string(body)
	}

	echoed, body := call("trace-abc-123")
	assert.Equal(t, "trace-abc-123", echoed)
	assert.Equal(t, echoed, body)

	for _, bad := range []string{"", "has space", strings.Repeat("x", maxRequestIDLen+1)} {
		echoed, body = call(bad)
		assert.NotEqual(t, bad, echoed)
		assert.Len(t, echoed, 36)
		assert.Equal(t, echoed, body)
	}
}
