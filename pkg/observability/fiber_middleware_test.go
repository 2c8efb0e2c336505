package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFiberMiddlewareTracesRoutes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	app := fiber.New()
	app.Use(FiberMiddleware("/livez"))
	app.Get("/patients/:id", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/livez", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/patients/42", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	resp, err = app.Test(httptest.NewRequest("GET", "/livez", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("X-Trace-Id"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /patients/:id", spans[0].Name())
}
