package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const instrumentationName = "github.com/Alijeyrad/simward_backend/pkg/observability"

type httpInstruments struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func newHTTPInstruments() httpInstruments {
	meter := otel.Meter(instrumentationName)
	requests, _ := meter.Int64Counter("http_server_request_count",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"))
	latency, _ := meter.Float64Histogram("http_server_request_duration_ms",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"))
	return httpInstruments{tracer: otel.Tracer(instrumentationName), requests: requests, latency: latency}
}

// FiberMiddleware traces each request and records its count and latency
// by route. Requests for the skip paths pass through untouched. The span
// is renamed to the matched route once routing has run, and the caller's
// org is attached when the tenant middleware resolved one.
func FiberMiddleware(skip ...string) fiber.Handler {
	inst := newHTTPInstruments()
	skipped := lo.SliceToMap(skip, func(p string) (string, struct{}) { return p, struct{}{} })

	return func(c fiber.Ctx) error {
		if _, ok := skipped[c.Path()]; ok {
			return c.Next()
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Context(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := inst.tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.scheme", c.Protocol()),
				attribute.String("net.host.name", c.Hostname()),
				attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		c.SetContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set("X-Trace-Id", sc.TraceID().String())
		}

		start := time.Now()
		err := c.Next()
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		route := c.Route().Path
		status := c.Response().StatusCode()
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if s, ok := reqctx.ScopeFromContext(c.Context()); ok && s.HasOrg() {
			span.SetAttributes(attribute.String("simward.org_id", s.OrgID.String()))
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		inst.requests.Add(ctx, 1, attrs)
		inst.latency.Record(ctx, elapsed, attrs)

		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
			if err != nil {
				span.RecordError(err)
			}
		}
		return err
	}
}
