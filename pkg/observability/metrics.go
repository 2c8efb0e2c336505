package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Alijeyrad/simward_backend"

// DomainMetrics are the application-level instruments. A zero-config
// meter provider makes every call a no-op, so tests can use NewDomainMetrics
// without initialising telemetry.
type DomainMetrics struct {
	observations  metric.Int64Counter
	realtimeConns metric.Int64UpDownCounter
	realtimeRooms metric.Int64UpDownCounter
	relayedEvents metric.Int64Counter
	domainEvents  metric.Int64Counter
	activityDrops metric.Int64Counter
}

func NewDomainMetrics() *DomainMetrics {
	meter := otel.Meter(meterName)

	observations, _ := meter.Int64Counter("simward_observations_scored_total",
		metric.WithDescription("Observations scored, by score type and risk level"))
	conns, _ := meter.Int64UpDownCounter("simward_realtime_clients",
		metric.WithDescription("Connected realtime clients"))
	rooms, _ := meter.Int64UpDownCounter("simward_realtime_rooms",
		metric.WithDescription("Session rooms with at least one client"))
	relayed, _ := meter.Int64Counter("simward_realtime_events_total",
		metric.WithDescription("Realtime events relayed, by event name"))
	events, _ := meter.Int64Counter("simward_domain_events_total",
		metric.WithDescription("Domain events published, by subject prefix"))
	drops, _ := meter.Int64Counter("simward_activity_log_dropped_total",
		metric.WithDescription("Activity log entries dropped because the queue was full"))

	return &DomainMetrics{
		observations:  observations,
		realtimeConns: conns,
		realtimeRooms: rooms,
		relayedEvents: relayed,
		domainEvents:  events,
		activityDrops: drops,
	}
}

func (m *DomainMetrics) ObservationScored(ctx context.Context, scoreType, risk string) {
	m.observations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("score_type", scoreType),
		attribute.String("risk", risk),
	))
}

func (m *DomainMetrics) ClientConnected(ctx context.Context, delta int64) {
	m.realtimeConns.Add(ctx, delta)
}

func (m *DomainMetrics) RoomOpened(ctx context.Context, delta int64) {
	m.realtimeRooms.Add(ctx, delta)
}

func (m *DomainMetrics) EventRelayed(ctx context.Context, event string) {
	m.relayedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *DomainMetrics) EventPublished(ctx context.Context, subject string) {
	m.domainEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}

func (m *DomainMetrics) ActivityDropped(ctx context.Context) {
	m.activityDrops.Add(ctx, 1)
}
