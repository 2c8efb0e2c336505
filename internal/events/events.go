// Package events publishes domain events on NATS. Subjects follow
// simward.<entity>.<event>.<id>; payloads are JSON.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const Prefix = "simward"

// Subject builds simward.<entity>.<event>.<id>.
func Subject(entity, event string, id uuid.UUID) string {
	return fmt.Sprintf("%s.%s.%s.%s", Prefix, entity, event, id)
}

// Wildcard subscribes to every id of an entity event.
func Wildcard(entity, event string) string {
	return fmt.Sprintf("%s.%s.%s.*", Prefix, entity, event)
}

// ParseSubject returns the entity, event and id of a subject built by Subject.
func ParseSubject(subject string) (entity, event string, id uuid.UUID, err error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != Prefix {
		return "", "", uuid.Nil, fmt.Errorf("malformed subject %q", subject)
	}
	id, err = uuid.Parse(parts[3])
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("malformed subject id %q: %w", subject, err)
	}
	return parts[1], parts[2], id, nil
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Counter is satisfied by observability.DomainMetrics.
type Counter interface {
	EventPublished(ctx context.Context, subject string)
}

// NATS publishes on a connection. A nil connection drops events, which keeps
// single-instance development setups working without a broker.
type NATS struct {
	nc      *nats.Conn
	metrics Counter
}

func NewNATS(nc *nats.Conn, metrics Counter) *NATS {
	return &NATS{nc: nc, metrics: metrics}
}

func (p *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if p.nc == nil {
		slog.DebugContext(ctx, "events: no broker, dropping", "subject", subject)
		return nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if p.metrics != nil {
		entity, event, _, _ := ParseSubject(subject)
		p.metrics.EventPublished(ctx, entity+"."+event)
	}
	return nil
}

// PublishAsync logs instead of returning errors. Events are notifications,
// so a broker outage must not fail the request that produced them.
func PublishAsync(ctx context.Context, p Publisher, subject string, payload any) {
	if err := p.Publish(ctx, subject, payload); err != nil {
		slog.WarnContext(ctx, "events: publish failed", "subject", subject, "err", err)
	}
}

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Subject: subject, Payload: payload})
	return nil
}

// Subjects returns the recorded subjects in publish order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Subject
	}
	return out
}
