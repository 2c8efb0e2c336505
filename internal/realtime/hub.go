// Package realtime relays live-session events between connected clients.
// Each session is a room; events sent to a room are pass-through JSON with
// no ordering or delivery guarantee. With NATS configured, broadcasts fan
// out across instances; otherwise they stay local.
package realtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "simward.realtime.session."

// Subject is the NATS subject carrying broadcasts for one session room.
func Subject(sessionID uuid.UUID) string {
	return subjectPrefix + sessionID.String()
}

// Metrics is satisfied by *observability.DomainMetrics.
type Metrics interface {
	ClientConnected(ctx context.Context, delta int64)
	RoomOpened(ctx context.Context, delta int64)
	EventRelayed(ctx context.Context, event string)
}

type nopMetrics struct{}

func (nopMetrics) ClientConnected(context.Context, int64) {}
func (nopMetrics) RoomOpened(context.Context, int64)      {}
func (nopMetrics) EventRelayed(context.Context, string)   {}

// Hub tracks connected clients and their session rooms. All operations are
// safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uuid.UUID]map[*Client]struct{}
	clients map[*Client]struct{}

	nc      *nats.Conn
	sub     *nats.Subscription
	metrics Metrics
}

// NewHub returns a hub. nc and metrics may be nil.
func NewHub(nc *nats.Conn, metrics Metrics) *Hub {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Hub{
		rooms:   make(map[uuid.UUID]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		nc:      nc,
		metrics: metrics,
	}
}

// Start subscribes to cross-instance broadcasts.
func (h *Hub) Start() error {
	if h.nc == nil {
		return nil
	}
	sub, err := h.nc.Subscribe(subjectPrefix+"*", func(m *nats.Msg) {
		id, err := uuid.Parse(strings.TrimPrefix(m.Subject, subjectPrefix))
		if err != nil {
			return
		}
		h.deliver(id, m.Data)
	})
	if err != nil {
		return err
	}
	h.sub = sub
	return nil
}

// Stop drops the subscription and closes every connection. Read loops exit
// and unregister their clients.
func (h *Hub) Stop() {
	if h.sub != nil {
		_ = h.sub.Unsubscribe()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected(context.Background(), 1)
}

// Unregister removes c from the hub and every room and closes its send
// queue. Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	closed := 0
	for id := range c.rooms {
		if h.leaveLocked(c, id) {
			closed++
		}
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	ctx := context.Background()
	h.metrics.ClientConnected(ctx, -1)
	if closed > 0 {
		h.metrics.RoomOpened(ctx, -int64(closed))
	}
}

func (h *Hub) Join(c *Client, sessionID uuid.UUID) {
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.rooms[sessionID] = struct{}{}
	h.mu.Unlock()

	if !ok {
		h.metrics.RoomOpened(context.Background(), 1)
	}
}

func (h *Hub) Leave(c *Client, sessionID uuid.UUID) {
	h.mu.Lock()
	closed := h.leaveLocked(c, sessionID)
	h.mu.Unlock()
	if closed {
		h.metrics.RoomOpened(context.Background(), -1)
	}
}

// leaveLocked reports whether the room became empty and was removed.
func (h *Hub) leaveLocked(c *Client, sessionID uuid.UUID) bool {
	delete(c.rooms, sessionID)
	room, ok := h.rooms[sessionID]
	if !ok {
		return false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
		return true
	}
	return false
}

func (h *Hub) InRoom(c *Client, sessionID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[sessionID][c]
	return ok
}

// Broadcast sends event to every member of the session room on every
// instance. A failed NATS publish falls back to local delivery.
func (h *Hub) Broadcast(ctx context.Context, sessionID uuid.UUID, event string, payload any) error {
	data, err := encode(event, sessionID, payload)
	if err != nil {
		return err
	}
	h.metrics.EventRelayed(ctx, event)

	if h.nc != nil {
		err := h.nc.Publish(Subject(sessionID), data)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "realtime: nats publish failed, delivering locally", "session_id", sessionID, "err", err)
	}
	h.deliver(sessionID, data)
	return nil
}

// deliver queues data on each local room member. Full queues drop the
// message rather than block the room.
func (h *Hub) deliver(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
