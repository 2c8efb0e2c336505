package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/service/auth"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// Authenticator is satisfied by auth.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// Membership decides who may enter a session room. It is satisfied by
// session.Service.
type Membership interface {
	CanJoinRoom(ctx context.Context, scope *reqctx.Scope, sessionID uuid.UUID) (bool, error)
}

type HandlerConfig struct {
	// AllowedOrigins lists accepted Origin headers; empty or "*" allows all.
	AllowedOrigins []string
	SendBuffer     int
}

// Handler upgrades GET /ws?token=<paseto> and runs the client's read loop.
type Handler struct {
	hub        *Hub
	auth       Authenticator
	members    Membership
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, authn Authenticator, members Membership, cfg HandlerConfig) *Handler {
	h := &Handler{hub: hub, auth: authn, members: members, sendBuffer: cfg.SendBuffer}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || lo.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, origin)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	p, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := NewClient(ws, p.Scope(), h.sendBuffer)
	h.hub.Register(c)
	go c.writePump()
	h.Serve(context.WithoutCancel(r.Context()), c)
}

// Serve runs the read loop for a registered client until the connection
// fails, then unregisters it.
func (h *Handler) Serve(ctx context.Context, c *Client) {
	defer h.hub.Unregister(c)

	ctx = reqctx.WithScope(ctx, c.Scope)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.DebugContext(ctx, "realtime: read failed", "client_id", c.ID, "err", err)
			}
			return
		}
		h.dispatch(ctx, c, data)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.fail(uuid.Nil, "malformed message")
		return
	}
	if msg.SessionID == uuid.Nil {
		c.fail(uuid.Nil, "session_id is required")
		return
	}

	switch {
	case msg.Event == EventJoinSession:
		ok, err := h.members.CanJoinRoom(ctx, c.Scope, msg.SessionID)
		if err != nil {
			slog.ErrorContext(ctx, "realtime: membership check failed", "session_id", msg.SessionID, "err", err)
			c.fail(msg.SessionID, "could not join session")
			return
		}
		if !ok {
			c.fail(msg.SessionID, "not allowed to join this session")
			return
		}
		h.hub.Join(c, msg.SessionID)
		c.enqueue(EventJoined, msg.SessionID, map[string]any{
			"user_id": c.Scope.UserID,
			"members": h.hub.RoomSize(msg.SessionID),
		})

	case msg.Event == EventLeaveSession:
		h.hub.Leave(c, msg.SessionID)
		c.enqueue(EventLeft, msg.SessionID, nil)

	case relayable[msg.Event]:
		if !h.hub.InRoom(c, msg.SessionID) {
			c.fail(msg.SessionID, "join the session first")
			return
		}
		if err := h.hub.Broadcast(ctx, msg.SessionID, msg.Event, msg.Payload); err != nil {
			slog.WarnContext(ctx, "realtime: relay failed", "event", msg.Event, "err", err)
		}

	default:
		c.fail(msg.SessionID, "unknown event "+msg.Event)
	}
}
