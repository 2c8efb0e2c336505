package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10

	defaultSendBuffer = 256
)

// Conn is the part of *websocket.Conn the relay uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one authenticated socket.
type Client struct {
	ID    uuid.UUID
	Scope *reqctx.Scope

	conn Conn
	send chan []byte
	// rooms is guarded by the hub's mutex.
	rooms map[uuid.UUID]struct{}
}

func NewClient(conn Conn, scope *reqctx.Scope, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Client{
		ID:    uuid.New(),
		Scope: scope,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[uuid.UUID]struct{}),
	}
}

// enqueue queues a frame for this client only. Only the read loop calls
// it, before the client is unregistered.
func (c *Client) enqueue(event string, sessionID uuid.UUID, payload any) {
	data, err := encode(event, sessionID, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) fail(sessionID uuid.UUID, msg string) {
	c.enqueue(EventError, sessionID, map[string]string{"error": msg})
}

// writePump drains the send queue and keeps the connection alive with
// pings. It returns when the queue is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
