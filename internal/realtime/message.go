package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Client events.
const (
	EventJoinSession      = "JoinSessionEPR"
	EventLeaveSession     = "LeaveSessionEPR"
	EventPlayAnimation    = "PlayAnimationEventEPR"
	EventToggleVisibility = "ToggleVisibility"
)

// Server events.
const (
	EventJoined         = "Joined"
	EventLeft           = "Left"
	EventSessionStarted = "SessionStarted"
	EventSessionEnded   = "SessionEnded"
	EventError          = "Error"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Event     string          `json:"event"`
	SessionID uuid.UUID       `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// relayable lists the client events forwarded to the room as-is.
var relayable = map[string]bool{
	EventPlayAnimation:    true,
	EventToggleVisibility: true,
}

func encode(event string, sessionID uuid.UUID, payload any) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Message{Event: event, SessionID: sessionID, Payload: raw})
}
