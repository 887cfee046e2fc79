package gateway

import (
	"encoding/json"
	"time"
)

// EventTypeState is sent to a client right after it connects.
const EventTypeState = "state"

// RoomEvent is the frame exchanged with WebSocket clients in both directions.
type RoomEvent struct {
	ID        string          `json:"id,omitempty"`
	Room      string          `json:"room,omitempty"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StateProvider supplies the current state of a room for newly connected clients.
type StateProvider interface {
	RoomState(room string) (any, bool)
}
