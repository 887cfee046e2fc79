package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/reactionduel/go/internal/channel"
)

var _ channel.Channel = (*Room)(nil)

// Room is the channel.Channel for one room's WebSocket clients. Emit
// broadcasts to every client; client frames reach handlers registered with On.
type Room struct {
	code    string
	manager *ConnectionManager

	mu       sync.RWMutex
	handlers map[string][]channel.Handler
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

func (r *Room) Emit(_ context.Context, event string, payload any) error {
	ev, err := newRoomEvent(r.code, event, payload)
	if err != nil {
		return err
	}
	r.manager.BroadcastToRoom(r.code, ev)
	return nil
}

func (r *Room) On(event string, h channel.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string][]channel.Handler)
	}
	r.handlers[event] = append(r.handlers[event], h)
}

// Disconnect closes every client connection of the room.
func (r *Room) Disconnect() error {
	r.mu.Lock()
	r.handlers = nil
	r.mu.Unlock()

	r.manager.closeRoom(r.code)
	return nil
}

func (r *Room) deliver(event RoomEvent) {
	r.mu.RLock()
	hs := append([]channel.Handler(nil), r.handlers[event.Type]...)
	r.mu.RUnlock()

	msg := channel.NewMessage(event.Type, event.Data, json.Unmarshal)
	for _, h := range hs {
		h(msg)
	}
}

func newRoomEvent(room, eventType string, payload any) (*RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &RoomEvent{
		ID:        uuid.New().String(),
		Room:      room,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
