// Package channel carries duel events between a match and its remote
// observers. Transports are interchangeable and a match behaves the same
// over Noop as over a connected transport.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler receives an inbound event.
type Handler func(Message)

// Channel is a bidirectional event channel scoped to one room.
type Channel interface {
	// Emit sends payload under event to every other participant.
	Emit(ctx context.Context, event string, payload any) error
	// On registers h for inbound messages named event.
	On(event string, h Handler)
	// Disconnect releases the transport. Handlers are dropped.
	Disconnect() error
}

// Message is an inbound event whose payload has not been decoded yet.
type Message struct {
	Event string
	Data  []byte

	unmarshal func([]byte, any) error
}

// NewMessage builds a message decoded with unmarshal.
func NewMessage(event string, data []byte, unmarshal func([]byte, any) error) Message {
	return Message{Event: event, Data: data, unmarshal: unmarshal}
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if m.unmarshal == nil {
		return fmt.Errorf("decode %s: no codec", m.Event)
	}
	if err := m.unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Event, err)
	}
	return nil
}

// Noop discards every emit and never delivers anything.
type Noop struct{}

func (Noop) Emit(context.Context, string, any) error { return nil }
func (Noop) On(string, Handler)                      {}
func (Noop) Disconnect() error                       { return nil }

// Fanout emits to several channels and registers handlers on all of them.
type Fanout []Channel

// Emit sends to every channel and joins their errors.
func (f Fanout) Emit(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, ch := range f {
		if err := ch.Emit(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) On(event string, h Handler) {
	for _, ch := range f {
		ch.On(event, h)
	}
}

func (f Fanout) Disconnect() error {
	var errs []error
	for _, ch := range f {
		if err := ch.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// handlerSet is a concurrency-safe registry of handlers keyed by event.
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// add registers h and reports whether it is the first handler for event.
func (s *handlerSet) add(event string, h Handler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string][]Handler)
	}
	first := len(s.handlers[event]) == 0
	s.handlers[event] = append(s.handlers[event], h)
	return first
}

func (s *handlerSet) dispatch(msg Message) {
	s.mu.RLock()
	hs := append([]Handler(nil), s.handlers[msg.Event]...)
	s.mu.RUnlock()

	for _, h := range hs {
		h(msg)
	}
}

func (s *handlerSet) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = nil
}
