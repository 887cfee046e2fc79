package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
	subjectPrefix     = "duel"
)

// Connect dials NATS with the reconnect policy used by every duel process.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("reactionduel"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// envelope is the wire form of every duel event on NATS.
type envelope struct {
	Origin string `msgpack:"origin"`
	Event  string `msgpack:"event"`
	Data   []byte `msgpack:"data"`
}

// NATS is a Channel over core NATS subjects duel.<room>.<event>.
// Messages published by the same instance are not delivered back to it.
type NATS struct {
	nc     *nats.Conn
	room   string
	origin string

	handlers handlerSet

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATS returns a channel for room on an existing connection. The
// connection is shared and is not closed by Disconnect.
func NewNATS(nc *nats.Conn, room string) *NATS {
	return &NATS{
		nc:     nc,
		room:   subjectToken(room),
		origin: uuid.NewString(),
	}
}

// Emit publishes payload as a msgpack envelope.
func (c *NATS) Emit(ctx context.Context, event string, payload any) error {
	data, err := encodeEnvelope(c.origin, event, payload)
	if err != nil {
		return err
	}
	subject := c.subject(event)
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// On subscribes to event the first time a handler is registered for it.
func (c *NATS) On(event string, h Handler) {
	if !c.handlers.add(event, h) {
		return
	}

	subject := c.subject(event)
	sub, err := c.nc.Subscribe(subject, c.receive)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to subscribe to duel events")
		return
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

// Disconnect drains the room's subscriptions.
func (c *NATS) Disconnect() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	c.handlers.reset()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unsubscribe %s: %w", sub.Subject, err)
		}
	}
	return firstErr
}

func (c *NATS) receive(msg *nats.Msg) {
	env, err := decodeEnvelope(msg.Data)
	if err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed duel event")
		return
	}
	if env.Origin == c.origin {
		return
	}
	c.handlers.dispatch(NewMessage(env.Event, env.Data, msgpack.Unmarshal))
}

func (c *NATS) subject(event string) string {
	return subjectPrefix + "." + c.room + "." + subjectToken(event)
}

func encodeEnvelope(origin, event string, payload any) ([]byte, error) {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	out, err := msgpack.Marshal(envelope{Origin: origin, Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return out, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// subjectToken makes s safe to use as a single NATS subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
