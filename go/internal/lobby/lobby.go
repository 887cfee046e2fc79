// Package lobby keeps one match controller per room code.
package lobby

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reactionduel/go/internal/channel"
	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/gateway"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

var (
	// ErrInvalidRoomCode is returned for codes outside [A-Za-z0-9_-]{1,32}
	ErrInvalidRoomCode = errors.New("invalid room code")
	// ErrRoomNotFound is returned when no match was ever started in a room
	ErrRoomNotFound = errors.New("room not found")
)

var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidateRoomCode checks that code is usable as a room key.
func ValidateRoomCode(code string) error {
	if !roomCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRoomCode, code)
	}
	return nil
}

// RemoteFactory builds the remote channel mirroring a room's events.
type RemoteFactory func(code string) channel.Channel

// Option configures a Lobby.
type Option func(*Lobby)

func WithHistory(w match.HistoryWriter) Option {
	return func(l *Lobby) { l.history = w }
}

func WithMetrics(m metrics.Collector) Option {
	return func(l *Lobby) { l.metrics = m }
}

// WithGateway mirrors room events to WebSocket clients and accepts their clicks.
func WithGateway(cm *gateway.ConnectionManager) Option {
	return func(l *Lobby) { l.gateway = cm }
}

// WithRemote mirrors room events to an additional channel per room.
func WithRemote(f RemoteFactory) Option {
	return func(l *Lobby) { l.remote = f }
}

type room struct {
	code string
	ctrl *match.Controller
	ch   channel.Channel
}

// Lobby owns the controllers of every active room.
type Lobby struct {
	clock   timer.Clock
	cfg     match.Config
	history match.HistoryWriter
	metrics metrics.Collector
	gateway *gateway.ConnectionManager
	remote  RemoteFactory

	mu    sync.Mutex
	rooms map[string]*room
}

// New creates an empty lobby.
func New(clock timer.Clock, cfg match.Config, opts ...Option) *Lobby {
	l := &Lobby{
		clock:   clock,
		cfg:     cfg,
		metrics: metrics.NoOp{},
		rooms:   make(map[string]*room),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Controller returns the controller for code, creating the room if needed.
func (l *Lobby) Controller(code string) (*match.Controller, error) {
	r, err := l.room(code, true)
	if err != nil {
		return nil, err
	}
	return r.ctrl, nil
}

// StartMatch starts or restarts the match in room code.
func (l *Lobby) StartMatch(code, player1, player2 string) (models.Match, error) {
	// Names are checked before a room is created for them
	if _, _, err := models.ValidatePlayerNames(player1, player2); err != nil {
		return models.Match{}, err
	}
	r, err := l.room(code, true)
	if err != nil {
		return models.Match{}, err
	}
	return r.ctrl.StartMatch(player1, player2)
}

// Click resolves a click in an existing room.
func (l *Lobby) Click(code string, side models.Side) (timer.Outcome, error) {
	r, err := l.room(code, false)
	if err != nil {
		return timer.Outcome{}, err
	}
	return r.ctrl.Click(side)
}

// State returns the current state of room code.
func (l *Lobby) State(code string) (match.State, error) {
	r, err := l.room(code, false)
	if err != nil {
		return match.State{}, err
	}
	st, ok := r.ctrl.Snapshot()
	if !ok {
		return match.State{}, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return st, nil
}

// RoomState implements gateway.StateProvider.
func (l *Lobby) RoomState(code string) (any, bool) {
	st, err := l.State(code)
	if err != nil {
		return nil, false
	}
	return st, true
}

// Close disposes room code and disconnects its channels.
func (l *Lobby) Close(code string) error {
	l.mu.Lock()
	r, ok := l.rooms[code]
	delete(l.rooms, code)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return l.teardown(r)
}

// Shutdown closes every room.
func (l *Lobby) Shutdown() error {
	l.mu.Lock()
	rooms := l.rooms
	l.rooms = make(map[string]*room)
	l.mu.Unlock()

	var errs []error
	for _, r := range rooms {
		if err := l.teardown(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Lobby) teardown(r *room) error {
	r.ctrl.Dispose()
	if err := r.ch.Disconnect(); err != nil {
		return fmt.Errorf("disconnect room %s: %w", r.code, err)
	}
	log.Info().Str("room", r.code).Msg("room closed")
	return nil
}

func (l *Lobby) room(code string, create bool) (*room, error) {
	if err := ValidateRoomCode(code); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.rooms[code]; ok {
		return r, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}

	var chans channel.Fanout
	var ws *gateway.Room
	if l.gateway != nil {
		ws = l.gateway.Room(code)
		chans = append(chans, ws)
	}
	if l.remote != nil {
		chans = append(chans, l.remote(code))
	}

	opts := []match.Option{match.WithChannel(chans), match.WithMetrics(l.metrics)}
	if l.history != nil {
		opts = append(opts, match.WithHistory(l.history))
	}
	ctrl := match.New(l.clock, l.cfg, opts...)

	if ws != nil {
		ws.On(channel.EventClick, func(m channel.Message) {
			var p channel.ClickPayload
			if err := m.Decode(&p); err != nil {
				log.Warn().Err(err).Str("room", code).Msg("ignoring malformed click")
				return
			}
			if _, err := ctrl.Click(p.Side); err != nil {
				log.Warn().Err(err).Str("room", code).Msg("click rejected")
			}
		})
	}

	r := &room{code: code, ctrl: ctrl, ch: chans}
	l.rooms[code] = r
	log.Info().Str("room", code).Msg("room opened")
	return r, nil
}
