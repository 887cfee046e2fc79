// Package match runs best-of-3 reaction duels on top of the phase timer.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reactionduel/go/internal/channel"
	"github.com/mcdev12/reactionduel/go/internal/duel/reaction"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

var (
	// ErrDisposed is returned by operations on a disposed controller
	ErrDisposed = errors.New("match controller disposed")
	// ErrInvalidSide is returned when a click names neither player
	ErrInvalidSide = errors.New("invalid side")
)

const (
	defaultSettleDelay      = 1000 * time.Millisecond
	defaultPerfectThreshold = 200 * time.Millisecond
	historyWriteTimeout     = 5 * time.Second
	emitTimeout             = 2 * time.Second
)

// HistoryWriter stores completed match records.
type HistoryWriter interface {
	Append(ctx context.Context, rec models.MatchRecord) error
}

// Config controls round pacing and scoring.
type Config struct {
	Timer            timer.Config
	SettleDelay      time.Duration // pause between a resolved round and the next
	PerfectThreshold time.Duration // reactions strictly faster than this are perfect
	Delay            timer.DelayFunc
}

// DefaultConfig returns the standard match pacing.
func DefaultConfig() Config {
	return Config{
		Timer:            timer.DefaultConfig(),
		SettleDelay:      defaultSettleDelay,
		PerfectThreshold: defaultPerfectThreshold,
	}
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithHistory sets where completed matches are recorded.
func WithHistory(w HistoryWriter) Option {
	return func(c *Controller) { c.history = w }
}

// WithChannel sets the channel that mirrors round events.
func WithChannel(ch channel.Channel) Option {
	return func(c *Controller) { c.channel = ch }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

type subscriber struct {
	id int
	fn Listener
}

// Controller owns one match at a time. All state changes happen under mu
// and events are delivered in order after mu is released.
type Controller struct {
	clock   timer.Clock
	cfg     Config
	delay   timer.DelayFunc
	history HistoryWriter
	channel channel.Channel
	metrics metrics.Collector

	mu        sync.Mutex
	match     *models.Match
	recorder  reaction.Recorder
	timer     *timer.PhaseTimer
	settle    *timer.Handle
	disposed  bool
	listeners []subscriber
	nextID    int
	queue     []Event
	flushing  bool
}

// New creates an idle controller. Call StartMatch to begin playing.
func New(clock timer.Clock, cfg Config, opts ...Option) *Controller {
	delay := cfg.Delay
	if delay == nil {
		delay = timer.RandomDelay(cfg.Timer, nil)
	}

	c := &Controller{
		clock:   clock,
		cfg:     cfg,
		delay:   delay,
		channel: channel.Noop{},
		metrics: metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers l and returns a func that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscriber{id: id, fn: l})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.listeners {
			if s.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// StartMatch replaces any current match with a new one between player1 and
// player2 and starts its first round. Pending transitions of the previous
// match are revoked.
func (c *Controller) StartMatch(player1, player2 string) (models.Match, error) {
	p1, p2, err := models.ValidatePlayerNames(player1, player2)
	if err != nil {
		return models.Match{}, err
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return models.Match{}, ErrDisposed
	}

	c.cancelLocked()
	m := models.NewMatch(p1, p2, c.clock.Now())
	c.match = &m
	c.recorder = reaction.Recorder{}
	c.metrics.MatchStarted()

	log.Info().
		Str("match_id", m.ID.String()).
		Str("player1", p1).
		Str("player2", p2).
		Msg("match started")

	c.startRoundLocked()
	started := *c.match
	c.unlockAndFlush()

	return started, nil
}

// Click resolves a click by side at the current clock time. The clock is
// read under the controller lock, after any transition already applied.
func (c *Controller) Click(side models.Side) (timer.Outcome, error) {
	return c.click(side, c.clock.Now)
}

// HandleClick resolves a click by side made at the given instant against
// the phase current right now. Clicks that arrive while no round is
// accepting input are ignored and change nothing. A click stamped before
// go is a foul.
func (c *Controller) HandleClick(side models.Side, at time.Time) (timer.Outcome, error) {
	return c.click(side, func() time.Time { return at })
}

func (c *Controller) click(side models.Side, clickTime func() time.Time) (timer.Outcome, error) {
	if !side.Valid() {
		return timer.Outcome{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return timer.Outcome{}, ErrDisposed
	}
	at := clickTime()

	ignored := timer.Outcome{Kind: timer.OutcomeIgnored, Phase: models.PhaseIdle}
	if c.match == nil || c.timer == nil {
		c.mu.Unlock()
		return ignored, nil
	}
	cur, ok := c.match.Current()
	if !ok || cur.Resolved() || c.match.Complete() {
		c.mu.Unlock()
		ignored.Phase = models.PhaseResult
		return ignored, nil
	}

	out := c.timer.HandleClick(at)
	if out.Kind == timer.OutcomeIgnored {
		c.mu.Unlock()
		return out, nil
	}

	c.resolveLocked(cur, side, at, out)
	c.unlockAndFlush()
	return out, nil
}

// Snapshot returns the current match and its reaction stats. The bool is
// false before the first match starts.
func (c *Controller) Snapshot() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.match == nil {
		return State{}, false
	}
	st := State{Match: *c.match, Stats: c.recorder.Summary(), Phase: models.PhaseIdle}
	if cur, ok := c.match.Current(); ok {
		st.Phase = cur.Phase
	}
	return st, true
}

// Dispose revokes every pending transition and drops all listeners.
// Later calls return ErrDisposed.
// Completed matches still waiting for delivery are stored before Dispose
// returns.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.cancelLocked()
	c.listeners = nil

	var pending []models.MatchRecord
	for _, evt := range c.queue {
		if evt.Type == EventMatchCompleted && evt.Record != nil {
			pending = append(pending, *evt.Record)
		}
	}
	c.queue = nil
	c.mu.Unlock()

	for _, rec := range pending {
		c.persist(rec)
	}
	log.Debug().Int("pending_records", len(pending)).Msg("match controller disposed")
}

// startRoundLocked starts a phase timer for the match's current round.
func (c *Controller) startRoundLocked() {
	var pt *timer.PhaseTimer
	pt = timer.New(c.clock, c.cfg.Timer, c.delay, func(timer.Snapshot) {
		c.onTimerTick(pt)
	})
	c.timer = pt
	if err := pt.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start phase timer")
		return
	}

	r := models.Round{Index: c.match.CurrentRound, Phase: pt.Phase()}
	m := c.match.WithRound(r)
	c.match = &m

	log.Debug().
		Str("match_id", m.ID.String()).
		Int("round", r.Index).
		Msg("round started")
	c.enqueueLocked(Event{Type: EventPhaseChanged, Match: m, Round: r, Stats: c.recorder.Summary()})
}

// onTimerTick mirrors a scheduled timer transition into the current round.
// The timer is re-read here so stale or duplicate notifications are harmless.
func (c *Controller) onTimerTick(pt *timer.PhaseTimer) {
	c.mu.Lock()
	if c.disposed || c.match == nil || pt != c.timer {
		c.mu.Unlock()
		return
	}

	snap := pt.Snapshot()
	cur, ok := c.match.Current()
	if !ok || cur.Resolved() || snap.Phase == cur.Phase || snap.Phase == models.PhaseResult {
		c.mu.Unlock()
		return
	}

	cur.Phase = snap.Phase
	cur.GoAt = snap.GoAt
	m := c.match.WithRound(cur)
	c.match = &m

	log.Debug().
		Str("match_id", m.ID.String()).
		Int("round", cur.Index).
		Str("phase", cur.Phase.String()).
		Msg("phase changed")
	c.enqueueLocked(Event{Type: EventPhaseChanged, Match: m, Round: cur, Stats: c.recorder.Summary()})
	c.unlockAndFlush()
}

// resolveLocked scores the current round from a foul or reaction and
// either completes the match or schedules the next round.
func (c *Controller) resolveLocked(cur models.Round, side models.Side, at time.Time, out timer.Outcome) {
	cur.Phase = models.PhaseResult
	cur.GoAt = c.timer.Snapshot().GoAt
	clickAt := at
	cur.ClickAt = &clickAt
	cur.ClickedBy = side

	switch out.Kind {
	case timer.OutcomeFoul:
		cur.IsFoul = true
		cur.Winner = side.Opponent()
	case timer.OutcomeReaction:
		ms := out.ResponseTimeMs
		cur.ResponseTimeMs = &ms
		cur.IsPerfect = reaction.IsPerfect(ms, c.cfg.PerfectThreshold.Milliseconds())
		cur.Winner = side
		c.metrics.ObserveReaction(ms)
	}
	c.metrics.RoundResolved(string(out.Kind))

	c.recorder = c.recorder.Record(cur)
	m := c.match.WithRound(cur)
	m.Scores = m.Scores.Award(cur.Winner)
	stats := c.recorder.Summary()

	log.Info().
		Str("match_id", m.ID.String()).
		Int("round", cur.Index).
		Str("outcome", string(out.Kind)).
		Str("winner", string(cur.Winner)).
		Int("p1", m.Scores.P1).
		Int("p2", m.Scores.P2).
		Msg("round resolved")

	if !m.ShouldComplete() {
		c.match = &m
		c.enqueueLocked(Event{Type: EventRoundResolved, Match: m, Round: cur, Stats: stats, Outcome: out})
		c.settle = timer.After(c.clock, c.cfg.SettleDelay, c.onSettle)
		return
	}

	m.Status = models.MatchStatusComplete
	c.match = &m
	rec := c.recordFor(m, stats)
	c.metrics.MatchCompleted()

	log.Info().
		Str("match_id", m.ID.String()).
		Str("winner", rec.Winner).
		Int("rounds", rec.RoundsPlayed).
		Msg("match complete")

	c.enqueueLocked(
		Event{Type: EventRoundResolved, Match: m, Round: cur, Stats: stats, Outcome: out},
		Event{Type: EventMatchCompleted, Match: m, Round: cur, Stats: stats, Record: &rec},
	)
}

// onSettle starts the next round once the settle delay has elapsed.
func (c *Controller) onSettle(h *timer.Handle) {
	c.mu.Lock()
	if c.disposed || h != c.settle || c.match == nil || c.match.Complete() {
		c.mu.Unlock()
		return
	}
	c.settle = nil

	m := *c.match
	m.CurrentRound++
	c.match = &m
	c.startRoundLocked()
	c.unlockAndFlush()
}

func (c *Controller) recordFor(m models.Match, stats reaction.Summary) models.MatchRecord {
	return models.MatchRecord{
		ID:                    m.ID.String(),
		Player1:               m.Player1Name,
		Player2:               m.Player2Name,
		Winner:                m.NameOf(m.Leader()),
		RoundsPlayed:          m.ResolvedRounds(),
		Timestamp:             c.clock.Now().UTC(),
		AverageResponseTimeMs: stats.AverageMs(),
	}
}

func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	c.settle.Cancel()
	c.settle = nil
}

func (c *Controller) enqueueLocked(evts ...Event) {
	c.queue = append(c.queue, evts...)
}

// unlockAndFlush releases mu and delivers queued events in order. A call
// made while another goroutine or an outer frame is already flushing only
// releases the lock; the active flusher delivers its events.
func (c *Controller) unlockAndFlush() {
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for len(c.queue) > 0 && !c.disposed {
		evts := c.queue
		c.queue = nil
		listeners := make([]Listener, 0, len(c.listeners))
		for _, s := range c.listeners {
			listeners = append(listeners, s.fn)
		}
		c.mu.Unlock()

		for _, evt := range evts {
			c.deliver(evt, listeners)
		}

		c.mu.Lock()
	}
	c.flushing = false
	c.mu.Unlock()
}

// deliver persists and mirrors evt, then notifies listeners.
func (c *Controller) deliver(evt Event, listeners []Listener) {
	switch evt.Type {
	case EventPhaseChanged:
		if evt.Round.Phase == models.PhaseWaiting {
			c.emit(channel.EventRoundStart, channel.RoundStartPayload{
				MatchID:   evt.Match.ID.String(),
				Round:     evt.Round.Index,
				Phase:     evt.Round.Phase,
				Player1:   evt.Match.Player1Name,
				Player2:   evt.Match.Player2Name,
				StartedAt: c.clock.Now(),
			})
		}
	case EventRoundResolved:
		var at time.Time
		if evt.Round.ClickAt != nil {
			at = *evt.Round.ClickAt
		}
		c.emit(channel.EventClick, channel.ClickPayload{
			MatchID: evt.Match.ID.String(),
			Round:   evt.Round.Index,
			Side:    evt.Round.ClickedBy,
			Phase:   evt.Outcome.Phase,
			At:      at,
		})
		c.emit(channel.EventRoundResult, channel.RoundResultPayload{
			MatchID:        evt.Match.ID.String(),
			Round:          evt.Round.Index,
			Winner:         evt.Round.Winner,
			ClickedBy:      evt.Round.ClickedBy,
			IsFoul:         evt.Round.IsFoul,
			IsPerfect:      evt.Round.IsPerfect,
			ResponseTimeMs: evt.Round.ResponseTimeMs,
			Scores:         evt.Match.Scores,
		})
	case EventMatchCompleted:
		c.persist(*evt.Record)
		c.emit(channel.EventMatchComplete, channel.MatchCompletePayload{
			MatchID: evt.Match.ID.String(),
			Scores:  evt.Match.Scores,
			Record:  *evt.Record,
		})
	}

	for _, l := range listeners {
		l(evt)
	}
}

func (c *Controller) persist(rec models.MatchRecord) {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := c.history.Append(ctx, rec); err != nil {
		c.metrics.HistoryAppendFailed()
		log.Error().Err(err).Str("record_id", rec.ID).Msg("failed to store match record")
	}
}

func (c *Controller) emit(event string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	if err := c.channel.Emit(ctx, event, payload); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to emit duel event")
	}
}

// MultiWriter appends every record to each writer in order. All writers are
// attempted and their errors joined.
func MultiWriter(writers ...HistoryWriter) HistoryWriter {
	return multiWriter(writers)
}

type multiWriter []HistoryWriter

func (w multiWriter) Append(ctx context.Context, rec models.MatchRecord) error {
	var errs []error
	for _, hw := range w {
		if err := hw.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
