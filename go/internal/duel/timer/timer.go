package timer

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mcdev12/reactionduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyStarted is returned by Start when the timer has left PhaseIdle
var ErrAlreadyStarted = errors.New("phase timer already started")

// Config holds the durations of the timed phases of a round.
type Config struct {
	WaitingDuration time.Duration // waiting -> ready
	ReadyDuration   time.Duration // ready -> set
	SetMinDelay     time.Duration // set -> go, inclusive lower bound
	SetMaxDelay     time.Duration // set -> go, exclusive upper bound
}

// DefaultConfig returns the standard countdown timings
func DefaultConfig() Config {
	return Config{
		WaitingDuration: 1000 * time.Millisecond,
		ReadyDuration:   1000 * time.Millisecond,
		SetMinDelay:     1500 * time.Millisecond,
		SetMaxDelay:     5500 * time.Millisecond,
	}
}

// DelayFunc returns how long the set phase lasts before go.
type DelayFunc func() time.Duration

// RandomDelay draws uniformly from [cfg.SetMinDelay, cfg.SetMaxDelay) using rng.
// A nil rng gets its own time-seeded source. The returned func is safe for concurrent use.
func RandomDelay(cfg Config, rng *rand.Rand) DelayFunc {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var mu sync.Mutex
	span := int64(cfg.SetMaxDelay - cfg.SetMinDelay)
	return func() time.Duration {
		if span <= 0 {
			return cfg.SetMinDelay
		}
		mu.Lock()
		defer mu.Unlock()
		return cfg.SetMinDelay + time.Duration(rng.Int63n(span))
	}
}

// OutcomeKind classifies the effect of a click.
type OutcomeKind string

const (
	OutcomeIgnored  OutcomeKind = "ignored"
	OutcomeFoul     OutcomeKind = "foul"
	OutcomeReaction OutcomeKind = "reaction"
)

// Outcome is the result of resolving a click against the current phase.
type Outcome struct {
	Kind           OutcomeKind
	Phase          models.Phase // phase at the instant of the click
	ResponseTimeMs int64        // set only for OutcomeReaction
}

// Snapshot is a point-in-time view of a timer.
type Snapshot struct {
	Phase models.Phase
	GoAt  *time.Time
}

// Listener is notified after each scheduled transition. It is never called
// from Start or HandleClick, and never while the timer's lock is held.
type Listener func(Snapshot)

// PhaseTimer drives one round: idle -> waiting -> ready -> set -> go, with
// result reached only through HandleClick. At most one transition is
// pending at any time and Cancel revokes it.
type PhaseTimer struct {
	clock    Clock
	cfg      Config
	delay    DelayFunc
	listener Listener

	mu        sync.Mutex
	phase     models.Phase
	goAt      *time.Time
	pending   *Handle
	cancelled bool
}

// New creates an idle PhaseTimer. A nil delay uses RandomDelay(cfg, nil).
func New(clock Clock, cfg Config, delay DelayFunc, listener Listener) *PhaseTimer {
	if delay == nil {
		delay = RandomDelay(cfg, nil)
	}
	return &PhaseTimer{
		clock:    clock,
		cfg:      cfg,
		delay:    delay,
		listener: listener,
		phase:    models.PhaseIdle,
	}
}

// Start moves the timer to waiting and schedules the countdown.
func (t *PhaseTimer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != models.PhaseIdle || t.cancelled {
		return ErrAlreadyStarted
	}
	t.phase = models.PhaseWaiting
	t.scheduleLocked(t.cfg.WaitingDuration, models.PhaseReady)
	return nil
}

// Cancel revokes any pending transition. The timer ignores every later click.
func (t *PhaseTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelled = true
	t.pending.Cancel()
	t.pending = nil
}

// Phase returns the current phase.
func (t *PhaseTimer) Phase() models.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Snapshot returns the current phase and go timestamp.
func (t *PhaseTimer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// HandleClick resolves a click made at now against the phase current at
// this instant. Fouls and reactions move the timer to result.
func (t *PhaseTimer) HandleClick(now time.Time) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Outcome{Kind: OutcomeIgnored, Phase: t.phase}
	if t.cancelled {
		return out
	}

	switch t.phase {
	case models.PhaseReady, models.PhaseSet:
		out.Kind = OutcomeFoul
	case models.PhaseGo:
		// A click stamped before go was made during set
		if now.Before(*t.goAt) {
			out.Kind = OutcomeFoul
			out.Phase = models.PhaseSet
			break
		}
		out.Kind = OutcomeReaction
		out.ResponseTimeMs = now.Sub(*t.goAt).Milliseconds()
	default:
		return out
	}

	t.pending.Cancel()
	t.pending = nil
	t.phase = models.PhaseResult
	return out
}

func (t *PhaseTimer) scheduleLocked(d time.Duration, next models.Phase) {
	t.pending.Cancel()
	t.pending = After(t.clock, d, func(h *Handle) {
		t.advance(h, next)
	})
	log.Debug().
		Str("next_phase", next.String()).
		Dur("delay", d).
		Msg("scheduled phase transition")
}

// advance applies a fired transition if h is still the pending handle.
func (t *PhaseTimer) advance(h *Handle, next models.Phase) {
	t.mu.Lock()
	if t.cancelled || h != t.pending {
		t.mu.Unlock()
		log.Debug().Str("next_phase", next.String()).Msg("dropped stale phase transition")
		return
	}
	t.pending = nil
	t.phase = next

	switch next {
	case models.PhaseReady:
		t.scheduleLocked(t.cfg.ReadyDuration, models.PhaseSet)
	case models.PhaseSet:
		t.scheduleLocked(t.delay(), models.PhaseGo)
	case models.PhaseGo:
		now := t.clock.Now()
		t.goAt = &now
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.listener != nil {
		t.listener(snap)
	}
}

func (t *PhaseTimer) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: t.phase}
	if t.goAt != nil {
		at := *t.goAt
		snap.GoAt = &at
	}
	return snap
}
