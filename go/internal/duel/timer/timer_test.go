package timer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reactionduel/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedDelay = 2 * time.Second

// newTestTimer returns a timer on a fake clock with a fixed set->go delay and
// a channel receiving every listener notification.
func newTestTimer(t *testing.T) (*PhaseTimer, *clockwork.FakeClock, chan Snapshot) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	events := make(chan Snapshot, 16)
	pt := New(clock, DefaultConfig(), func() time.Duration { return fixedDelay }, func(s Snapshot) {
		events <- s
	})
	return pt, clock, events
}

func waitPhase(t *testing.T, events chan Snapshot, want models.Phase) Snapshot {
	t.Helper()
	select {
	case s := <-events:
		require.Equal(t, want, s.Phase)
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for phase %s", want)
	}
	return Snapshot{}
}

func assertNoTransition(t *testing.T, events chan Snapshot) {
	t.Helper()
	select {
	case s := <-events:
		t.Fatalf("unexpected transition to %s", s.Phase)
	case <-time.After(50 * time.Millisecond):
	}
}

// advanceTo drives a started timer through the countdown up to phase.
func advanceTo(t *testing.T, clock *clockwork.FakeClock, events chan Snapshot, phase models.Phase) Snapshot {
	t.Helper()
	steps := []struct {
		d     time.Duration
		phase models.Phase
	}{
		{time.Second, models.PhaseReady},
		{time.Second, models.PhaseSet},
		{fixedDelay, models.PhaseGo},
	}
	var snap Snapshot
	for _, step := range steps {
		clock.Advance(step.d)
		snap = waitPhase(t, events, step.phase)
		if step.phase == phase {
			return snap
		}
	}
	return snap
}

func TestPhaseTimer_RunsCountdownInOrder(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	start := clock.Now()

	assert.Equal(t, models.PhaseIdle, pt.Phase())
	require.NoError(t, pt.Start())
	assert.Equal(t, models.PhaseWaiting, pt.Phase())

	// Nothing fires before the waiting duration elapses
	clock.Advance(999 * time.Millisecond)
	assertNoTransition(t, events)

	clock.Advance(time.Millisecond)
	waitPhase(t, events, models.PhaseReady)

	clock.Advance(time.Second)
	waitPhase(t, events, models.PhaseSet)

	clock.Advance(fixedDelay)
	snap := waitPhase(t, events, models.PhaseGo)
	require.NotNil(t, snap.GoAt)
	assert.Equal(t, start.Add(2*time.Second+fixedDelay), *snap.GoAt)

	// Go never leaves on its own
	clock.Advance(time.Minute)
	assertNoTransition(t, events)
	assert.Equal(t, models.PhaseGo, pt.Phase())
}

func TestPhaseTimer_StartTwice(t *testing.T) {
	pt, _, _ := newTestTimer(t)
	require.NoError(t, pt.Start())
	assert.ErrorIs(t, pt.Start(), ErrAlreadyStarted)
}

func TestPhaseTimer_ClickResolution(t *testing.T) {
	tests := []struct {
		name     string
		phase    models.Phase
		wantKind OutcomeKind
	}{
		{"idle is ignored", models.PhaseIdle, OutcomeIgnored},
		{"waiting is ignored", models.PhaseWaiting, OutcomeIgnored},
		{"ready is a foul", models.PhaseReady, OutcomeFoul},
		{"set is a foul", models.PhaseSet, OutcomeFoul},
		{"go is a reaction", models.PhaseGo, OutcomeReaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, clock, events := newTestTimer(t)
			if tt.phase != models.PhaseIdle {
				require.NoError(t, pt.Start())
			}
			if tt.phase != models.PhaseIdle && tt.phase != models.PhaseWaiting {
				advanceTo(t, clock, events, tt.phase)
			}

			out := pt.HandleClick(clock.Now())
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.phase, out.Phase)

			if tt.wantKind == OutcomeIgnored {
				assert.Equal(t, tt.phase, pt.Phase())
			} else {
				assert.Equal(t, models.PhaseResult, pt.Phase())
			}
		})
	}
}

func TestPhaseTimer_ReactionTime(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	require.NoError(t, pt.Start())
	snap := advanceTo(t, clock, events, models.PhaseGo)

	out := pt.HandleClick(snap.GoAt.Add(150 * time.Millisecond))
	assert.Equal(t, OutcomeReaction, out.Kind)
	assert.Equal(t, int64(150), out.ResponseTimeMs)

	// A second click after the result is ignored
	again := pt.HandleClick(snap.GoAt.Add(300 * time.Millisecond))
	assert.Equal(t, OutcomeIgnored, again.Kind)
	assert.Equal(t, models.PhaseResult, again.Phase)
}

func TestPhaseTimer_FoulRevokesPendingGo(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	require.NoError(t, pt.Start())
	advanceTo(t, clock, events, models.PhaseSet)

	out := pt.HandleClick(clock.Now())
	require.Equal(t, OutcomeFoul, out.Kind)

	clock.Advance(time.Minute)
	assertNoTransition(t, events)
	assert.Equal(t, models.PhaseResult, pt.Phase())
}

func TestPhaseTimer_CancelBeforeGoNeverFires(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	require.NoError(t, pt.Start())
	advanceTo(t, clock, events, models.PhaseSet)

	pt.Cancel()
	clock.Advance(time.Minute)
	assertNoTransition(t, events)
	assert.Equal(t, models.PhaseSet, pt.Phase())

	// A cancelled timer no longer accepts clicks
	assert.Equal(t, OutcomeIgnored, pt.HandleClick(clock.Now()).Kind)
}

func TestPhaseTimer_CancelledTimerDoesNotDisturbReplacement(t *testing.T) {
	clock := clockwork.NewFakeClock()
	oldEvents := make(chan Snapshot, 16)
	newEvents := make(chan Snapshot, 16)
	delay := func() time.Duration { return fixedDelay }

	old := New(clock, DefaultConfig(), delay, func(s Snapshot) { oldEvents <- s })
	require.NoError(t, old.Start())
	clock.Advance(time.Second)
	waitPhase(t, oldEvents, models.PhaseReady)

	old.Cancel()
	replacement := New(clock, DefaultConfig(), delay, func(s Snapshot) { newEvents <- s })
	require.NoError(t, replacement.Start())

	clock.Advance(time.Second)
	waitPhase(t, newEvents, models.PhaseReady)
	assertNoTransition(t, oldEvents)
}

func TestRandomDelay_StaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	delay := RandomDelay(cfg, rand.New(rand.NewSource(42)))

	seen := make(map[time.Duration]bool)
	for i := 0; i < 1000; i++ {
		d := delay()
		require.GreaterOrEqual(t, d, cfg.SetMinDelay)
		require.Less(t, d, cfg.SetMaxDelay)
		seen[d] = true
	}
	// Draws are not constant
	assert.Greater(t, len(seen), 100)
}

func TestRandomDelay_EmptyRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetMaxDelay = cfg.SetMinDelay
	assert.Equal(t, cfg.SetMinDelay, RandomDelay(cfg, nil)())
}

func TestHandle_CancelPreventsFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan struct{}, 1)

	h := After(clock, time.Second, func(*Handle) { fired <- struct{}{} })
	h.Cancel()
	h.Cancel()
	assert.True(t, h.Cancelled())

	clock.Advance(time.Hour)
	select {
	case <-fired:
		t.Fatal("cancelled handle fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandle_Fires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan *Handle, 1)

	h := After(clock, time.Second, func(got *Handle) { fired <- got })
	clock.Advance(time.Second)

	select {
	case got := <-fired:
		assert.Same(t, h, got)
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not fire")
	}
}

func TestPhaseTimer_ClickStampedBeforeGoIsFoul(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	require.NoError(t, pt.Start())
	snap := advanceTo(t, clock, events, models.PhaseGo)

	out := pt.HandleClick(snap.GoAt.Add(-50 * time.Millisecond))
	assert.Equal(t, OutcomeFoul, out.Kind)
	assert.Equal(t, models.PhaseSet, out.Phase)
	assert.Zero(t, out.ResponseTimeMs)
	assert.Equal(t, models.PhaseResult, pt.Phase())
}

func TestPhaseTimer_ClickAtGoInstantIsReaction(t *testing.T) {
	pt, clock, events := newTestTimer(t)
	require.NoError(t, pt.Start())
	snap := advanceTo(t, clock, events, models.PhaseGo)

	out := pt.HandleClick(*snap.GoAt)
	assert.Equal(t, OutcomeReaction, out.Kind)
	assert.Equal(t, int64(0), out.ResponseTimeMs)
}
