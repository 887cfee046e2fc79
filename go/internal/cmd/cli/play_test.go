package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/duel/reaction"
	"github.com/mcdev12/reactionduel/go/internal/history"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

func testMatchConfig() match.Config {
	cfg := match.DefaultConfig()
	cfg.Timer.WaitingDuration = 400 * time.Millisecond
	cfg.Timer.ReadyDuration = 300 * time.Millisecond
	cfg.Delay = func() time.Duration { return 300 * time.Millisecond }
	return cfg
}

func TestParseClick(t *testing.T) {
	tests := []struct {
		line string
		side models.Side
		ok   bool
	}{
		{"a", models.SidePlayer1, true},
		{"  A  ", models.SidePlayer1, true},
		{"l", models.SidePlayer2, true},
		{"lol", models.SidePlayer2, true},
		{"", models.SideNone, false},
		{"x", models.SideNone, false},
	}
	for _, tt := range tests {
		side, ok := parseClick(tt.line)
		assert.Equal(t, tt.ok, ok, "line %q", tt.line)
		assert.Equal(t, tt.side, side, "line %q", tt.line)
	}
}

func TestRunPlay_FullMatch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := history.NewStore(history.NewMemoryKV(), history.DefaultKey, metrics.NoOp{})
	ctrl := match.New(clock, testMatchConfig(), match.WithHistory(store))
	t.Cleanup(ctrl.Dispose)

	events := make(chan match.Event, 64)
	ctrl.Subscribe(func(e match.Event) { events <- e })

	wait := func(accept func(match.Event) bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case e := <-events:
				if accept(e) {
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for controller event")
			}
		}
	}
	phase := func(p models.Phase) func(match.Event) bool {
		return func(e match.Event) bool { return e.Type == match.EventPhaseChanged && e.Round.Phase == p }
	}

	in, feed := io.Pipe()
	var out bytes.Buffer
	result := make(chan error, 1)
	go func() { result <- runPlay(context.Background(), ctrl, in, &out, "Ann", "Bob") }()

	for round := 1; round <= 2; round++ {
		wait(phase(models.PhaseWaiting))
		clock.Advance(400 * time.Millisecond)
		wait(phase(models.PhaseReady))
		clock.Advance(300 * time.Millisecond)
		wait(phase(models.PhaseSet))
		clock.Advance(300 * time.Millisecond)
		wait(phase(models.PhaseGo))
		clock.Advance(150 * time.Millisecond)

		_, err := feed.Write([]byte("a\n"))
		require.NoError(t, err)
		wait(func(e match.Event) bool { return e.Type == match.EventRoundResolved })
		if round == 1 {
			clock.Advance(time.Second)
		}
	}

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runPlay did not return after the match completed")
	}
	_ = feed.Close()

	text := out.String()
	assert.Contains(t, text, "Round 1  (Ann 0 - 0 Bob)  get ready...")
	assert.Contains(t, text, "Ann takes round 1 in 150ms  PERFECT!")
	assert.Contains(t, text, "Ann wins!  Final score Ann 2 - 0 Bob  (average 150ms)")

	records := store.Get(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, "Ann", records[0].Winner)
}

func TestRunPlay_InputClosed(t *testing.T) {
	ctrl := match.New(clockwork.NewFakeClock(), testMatchConfig())
	t.Cleanup(ctrl.Dispose)

	err := runPlay(context.Background(), ctrl, bytes.NewBufferString("x\n"), io.Discard, "Ann", "Bob")
	assert.ErrorIs(t, err, errInputClosed)
}

func TestRunPlay_InvalidNames(t *testing.T) {
	ctrl := match.New(clockwork.NewFakeClock(), testMatchConfig())
	t.Cleanup(ctrl.Dispose)

	err := runPlay(context.Background(), ctrl, bytes.NewBuffer(nil), io.Discard, "", "Bob")
	assert.ErrorIs(t, err, models.ErrInvalidPlayerName)
}

func TestFormatEvent_Foul(t *testing.T) {
	m := models.NewMatch("Ann", "Bob", time.Now())
	m.Scores = models.Scores{P2: 1}
	e := match.Event{
		Type:  match.EventRoundResolved,
		Match: m,
		Round: models.Round{Index: 1, Phase: models.PhaseResult, IsFoul: true, ClickedBy: models.SidePlayer1, Winner: models.SidePlayer2},
	}
	assert.Equal(t, "FOUL by Ann! Bob takes round 1", formatEvent(e))
}

func TestFormatEvent_CompletedWithoutReactions(t *testing.T) {
	m := models.NewMatch("Ann", "Bob", time.Now())
	m.Scores = models.Scores{P2: 2}
	e := match.Event{Type: match.EventMatchCompleted, Match: m, Stats: reaction.Summary{}}
	assert.Equal(t, "Bob wins!  Final score Ann 0 - 2 Bob", formatEvent(e))
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printHistory(&out, nil))
	assert.Equal(t, "No matches played yet.\n", out.String())

	out.Reset()
	avg := int64(180)
	require.NoError(t, printHistory(&out, []models.MatchRecord{
		{Player1: "Ann", Player2: "Bob", Winner: "Ann", RoundsPlayed: 2, Timestamp: time.Now(), AverageResponseTimeMs: &avg},
		{Player1: "Cat", Player2: "Dan", RoundsPlayed: 3, Timestamp: time.Now()},
	}))
	assert.Contains(t, out.String(), "Ann vs Bob")
	assert.Contains(t, out.String(), "180ms")
	assert.Contains(t, out.String(), "draw")
}
