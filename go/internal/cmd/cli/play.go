package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

// errInputClosed is returned when stdin ends before the match does.
var errInputClosed = errors.New("input closed before the match finished")

// Key bindings for the two players.
const (
	player1Key = 'a'
	player2Key = 'l'
)

// parseClick maps an input line to the side that clicked.
func parseClick(line string) (models.Side, bool) {
	line = strings.TrimSpace(strings.ToLower(line))
	if line == "" {
		return models.SideNone, false
	}
	switch line[0] {
	case player1Key:
		return models.SidePlayer1, true
	case player2Key:
		return models.SidePlayer2, true
	default:
		return models.SideNone, false
	}
}

// runPlay starts a match on ctrl and feeds it clicks read from in until the
// match completes.
func runPlay(ctx context.Context, ctrl *match.Controller, in io.Reader, out io.Writer, player1, player2 string) error {
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	done := make(chan match.Event, 1)
	unsubscribe := ctrl.Subscribe(func(e match.Event) {
		if line := formatEvent(e); line != "" {
			printf("%s\n", line)
		}
		if e.Type == match.EventMatchCompleted {
			select {
			case done <- e:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := ctrl.StartMatch(player1, player2); err != nil {
		return err
	}

	inputDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			side, ok := parseClick(scanner.Text())
			if !ok {
				continue
			}
			res, err := ctrl.Click(side)
			if err != nil {
				inputDone <- err
				return
			}
			if res.Kind == timer.OutcomeIgnored {
				printf("(too soon, wait for the round to start)\n")
			}
		}
		if err := scanner.Err(); err != nil {
			inputDone <- err
			return
		}
		inputDone <- errInputClosed
	}()

	select {
	case <-done:
		return nil
	case err := <-inputDone:
		// A completion racing the last click still counts
		select {
		case <-done:
			return nil
		default:
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// formatEvent renders a controller event as one terminal line.
func formatEvent(e match.Event) string {
	m := e.Match
	switch e.Type {
	case match.EventPhaseChanged:
		switch e.Round.Phase {
		case models.PhaseWaiting:
			return fmt.Sprintf("Round %d  (%s %d - %d %s)  get ready...",
				e.Round.Index, m.Player1Name, m.Scores.P1, m.Scores.P2, m.Player2Name)
		case models.PhaseReady:
			return "READY"
		case models.PhaseSet:
			return "SET"
		case models.PhaseGo:
			return "GO!"
		}
		return ""

	case match.EventRoundResolved:
		r := e.Round
		winner := m.NameOf(r.Winner)
		if r.IsFoul {
			return fmt.Sprintf("FOUL by %s! %s takes round %d", m.NameOf(r.ClickedBy), winner, r.Index)
		}
		line := fmt.Sprintf("%s takes round %d", winner, r.Index)
		if r.ResponseTimeMs != nil {
			line = fmt.Sprintf("%s in %dms", line, *r.ResponseTimeMs)
		}
		if r.IsPerfect {
			line += "  PERFECT!"
		}
		if e.Stats.Combo > 1 {
			line = fmt.Sprintf("%s  combo x%d", line, e.Stats.Combo)
		}
		return line

	case match.EventMatchCompleted:
		line := fmt.Sprintf("Final score %s %d - %d %s", m.Player1Name, m.Scores.P1, m.Scores.P2, m.Player2Name)
		if leader := m.Leader(); leader != models.SideNone {
			line = fmt.Sprintf("%s wins!  %s", m.NameOf(leader), line)
		} else {
			line = "Draw.  " + line
		}
		if avg := e.Stats.AverageMs(); avg != nil {
			line = fmt.Sprintf("%s  (average %dms)", line, *avg)
		}
		return line
	}
	return ""
}
