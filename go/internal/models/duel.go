package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the stage of a round's timing sequence.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseWaiting Phase = "waiting"
	PhaseReady   Phase = "ready"
	PhaseSet     Phase = "set"
	PhaseGo      Phase = "go"
	PhaseResult  Phase = "result"
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// Side identifies one of the two players of a match.
type Side string

const (
	SideNone    Side = ""
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case SidePlayer1:
		return SidePlayer2
	case SidePlayer2:
		return SidePlayer1
	default:
		return SideNone
	}
}

// Valid reports whether s names a player.
func (s Side) Valid() bool {
	return s == SidePlayer1 || s == SidePlayer2
}

// MatchStatus defines the status of a match.
type MatchStatus string

const (
	MatchStatusInProgress MatchStatus = "IN_PROGRESS"
	MatchStatusComplete   MatchStatus = "COMPLETE"
)

const (
	// RoundsPerMatch is the number of rounds in a best-of-3 match.
	RoundsPerMatch = 3
	// WinningScore is the number of round wins that ends a match early.
	WinningScore = 2
)

// Round is one reaction round. It is never modified once Phase is PhaseResult.
type Round struct {
	Index          int        `json:"index"`
	Phase          Phase      `json:"phase"`
	GoAt           *time.Time `json:"go_at,omitempty"`
	ClickAt        *time.Time `json:"click_at,omitempty"`
	ResponseTimeMs *int64     `json:"response_time_ms,omitempty"` // nil for fouls and unresolved rounds
	IsFoul         bool       `json:"is_foul"`
	IsPerfect      bool       `json:"is_perfect"`
	ClickedBy      Side       `json:"clicked_by,omitempty"`
	Winner         Side       `json:"winner,omitempty"`
}

// Resolved reports whether the round has reached PhaseResult.
func (r Round) Resolved() bool {
	return r.Phase == PhaseResult
}

// Scores holds round wins per player.
type Scores struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// Of returns the score of the given side.
func (s Scores) Of(side Side) int {
	if side == SidePlayer2 {
		return s.P2
	}
	return s.P1
}

// Award returns a copy of s with one point added for side.
func (s Scores) Award(side Side) Scores {
	switch side {
	case SidePlayer1:
		s.P1++
	case SidePlayer2:
		s.P2++
	}
	return s
}

// Total returns the number of points awarded so far.
func (s Scores) Total() int {
	return s.P1 + s.P2
}

// Match is a best-of-3 duel between two named players.
// A Match is treated as a value: transitions build a new Match rather than editing one in place.
type Match struct {
	ID           uuid.UUID   `json:"id"`
	Player1Name  string      `json:"player1_name"`
	Player2Name  string      `json:"player2_name"`
	Scores       Scores      `json:"scores"`
	CurrentRound int         `json:"current_round"`
	Rounds       []Round     `json:"rounds"`
	Status       MatchStatus `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
}

// NewMatch creates a match positioned at round 1 with no rounds played.
func NewMatch(player1, player2 string, startedAt time.Time) Match {
	return Match{
		ID:           uuid.New(),
		Player1Name:  player1,
		Player2Name:  player2,
		CurrentRound: 1,
		Status:       MatchStatusInProgress,
		StartedAt:    startedAt,
	}
}

// NameOf returns the display name for side.
func (m Match) NameOf(side Side) string {
	switch side {
	case SidePlayer1:
		return m.Player1Name
	case SidePlayer2:
		return m.Player2Name
	default:
		return ""
	}
}

// Complete reports whether the match has finished.
func (m Match) Complete() bool {
	return m.Status == MatchStatusComplete
}

// Current returns the round at CurrentRound, if it has been started.
func (m Match) Current() (Round, bool) {
	if len(m.Rounds) == 0 {
		return Round{}, false
	}
	last := m.Rounds[len(m.Rounds)-1]
	if last.Index != m.CurrentRound {
		return Round{}, false
	}
	return last, true
}

// ResolvedRounds counts rounds that have reached PhaseResult.
func (m Match) ResolvedRounds() int {
	n := 0
	for _, r := range m.Rounds {
		if r.Resolved() {
			n++
		}
	}
	return n
}

// WithRound returns a copy of m whose current round is replaced by r,
// or appended when r starts a new round.
func (m Match) WithRound(r Round) Match {
	rounds := make([]Round, 0, len(m.Rounds)+1)
	rounds = append(rounds, m.Rounds...)
	if n := len(rounds); n > 0 && rounds[n-1].Index == r.Index {
		rounds[n-1] = r
	} else {
		rounds = append(rounds, r)
	}
	m.Rounds = rounds
	return m
}

// ShouldComplete reports whether a match in this state has finished: either
// side holds WinningScore, or the final round has been resolved.
func (m Match) ShouldComplete() bool {
	if m.Scores.P1 >= WinningScore || m.Scores.P2 >= WinningScore {
		return true
	}
	cur, ok := m.Current()
	return m.CurrentRound == RoundsPerMatch && ok && cur.Resolved()
}

// Leader returns the side with the higher score, or SideNone on a tie.
func (m Match) Leader() Side {
	switch {
	case m.Scores.P1 > m.Scores.P2:
		return SidePlayer1
	case m.Scores.P2 > m.Scores.P1:
		return SidePlayer2
	default:
		return SideNone
	}
}
