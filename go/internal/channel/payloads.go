package channel

import (
	"time"

	"github.com/mcdev12/reactionduel/go/internal/models"
)

// Event names shared by every transport
const (
	EventRoundStart    = "roundStart"
	EventClick         = "click"
	EventRoundResult   = "roundResult"
	EventMatchComplete = "matchComplete"
)

// RoundStartPayload is the payload for a roundStart event
type RoundStartPayload struct {
	MatchID   string       `json:"match_id" msgpack:"match_id"`
	Round     int          `json:"round" msgpack:"round"`
	Phase     models.Phase `json:"phase" msgpack:"phase"`
	Player1   string       `json:"player1" msgpack:"player1"`
	Player2   string       `json:"player2" msgpack:"player2"`
	StartedAt time.Time    `json:"started_at" msgpack:"started_at"`
}

// ClickPayload is the payload for a click event. Inbound clicks only need Side.
type ClickPayload struct {
	MatchID string       `json:"match_id,omitempty" msgpack:"match_id"`
	Round   int          `json:"round,omitempty" msgpack:"round"`
	Side    models.Side  `json:"side" msgpack:"side"`
	Phase   models.Phase `json:"phase,omitempty" msgpack:"phase"`
	At      time.Time    `json:"at" msgpack:"at"`
}

// RoundResultPayload is the payload for a roundResult event
type RoundResultPayload struct {
	MatchID        string        `json:"match_id" msgpack:"match_id"`
	Round          int           `json:"round" msgpack:"round"`
	Winner         models.Side   `json:"winner" msgpack:"winner"`
	ClickedBy      models.Side   `json:"clicked_by" msgpack:"clicked_by"`
	IsFoul         bool          `json:"is_foul" msgpack:"is_foul"`
	IsPerfect      bool          `json:"is_perfect" msgpack:"is_perfect"`
	ResponseTimeMs *int64        `json:"response_time_ms,omitempty" msgpack:"response_time_ms"`
	Scores         models.Scores `json:"scores" msgpack:"scores"`
}

// MatchCompletePayload is the payload for a matchComplete event
type MatchCompletePayload struct {
	MatchID string             `json:"match_id" msgpack:"match_id"`
	Scores  models.Scores      `json:"scores" msgpack:"scores"`
	Record  models.MatchRecord `json:"record" msgpack:"record"`
}
