package match

import (
	"github.com/mcdev12/reactionduel/go/internal/duel/reaction"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

// EventType identifies an observable controller transition.
type EventType string

const (
	EventPhaseChanged   EventType = "phase_changed"
	EventRoundResolved  EventType = "round_resolved"
	EventMatchCompleted EventType = "match_completed"
)

// Event is delivered to listeners after the controller state has changed.
// Match is the state immediately after the transition.
type Event struct {
	Type  EventType
	Match models.Match
	Round models.Round
	Stats reaction.Summary

	// Outcome is set for EventRoundResolved
	Outcome timer.Outcome
	// Record is set for EventMatchCompleted
	Record *models.MatchRecord
}

// Listener observes controller events. Listeners may call back into the
// controller; such calls are delivered after the current event.
type Listener func(Event)

// State is a point-in-time view of a controller.
type State struct {
	Match models.Match     `json:"match"`
	Phase models.Phase     `json:"phase"`
	Stats reaction.Summary `json:"stats"`
}
