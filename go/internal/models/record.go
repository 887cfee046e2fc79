package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPlayerNameLength bounds a display name.
const MaxPlayerNameLength = 20

// ErrInvalidPlayerName is returned when a player name is empty or too long
var ErrInvalidPlayerName = errors.New("invalid player name")

// MatchRecord is the persisted summary of one completed match.
// Field names are part of the stored history format and the published
// record stream.
type MatchRecord struct {
	ID                    string    `json:"id" msgpack:"id"`
	Player1               string    `json:"player1" msgpack:"player1"`
	Player2               string    `json:"player2" msgpack:"player2"`
	Winner                string    `json:"winner" msgpack:"winner"`
	RoundsPlayed          int       `json:"roundsPlayed" msgpack:"roundsPlayed"`
	Timestamp             time.Time `json:"timestamp" msgpack:"timestamp"`
	AverageResponseTimeMs *int64    `json:"averageResponseTimeMs,omitempty" msgpack:"averageResponseTimeMs,omitempty"`
}

// UnmarshalJSON accepts ids stored as either strings or numbers. Older
// histories keyed records by a millisecond timestamp and stored the round
// count and average as rounds and averageTime.
func (r *MatchRecord) UnmarshalJSON(data []byte) error {
	type plain MatchRecord
	aux := struct {
		ID            json.RawMessage `json:"id"`
		RoundsPlayed  *int            `json:"roundsPlayed"`
		LegacyRounds  *int            `json:"rounds"`
		LegacyAverage *float64        `json:"averageTime"`
		*plain
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.RoundsPlayed != nil:
		r.RoundsPlayed = *aux.RoundsPlayed
	case aux.LegacyRounds != nil:
		r.RoundsPlayed = *aux.LegacyRounds
	}
	if r.AverageResponseTimeMs == nil && aux.LegacyAverage != nil {
		avg := int64(math.Floor(*aux.LegacyAverage + 0.5))
		r.AverageResponseTimeMs = &avg
	}

	switch id := bytes.TrimSpace(aux.ID); {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		r.ID = ""
	case id[0] == '"':
		if err := json.Unmarshal(id, &r.ID); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		r.ID = n.String()
	}
	return nil
}

// ValidatePlayerNames trims both names and checks they are non-empty and
// at most MaxPlayerNameLength characters.
func ValidatePlayerNames(player1, player2 string) (string, string, error) {
	p1, err := validatePlayerName(player1)
	if err != nil {
		return "", "", fmt.Errorf("player1: %w", err)
	}
	p2, err := validatePlayerName(player2)
	if err != nil {
		return "", "", fmt.Errorf("player2: %w", err)
	}
	return p1, p2, nil
}

func validatePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidPlayerName)
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidPlayerName, MaxPlayerNameLength)
	}
	return name, nil
}
