// Package reaction derives per-match reaction metrics from resolved rounds.
package reaction

import "github.com/mcdev12/reactionduel/go/internal/models"

// Summary is the derived state of a match's reactions so far.
type Summary struct {
	ResponseTimesMs []int64 `json:"response_times_ms"`
	BestTimeMs      *int64  `json:"best_time_ms,omitempty"`
	PerfectCount    int     `json:"perfect_count"`
	Combo           int     `json:"combo"`
}

// AverageMs returns the mean response time rounded half-up, or nil when no
// reaction has been recorded.
func (s Summary) AverageMs() *int64 {
	n := int64(len(s.ResponseTimesMs))
	if n == 0 {
		return nil
	}
	var sum int64
	for _, ms := range s.ResponseTimesMs {
		sum += ms
	}
	avg := (2*sum + n) / (2 * n)
	return &avg
}

// Recorder accumulates round outcomes. The zero value is an empty recorder
// and Record never modifies its receiver.
type Recorder struct {
	rounds []models.Round
}

// Record returns a recorder with r appended. Unresolved rounds are ignored.
func (rec Recorder) Record(r models.Round) Recorder {
	if !r.Resolved() {
		return rec
	}
	rounds := make([]models.Round, 0, len(rec.rounds)+1)
	rounds = append(rounds, rec.rounds...)
	rounds = append(rounds, r)
	return Recorder{rounds: rounds}
}

// Len returns the number of recorded rounds.
func (rec Recorder) Len() int {
	return len(rec.rounds)
}

// Summary replays the recorded rounds.
func (rec Recorder) Summary() Summary {
	return Summarize(rec.rounds)
}

// Summarize computes the reaction summary of rounds in order. Unresolved
// rounds are skipped.
func Summarize(rounds []models.Round) Summary {
	s := Summary{ResponseTimesMs: []int64{}}
	for _, r := range rounds {
		if !r.Resolved() {
			continue
		}
		if r.IsFoul || r.ResponseTimeMs == nil {
			s.Combo = 0
			continue
		}

		ms := *r.ResponseTimeMs
		s.ResponseTimesMs = append(s.ResponseTimesMs, ms)
		if s.BestTimeMs == nil || ms < *s.BestTimeMs {
			best := ms
			s.BestTimeMs = &best
		}
		if r.IsPerfect {
			s.PerfectCount++
			s.Combo++
		} else {
			s.Combo = 0
		}
	}
	return s
}

// IsPerfect reports whether a reaction of ms beats threshold. A reaction
// equal to the threshold is not perfect.
func IsPerfect(ms int64, thresholdMs int64) bool {
	return ms < thresholdMs
}
