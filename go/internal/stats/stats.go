// Package stats derives per-player statistics from stored match records.
package stats

import "github.com/mcdev12/reactionduel/go/internal/models"

// RecentGamesLimit bounds Summary.RecentGames.
const RecentGamesLimit = 5

// Summary is a player's record over a match history.
type Summary struct {
	Player         string               `json:"player"`
	Wins           int                  `json:"wins"`
	Losses         int                  `json:"losses"`
	TotalGames     int                  `json:"totalGames"`
	WinRatePercent int                  `json:"winRatePercent"`
	FastestTimeMs  *int64               `json:"fastestTimeMs,omitempty"`
	RecentGames    []models.MatchRecord `json:"recentGames"`
}

// Aggregate summarizes records, oldest first, from player's point of view.
// Every record counts toward the totals; a record player did not win is a loss.
func Aggregate(records []models.MatchRecord, player string) Summary {
	s := Summary{
		Player:      player,
		TotalGames:  len(records),
		RecentGames: []models.MatchRecord{},
	}

	for _, rec := range records {
		if rec.Winner == player {
			s.Wins++
		}
		if avg := rec.AverageResponseTimeMs; avg != nil {
			if s.FastestTimeMs == nil || *avg < *s.FastestTimeMs {
				fastest := *avg
				s.FastestTimeMs = &fastest
			}
		}
	}
	s.Losses = s.TotalGames - s.Wins
	s.WinRatePercent = winRate(s.Wins, s.TotalGames)

	for i := len(records) - 1; i >= 0 && len(s.RecentGames) < RecentGamesLimit; i-- {
		s.RecentGames = append(s.RecentGames, records[i])
	}
	return s
}

// winRate is round(100*wins/total) with halves rounded up.
func winRate(wins, total int) int {
	if total == 0 {
		return 0
	}
	return (200*wins + total) / (2 * total)
}
