package stats

import (
	"context"

	"github.com/mcdev12/reactionduel/go/internal/models"
)

// HistoryReader is the read side of the match history store.
type HistoryReader interface {
	Get(ctx context.Context) []models.MatchRecord
}

// App serves statistics from a history store.
type App struct {
	history HistoryReader
}

// NewApp creates a new App
func NewApp(history HistoryReader) *App {
	return &App{history: history}
}

// PlayerStats aggregates the full history for player.
func (a *App) PlayerStats(ctx context.Context, player string) Summary {
	return Aggregate(a.history.Get(ctx), player)
}

// History returns every stored record, newest first.
func (a *App) History(ctx context.Context) []models.MatchRecord {
	records := a.history.Get(ctx)
	out := make([]models.MatchRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out
}
