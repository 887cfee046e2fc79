package stats

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Handler exposes App over HTTP.
type Handler struct {
	app *App
}

// NewHandler creates a new Handler
func NewHandler(app *App) *Handler {
	return &Handler{app: app}
}

// Register mounts the stats routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("GET /api/history", h.HandleHistory)
}

// HandleStats serves GET /api/stats?player=NAME
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.app.PlayerStats(r.Context(), player))
}

// HandleHistory serves GET /api/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.app.History(r.Context()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
