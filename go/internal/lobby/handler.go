package lobby

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

// Handler exposes the lobby over HTTP.
type Handler struct {
	lobby *Lobby
}

// NewHandler creates a new Handler
func NewHandler(l *Lobby) *Handler {
	return &Handler{lobby: l}
}

type startMatchRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

type clickRequest struct {
	Side models.Side `json:"side"`
}

type clickResponse struct {
	Outcome        timer.OutcomeKind `json:"outcome"`
	Phase          models.Phase      `json:"phase"`
	ResponseTimeMs *int64            `json:"response_time_ms,omitempty"`
}

// Register mounts the room routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms/{code}/match", h.HandleStartMatch)
	mux.HandleFunc("POST /api/rooms/{code}/click", h.HandleClick)
	mux.HandleFunc("GET /api/rooms/{code}", h.HandleState)
	mux.HandleFunc("DELETE /api/rooms/{code}", h.HandleClose)
}

// HandleStartMatch serves POST /api/rooms/{code}/match
func (h *Handler) HandleStartMatch(w http.ResponseWriter, r *http.Request) {
	var req startMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := h.lobby.StartMatch(r.PathValue("code"), req.Player1, req.Player2)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleClick serves POST /api/rooms/{code}/click
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	out, err := h.lobby.Click(r.PathValue("code"), req.Side)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := clickResponse{Outcome: out.Kind, Phase: out.Phase}
	if out.Kind == timer.OutcomeReaction {
		ms := out.ResponseTimeMs
		resp.ResponseTimeMs = &ms
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleState serves GET /api/rooms/{code}
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.lobby.State(r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleClose serves DELETE /api/rooms/{code}
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.lobby.Close(r.PathValue("code")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRoomCode),
		errors.Is(err, models.ErrInvalidPlayerName),
		errors.Is(err, match.ErrInvalidSide):
		status = http.StatusBadRequest
	case errors.Is(err, ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, match.ErrDisposed):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("room request failed")
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
