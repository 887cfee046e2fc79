package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/reactionduel/go/internal/config"
	"github.com/mcdev12/reactionduel/go/internal/history"
)

func TestServer_Routes(t *testing.T) {
	cfg := config.Default()
	cfg.History.Backend = history.BackendMemory

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	services, err := setupServices(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(services.Close)
	t.Cleanup(func() { _ = services.Lobby.Shutdown() })
	go services.Gateway.Start(ctx)

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	resp, err := http.Post(srv.URL+"/api/rooms/R1/match", "application/json",
		strings.NewReader(`{"player1":"Ann","player2":"Bob"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	status, body = get("/api/rooms/R1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"player1_name":"Ann"`)

	status, body = get("/api/stats?player=Ann")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"totalGames":0`)

	status, body = get("/api/history")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)

	status, body = get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "duel_matches_started_total 1")

	status, _ = get("/ws/stats")
	assert.Equal(t, http.StatusOK, status)
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setupLogging("DEBUG")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogging("chatty")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	setupLogging("")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
