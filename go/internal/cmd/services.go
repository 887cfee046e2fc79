package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reactionduel/go/internal/channel"
	"github.com/mcdev12/reactionduel/go/internal/config"
	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/gateway"
	"github.com/mcdev12/reactionduel/go/internal/history"
	"github.com/mcdev12/reactionduel/go/internal/lobby"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/stats"
)

// Services holds everything the HTTP server routes to.
type Services struct {
	Metrics *metrics.Service
	History *history.Store
	Stats   *stats.App
	Gateway *gateway.ConnectionManager
	Lobby   *lobby.Lobby

	closers []func()
}

// Close releases backends in reverse order of setup.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{Metrics: metrics.NewService()}

	kv, closeKV, err := history.Open(ctx, cfg.History.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("open history backend: %w", err)
	}
	s.closers = append(s.closers, closeKV)
	s.History = history.NewStore(kv, cfg.History.Key, s.Metrics)
	s.Stats = stats.NewApp(s.History)

	log.Info().
		Str("backend", cfg.History.Backend).
		Str("key", cfg.History.Key).
		Msg("history store ready")

	var writer match.HistoryWriter = s.History
	lobbyOpts := []lobby.Option{lobby.WithMetrics(s.Metrics)}

	if cfg.NATS.Enabled {
		nc, err := channel.Connect(cfg.NATS.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := nc.Drain(); err != nil {
				log.Error().Err(err).Msg("failed to drain NATS connection")
			}
		})

		publisher, err := channel.NewRecordPublisher(ctx, nc)
		if err != nil {
			s.Close()
			return nil, err
		}
		writer = match.MultiWriter(s.History, publisher)
		lobbyOpts = append(lobbyOpts, lobby.WithRemote(natsRooms(nc)))

		log.Info().Str("nats_url", cfg.NATS.URL).Msg("NATS mirroring enabled")
	}

	s.Gateway = gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), nil)
	lobbyOpts = append(lobbyOpts, lobby.WithHistory(writer), lobby.WithGateway(s.Gateway))

	s.Lobby = lobby.New(clockwork.NewRealClock(), cfg.Timing.MatchConfig(), lobbyOpts...)
	s.Gateway.SetStateProvider(s.Lobby)

	return s, nil
}

func natsRooms(nc *nats.Conn) lobby.RemoteFactory {
	return func(code string) channel.Channel {
		return channel.NewNATS(nc, code)
	}
}
