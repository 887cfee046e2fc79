package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/reactionduel/go/internal/config"
	"github.com/mcdev12/reactionduel/go/internal/history"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "duel",
	Short: "Play and inspect reaction duels",
	Long: `A command-line interface for local reaction duels, the stored match
history and the live event stream of a networked room.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// loadConfig reads .env and the config file, then sets up console logging.
func loadConfig() (config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	// Lifecycle logs would interleave with the duel prompts
	if lvl < zerolog.WarnLevel {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return cfg, nil
}

// openStore opens the configured history backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config) (*history.Store, func(), error) {
	kv, release, err := history.Open(ctx, cfg.History.BackendConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return history.NewStore(kv, cfg.History.Key, metrics.NoOp{}), release, nil
}
