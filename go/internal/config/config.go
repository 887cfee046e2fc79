// Package config loads duel settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/reactionduel/go/internal/dbconfig"
	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/duel/timer"
	"github.com/mcdev12/reactionduel/go/internal/history"
)

type Config struct {
	Timing  TimingConfig  `yaml:"timing"`
	History HistoryConfig `yaml:"history"`
	NATS    NATSConfig    `yaml:"nats"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// TimingConfig holds round pacing in milliseconds.
type TimingConfig struct {
	WaitingMs          int `yaml:"waiting_ms"`
	ReadyMs            int `yaml:"ready_ms"`
	SetMinDelayMs      int `yaml:"set_min_delay_ms"`
	SetMaxDelayMs      int `yaml:"set_max_delay_ms"`
	SettleMs           int `yaml:"settle_ms"`
	PerfectThresholdMs int `yaml:"perfect_threshold_ms"`
}

type HistoryConfig struct {
	Backend   string `yaml:"backend"` // memory, file, redis or postgres
	Key       string `yaml:"key"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the standard settings.
func Default() Config {
	return Config{
		Timing: TimingConfig{
			WaitingMs:          1000,
			ReadyMs:            1000,
			SetMinDelayMs:      1500,
			SetMaxDelayMs:      5500,
			SettleMs:           1000,
			PerfectThresholdMs: 200,
		},
		History: HistoryConfig{
			Backend:   history.BackendFile,
			Key:       history.DefaultKey,
			Dir:       ".",
			RedisAddr: "localhost:6379",
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.History.Backend = getEnv("HISTORY_BACKEND", c.History.Backend)
	c.History.Key = getEnv("HISTORY_KEY", c.History.Key)
	c.History.Dir = getEnv("HISTORY_DIR", c.History.Dir)
	c.History.RedisAddr = getEnv("REDIS_ADDR", c.History.RedisAddr)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.Timing.SettleMs = getEnvAsInt("DUEL_SETTLE_MS", c.Timing.SettleMs)
	c.Timing.PerfectThresholdMs = getEnvAsInt("DUEL_PERFECT_THRESHOLD_MS", c.Timing.PerfectThresholdMs)
}

// Validate rejects settings the duel cannot run with.
func (c Config) Validate() error {
	t := c.Timing
	for name, v := range map[string]int{
		"waiting_ms":           t.WaitingMs,
		"ready_ms":             t.ReadyMs,
		"set_min_delay_ms":     t.SetMinDelayMs,
		"set_max_delay_ms":     t.SetMaxDelayMs,
		"settle_ms":            t.SettleMs,
		"perfect_threshold_ms": t.PerfectThresholdMs,
	} {
		if v < 0 {
			return fmt.Errorf("timing.%s must not be negative", name)
		}
	}
	if t.SetMaxDelayMs < t.SetMinDelayMs {
		return fmt.Errorf("timing.set_max_delay_ms (%d) is below set_min_delay_ms (%d)", t.SetMaxDelayMs, t.SetMinDelayMs)
	}

	switch c.History.Backend {
	case history.BackendMemory, history.BackendFile, history.BackendRedis, history.BackendPostgres:
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	return nil
}

// MatchConfig converts the timing section for the match controller.
func (t TimingConfig) MatchConfig() match.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return match.Config{
		Timer: timer.Config{
			WaitingDuration: ms(t.WaitingMs),
			ReadyDuration:   ms(t.ReadyMs),
			SetMinDelay:     ms(t.SetMinDelayMs),
			SetMaxDelay:     ms(t.SetMaxDelayMs),
		},
		SettleDelay:      ms(t.SettleMs),
		PerfectThreshold: ms(t.PerfectThresholdMs),
	}
}

// BackendConfig converts the history section. Postgres settings come from
// the DB_* environment.
func (h HistoryConfig) BackendConfig() history.BackendConfig {
	return history.BackendConfig{
		Backend:     h.Backend,
		Dir:         h.Dir,
		RedisAddr:   h.RedisAddr,
		PostgresDSN: dbconfig.NewConfigFromEnv().DSN(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
