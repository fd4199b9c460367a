package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	defaultPollIntervalMs = 1000

	envPlayer       = "NPBRIDGE_PLAYER"
	envPollInterval = "NPBRIDGE_POLL_INTERVAL_MS"
)

// AppConfig holds application configuration
type AppConfig struct {
	logger         *zap.Logger
	player         string
	pollIntervalMs int
}

type fileConfig struct {
	Player         string `koanf:"player"`
	PollIntervalMs int    `koanf:"poll_interval_ms"`
}

// NewAppConfig loads configuration from the config file (if present) with
// environment-variable overrides. The file lives at
// $XDG_CONFIG_HOME/npbridge/config.toml.
func NewAppConfig(logger *zap.Logger) *AppConfig {
	cfg := fileConfig{
		PollIntervalMs: defaultPollIntervalMs,
	}

	path := filepath.Join(xdg.ConfigHome, "npbridge", "config.toml")
	if _, err := os.Stat(path); err == nil {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			logger.Warn("Failed to read config file, using defaults",
				zap.String("path", path),
				zap.Error(err))
		} else if err := k.Unmarshal("", &cfg); err != nil {
			logger.Warn("Failed to parse config file, using defaults",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	// Environment variables take precedence over the file
	if player := os.Getenv(envPlayer); player != "" {
		cfg.Player = player
	}
	if interval := os.Getenv(envPollInterval); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil && ms > 0 {
			cfg.PollIntervalMs = ms
		} else {
			logger.Warn("Ignoring invalid poll interval override",
				zap.String("value", interval))
		}
	}

	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = defaultPollIntervalMs
	}

	logger.Info("Configuration loaded",
		zap.String("player", cfg.Player),
		zap.Int("pollIntervalMs", cfg.PollIntervalMs))

	return &AppConfig{
		logger:         logger,
		player:         cfg.Player,
		pollIntervalMs: cfg.PollIntervalMs,
	}
}

// PlayerName returns the MPRIS bus name (or short suffix) of the player to
// query; empty enables auto-detection
func (c *AppConfig) PlayerName() string {
	return c.player
}

// PollIntervalMs returns the polling period in milliseconds
func (c *AppConfig) PollIntervalMs() int {
	return c.pollIntervalMs
}
