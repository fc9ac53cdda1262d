package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment defaults shared by all commands. Flags
// given on the command line win over these.
type Config struct {
	DB           string        `env:"SEQBROWSE_DB" envDefault:"seqbrowse.db"`
	LogLevel     string        `env:"SEQBROWSE_LOG_LEVEL" envDefault:"info"`
	TickInterval time.Duration `env:"SEQBROWSE_TICK_INTERVAL" envDefault:"20ms"`
	Format       string        `env:"SEQBROWSE_FORMAT" envDefault:"text"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickInterval < 0 {
		return Config{}, fmt.Errorf("parse env: SEQBROWSE_TICK_INTERVAL must be non-negative, got %s", cfg.TickInterval)
	}
	return cfg, nil
}

// parseLogLevel accepts the slog level names (debug, info, warn, error)
// in any case.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
