// Package game wires the session service: configuration, storage, narrator,
// hub, orchestrator, and HTTP server.
package game

import (
	"flag"
	"fmt"
	"time"

	platformcmd "github.com/emberfall-games/emberfall/internal/platform/cmd"
)

// Config holds the game service settings.
type Config struct {
	Addr         string `env:"EMBERFALL_ADDR" envDefault:":8080"`
	SessionID    string `env:"EMBERFALL_SESSION_ID" envDefault:"default"`
	SnapshotPath string `env:"EMBERFALL_SNAPSHOT_PATH" envDefault:"emberfall.db"`

	NarratorURL   string `env:"EMBERFALL_NARRATOR_URL"`
	NarratorModel string `env:"EMBERFALL_NARRATOR_MODEL" envDefault:"gpt-4.1-mini"`
	NarratorKey   string `env:"EMBERFALL_NARRATOR_KEY"`

	PlayerTurnDuration time.Duration `env:"EMBERFALL_PLAYER_TURN_DURATION" envDefault:"15s"`
	ResponseDuration   time.Duration `env:"EMBERFALL_RESPONSE_DURATION" envDefault:"3s"`
	NarratorTimeout    time.Duration `env:"EMBERFALL_NARRATOR_TIMEOUT" envDefault:"10s"`
	SnapshotTTL        time.Duration `env:"EMBERFALL_SNAPSHOT_TTL" envDefault:"24h"`

	MapWidth  int `env:"EMBERFALL_MAP_WIDTH" envDefault:"20"`
	MapHeight int `env:"EMBERFALL_MAP_HEIGHT" envDefault:"20"`
}

// ParseConfig loads the configuration from the environment and applies flag
// overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "session id")
	fs.StringVar(&cfg.SnapshotPath, "snapshot-path", cfg.SnapshotPath, "snapshot database path (empty disables persistence)")

	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, fmt.Errorf("parse args: %w", err)
	}
	return cfg, nil
}
