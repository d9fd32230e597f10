package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings configures the runtime module. Values come from the Nakama
// runtime environment map.
type Settings struct {
	ServiceName    string `env:"CLOISTER_SERVICE_NAME"    envDefault:"cloister"`
	DefaultChannel string `env:"CLOISTER_DEFAULT_CHANNEL" envDefault:"lobby"`
	UndoDepth      int    `env:"CLOISTER_UNDO_DEPTH"      envDefault:"32"`
	SnapshotDB     string `env:"CLOISTER_SNAPSHOT_DB"     envDefault:"data/cloister.db"`
	PresetsPath    string `env:"CLOISTER_PRESETS_PATH"`
	IdentitiesPath string `env:"CLOISTER_BOT_IDENTITIES_PATH"`

	AutostartEnabled bool     `env:"CLOISTER_AUTOSTART"`
	AutostartPreset  string   `env:"CLOISTER_AUTOSTART_PRESET"`
	AutostartPlayers []string `env:"CLOISTER_AUTOSTART_PLAYERS" envSeparator:","`

	OTelEnabled  bool   `env:"CLOISTER_OTEL_ENABLED"`
	OTelEndpoint string `env:"CLOISTER_OTEL_ENDPOINT" envDefault:"http://localhost:4318"`
}

// ParseSettings reads Settings from vars, applying defaults for missing keys.
func ParseSettings(vars map[string]string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: vars}); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if s.UndoDepth < 0 {
		return Settings{}, fmt.Errorf("parse settings: undo depth %d is negative", s.UndoDepth)
	}
	players := s.AutostartPlayers[:0]
	for _, p := range s.AutostartPlayers {
		if p = strings.TrimSpace(p); p != "" {
			players = append(players, p)
		}
	}
	s.AutostartPlayers = players
	return s, nil
}
