package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cloister/internal/domain"
)

// Preset is a named game setup used by autostart and the create_game RPC.
type Preset struct {
	Name       string              `json:"name"`
	Expansions []domain.Expansion  `json:"expansions"`
	Rules      []domain.CustomRule `json:"custom_rules"`
}

type presetFile struct {
	Presets []Preset `json:"presets"`
}

var (
	presets  map[string]Preset
	loadOnce sync.Once
	loadErr  error
)

// ReadPresets parses a preset file, rejecting unknown expansions.
func ReadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	var f presetFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presets: %w", err)
	}
	out := make(map[string]Preset, len(f.Presets))
	for _, p := range f.Presets {
		for _, e := range p.Expansions {
			if !e.IsImplemented() {
				return nil, fmt.Errorf("preset %q: unknown expansion %q", p.Name, e)
			}
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadPresets loads the global preset table once. Later calls return the
// first result.
func LoadPresets(path string) error {
	loadOnce.Do(func() {
		if path == "" {
			presets = map[string]Preset{}
			return
		}
		presets, loadErr = ReadPresets(path)
	})
	return loadErr
}

// GetPreset returns a preset by name. The zero preset enables only the
// basic game.
func GetPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	if !ok {
		return Preset{Name: name, Expansions: []domain.Expansion{domain.ExpansionBasic}}, false
	}
	return p, true
}
