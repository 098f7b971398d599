// Package config loads the JSON runtime configuration nesgo reads at
// startup: which TV region to emulate, where save states and palettes
// live, and audio output parameters.
package config

import (
	"encoding/json"
	"os"

	"nesgo/internal/region"
)

// Config is the top-level runtime configuration document.
type Config struct {
	TVRegion     string `json:"region"` // "ntsc", "pal", or "dendy"
	PalettePath  string `json:"palette_path,omitempty"`
	SaveStateDir string `json:"save_state_dir"`
	Audio        Audio  `json:"audio"`
}

// Audio holds sound output settings.
type Audio struct {
	SampleRate int     `json:"sample_rate"`
	Volume     float64 `json:"volume"`
	Enabled    bool    `json:"enabled"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		TVRegion:     "ntsc",
		SaveStateDir: "./states",
		Audio: Audio{
			SampleRate: 44100,
			Volume:     1.0,
			Enabled:    true,
		},
	}
}

// Load reads a JSON config file, falling back to Default for any field the
// file doesn't set by starting from Default and decoding on top of it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Region resolves the configured region string into a region.Region,
// defaulting to NTSC for an empty or unrecognized value.
func (c Config) Region() region.Region {
	switch c.TVRegion {
	case "pal":
		return region.PAL
	case "dendy":
		return region.Dendy
	default:
		return region.NTSC
	}
}
