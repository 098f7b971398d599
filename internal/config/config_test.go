package config

import (
	"path/filepath"
	"testing"

	"nesgo/internal/region"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region() != region.NTSC {
		t.Fatalf("region = %v, want NTSC", cfg.Region())
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("sample rate = %d, want 44100", cfg.Audio.SampleRate)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.TVRegion = "pal"
	cfg.Audio.Volume = 0.5

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Region() != region.PAL {
		t.Fatalf("region = %v, want PAL", got.Region())
	}
	if got.Audio.Volume != 0.5 {
		t.Fatalf("volume = %v, want 0.5", got.Audio.Volume)
	}
}
