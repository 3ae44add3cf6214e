package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clock.BPM != 120 || cfg.Sequencer.StepLength != 16 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := Default()
	cfg.Clock.BPM = 98
	cfg.Sequencer.Scale = "dorian"
	cfg.MIDI.PortName = "IAC"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Clock.BPM != 98 || got.Sequencer.Scale != "dorian" || got.MIDI.PortName != "IAC" {
		t.Fatalf("loaded %+v", got)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"clock":{"bpm":140}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clock.BPM != 140 || cfg.Envelope.SampleRate != 44100 || cfg.Sequencer.Channel != 1 {
		t.Fatalf("loaded %+v", cfg)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"syntax", `{"clock":`, false},
		{"bpm", `{"clock":{"bpm":0}}`, true},
		{"length", `{"sequencer":{"stepLength":17,"channel":1,"scale":"major"}}`, true},
		{"channel", `{"sequencer":{"stepLength":16,"channel":0,"scale":"major"}}`, true},
		{"scale", `{"sequencer":{"stepLength":16,"channel":1,"scale":"lydian"}}`, true},
		{"sustain", `{"envelope":{"sampleRate":44100,"blockSize":64,"sustain":2}}`, true},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), tt.name+".json")
		if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: Load succeeded", tt.name)
			continue
		}
		if errors.Is(err, ErrInvalid) != tt.invalid {
			t.Errorf("%s: errors.Is(ErrInvalid) = %v, want %v (%v)", tt.name, !tt.invalid, tt.invalid, err)
		}
	}
}
