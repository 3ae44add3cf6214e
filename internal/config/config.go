package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/icco/touchseq/internal/bridge"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// ClockConfig holds the tempo
type ClockConfig struct {
	BPM float64 `json:"bpm"`
}

// SequencerConfig holds the pattern settings
type SequencerConfig struct {
	StepLength int    `json:"stepLength"`
	Channel    int    `json:"channel"` // 1-based MIDI channel
	Seed       uint64 `json:"seed,omitempty"`
	Scale      string `json:"scale"`
}

// EnvelopeConfig holds the audio voice settings. Times are in seconds.
type EnvelopeConfig struct {
	SampleRate  int     `json:"sampleRate"`
	BlockSize   int     `json:"blockSize"`
	Attack      float64 `json:"attack"`
	AttackShape float64 `json:"attackShape"`
	Decay       float64 `json:"decay"`
	Sustain     float64 `json:"sustain"`
	Release     float64 `json:"release"`
	Wave        string  `json:"wave,omitempty"`
	Volume      float64 `json:"volume"`
}

// MatrixConfig holds the touch matrix settings
type MatrixConfig struct {
	DebounceMS int `json:"debounceMs"`
	ScanHz     int `json:"scanHz"`
}

// MIDIConfig selects the MIDI output
type MIDIConfig struct {
	PortName    string `json:"portName,omitempty"`
	VirtualName string `json:"virtualName,omitempty"`
	CaptureFile string `json:"captureFile,omitempty"`
}

// SensorConfig selects the serial sensor board
type SensorConfig struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud"`
}

// Config is the main configuration structure
type Config struct {
	Clock     ClockConfig     `json:"clock"`
	Sequencer SequencerConfig `json:"sequencer"`
	Envelope  EnvelopeConfig  `json:"envelope"`
	Matrix    MatrixConfig    `json:"matrix"`
	MIDI      MIDIConfig      `json:"midi"`
	Sensor    SensorConfig    `json:"sensor"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Clock: ClockConfig{BPM: 120},
		Sequencer: SequencerConfig{
			StepLength: 16,
			Channel:    1,
			Scale:      "chromatic",
		},
		Envelope: EnvelopeConfig{
			SampleRate: 44100,
			BlockSize:  64,
			Attack:     0.1,
			Decay:      0.1,
			Sustain:    0.7,
			Release:    0.1,
			Wave:       "saw",
			Volume:     0.3,
		},
		Matrix: MatrixConfig{ScanHz: 1000},
		MIDI:   MIDIConfig{VirtualName: "touchseq"},
		Sensor: SensorConfig{Baud: 115200},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "touchseq"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or the default path when path is empty.
// A missing file yields the defaults. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Clock.BPM <= 0 || math.IsInf(c.Clock.BPM, 0) || math.IsNaN(c.Clock.BPM):
		return fmt.Errorf("%w: clock.bpm %v must be positive", ErrInvalid, c.Clock.BPM)
	case c.Sequencer.StepLength < 1 || c.Sequencer.StepLength > 16:
		return fmt.Errorf("%w: sequencer.stepLength %d not in [1,16]", ErrInvalid, c.Sequencer.StepLength)
	case c.Sequencer.Channel < 1 || c.Sequencer.Channel > 16:
		return fmt.Errorf("%w: sequencer.channel %d not in [1,16]", ErrInvalid, c.Sequencer.Channel)
	case c.Envelope.SampleRate <= 0 || c.Envelope.BlockSize <= 0:
		return fmt.Errorf("%w: envelope sample rate and block size must be positive", ErrInvalid)
	case c.Envelope.Sustain < 0 || c.Envelope.Sustain > 1:
		return fmt.Errorf("%w: envelope.sustain %v not in [0,1]", ErrInvalid, c.Envelope.Sustain)
	case c.Envelope.Volume < 0 || c.Envelope.Volume > 1:
		return fmt.Errorf("%w: envelope.volume %v not in [0,1]", ErrInvalid, c.Envelope.Volume)
	case c.Matrix.DebounceMS < 0:
		return fmt.Errorf("%w: matrix.debounceMs %d is negative", ErrInvalid, c.Matrix.DebounceMS)
	case c.Matrix.ScanHz <= 0:
		return fmt.Errorf("%w: matrix.scanHz %d must be positive", ErrInvalid, c.Matrix.ScanHz)
	case c.Sensor.Baud <= 0:
		return fmt.Errorf("%w: sensor.baud %d must be positive", ErrInvalid, c.Sensor.Baud)
	}
	if _, err := bridge.NewScaleTable(c.Sequencer.Scale); err != nil {
		return fmt.Errorf("%w: sequencer.scale: %v", ErrInvalid, err)
	}
	return nil
}
