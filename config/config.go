package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go-synth/pitch"
	"go-synth/roll"
	"go-synth/tone"
)

// Environment overrides, applied after the file is read
const (
	EnvTuneFreq     = "GO_SYNTH_TUNE_FREQ"
	EnvSampleRate   = "GO_SYNTH_SAMPLE_RATE"
	EnvAudioEnabled = "GO_SYNTH_AUDIO_ENABLED"
)

// TuningConfig is the reference note and its frequency
type TuningConfig struct {
	Note float64 `json:"note"`
	Freq float64 `json:"freq"`
}

// InputConfig selects the live MIDI input
type InputConfig struct {
	PortName    string `json:"portName,omitempty"` // substring match, empty for any
	AutoConnect bool   `json:"autoConnect"`
}

// RollConfig stores piano roll preferences
type RollConfig struct {
	Rows          int     `json:"rows,omitempty"`
	Cols          int     `json:"cols,omitempty"`
	SecondsPerCol float64 `json:"secondsPerCol,omitempty"`
	Palette       string  `json:"palette,omitempty"` // path to a .gpl file
}

// AudioConfig controls note audition through the speaker
type AudioConfig struct {
	Enabled    bool   `json:"enabled"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Wave       string `json:"wave,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Tune  TuningConfig `json:"tuning"`
	Input InputConfig  `json:"input"`
	Roll  RollConfig   `json:"roll"`
	Audio AudioConfig  `json:"audio"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	v := roll.DefaultView()
	return &Config{
		Tune: TuningConfig{
			Note: pitch.DefaultTuneNote,
			Freq: pitch.DefaultTuneFreq,
		},
		Input: InputConfig{AutoConnect: true},
		Roll: RollConfig{
			Rows:          v.Rows,
			Cols:          v.Cols,
			SecondsPerCol: v.SecondsPerCol,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Wave:       tone.Sine.String(),
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-synth"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Keys missing from the file keep their defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTuneFreq); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tune.Freq = f
		}
	}
	if v := os.Getenv(EnvSampleRate); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Audio.SampleRate = n
		}
	}
	if v := os.Getenv(EnvAudioEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Audio.Enabled = b
		}
	}
}

// Validate checks the tuning and audio settings
func (c *Config) Validate() error {
	if err := c.Tuning().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: sample rate %d", c.Audio.SampleRate)
	}
	if _, err := tone.ParseWave(c.Audio.Wave); c.Audio.Wave != "" && err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Tuning returns the configured reference tuning
func (c *Config) Tuning() pitch.Tuning {
	return pitch.Tuning{Number: c.Tune.Note, Frequency: c.Tune.Freq}
}

// Apply sets ref to the configured tuning
func (c *Config) Apply(ref *pitch.Reference) error {
	return ref.Set(c.Tuning())
}

// Wave returns the audition waveform, sine if unset
func (c *Config) Wave() tone.Wave {
	w, err := tone.ParseWave(c.Audio.Wave)
	if err != nil {
		return tone.Sine
	}
	return w
}

// View returns the initial piano roll view
func (c *Config) View() roll.View {
	v := roll.DefaultView()
	if c.Roll.Rows > 0 {
		v.Rows = c.Roll.Rows
	}
	if c.Roll.Cols > 0 {
		v.Cols = c.Roll.Cols
	}
	if c.Roll.SecondsPerCol > 0 {
		v.SecondsPerCol = c.Roll.SecondsPerCol
	}
	return v
}
