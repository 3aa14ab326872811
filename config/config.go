package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// OutputConfig defines the voice MIDI output
type OutputConfig struct {
	PortName string `json:"portName,omitempty"`
	Channels []int  `json:"channels,omitempty"` // 1-based, one per voice
}

// InputConfig defines the clock/gate/knob MIDI input
type InputConfig struct {
	PortName      string `json:"portName,omitempty"`
	Channel       int    `json:"channel,omitempty"` // 0 = any
	ExternalClock bool   `json:"externalClock,omitempty"`
	ClockDivider  int    `json:"clockDivider,omitempty"`
	GateBaseNote  int    `json:"gateBaseNote,omitempty"`
	KnobCC        int    `json:"knobCC,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette    string `json:"palette,omitempty"` // .gpl file, empty for the built-in one
	LastPreset string `json:"lastPreset,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output    OutputConfig `json:"output,omitempty"`
	Input     InputConfig  `json:"input,omitempty"`
	PresetDir string       `json:"presetDir,omitempty"`
	RootNote  int          `json:"rootNote"`
	UI        UIConfig     `json:"ui,omitempty"`
	Debug     bool         `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Channels: []int{1, 2, 3, 4, 5, 6},
		},
		Input: InputConfig{
			ClockDivider: 6,
			GateBaseNote: 36,
			KnobCC:       1,
		},
		PresetDir: "~/.config/orcas-heart/presets",
		RootNote:  48,
	}
}

// Normalize fills missing values from the defaults and clamps the rest
func (c *Config) Normalize() {
	def := DefaultConfig()
	if len(c.Output.Channels) == 0 {
		c.Output.Channels = def.Output.Channels
	}
	for i, ch := range c.Output.Channels {
		c.Output.Channels[i] = clamp(ch, 1, 16)
	}
	c.Input.Channel = clamp(c.Input.Channel, 0, 16)
	if c.Input.ClockDivider < 1 {
		c.Input.ClockDivider = def.Input.ClockDivider
	}
	c.Input.GateBaseNote = clamp(c.Input.GateBaseNote, 0, 124)
	c.Input.KnobCC = clamp(c.Input.KnobCC, 0, 127)
	if c.PresetDir == "" {
		c.PresetDir = def.PresetDir
	}
	c.RootNote = clamp(c.RootNote, 0, 127)
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "orcas-heart"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DebugLogPath returns where the debug log goes
func DebugLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

// PresetPath returns the preset directory with ~ expanded
func (c *Config) PresetPath() (string, error) {
	dir, err := homedir.Expand(c.PresetDir)
	if err != nil {
		return "", fmt.Errorf("preset dir %q: %w", c.PresetDir, err)
	}
	return dir, nil
}

// PalettePath returns the palette file with ~ expanded, or "" for the built-in one
func (c *Config) PalettePath() (string, error) {
	if c.UI.Palette == "" {
		return "", nil
	}
	return homedir.Expand(c.UI.Palette)
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file, or returns defaults if it does not exist
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Fields missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
