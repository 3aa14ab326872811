package sequencer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"orcas-heart/engine"
	"orcas-heart/matrix"
	"orcas-heart/midi"
)

const (
	presetExt    = ".yml"
	presetLayout = "2006-01-02_15-04-05"
)

// Preset is everything a user sets up, without runtime state
type Preset struct {
	Config       engine.Config                            `yaml:"config"`
	GateLength   int                                      `yaml:"gateLength"`
	Knob         int                                      `yaml:"knob"`
	Transpose    int                                      `yaml:"transpose"`
	Root         int                                      `yaml:"root"`
	NoteDelay    [engine.NoteCount]int                    `yaml:"noteDelay"`
	VoiceOn      [engine.NoteCount]bool                   `yaml:"voiceOn"`
	ScaleButtons [engine.ScaleCount][engine.ScaleLen]bool `yaml:"scaleButtons"`
	CurrentScale int                                      `yaml:"currentScale"`
	Octave       [engine.ScaleCount]bool                  `yaml:"octave"`
	Matrix       matrix.State                             `yaml:"matrix"`
}

// PresetInfo describes a saved preset file
type PresetInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// Preset captures the current setup
func (c *Controller) Preset() Preset {
	return Preset{
		Config:       c.base,
		GateLength:   c.gateLength,
		Knob:         c.knob,
		Transpose:    c.transpose,
		Root:         c.root,
		NoteDelay:    c.noteDelay,
		VoiceOn:      c.voiceOn,
		ScaleButtons: c.scaleButtons,
		CurrentScale: c.engine.CurrentScale(),
		Octave:       c.octave,
		Matrix:       c.matrix.State(),
	}
}

// ApplyPreset loads a setup through the clamping setters. Sounding notes are
// returned as note-offs.
func (c *Controller) ApplyPreset(p Preset) []midi.Event {
	events := c.AllNotesOff()

	c.SetConfig(p.Config)
	c.SetGateLength(p.GateLength)
	c.SetKnob(p.Knob)
	c.SetTranspose(p.Transpose)
	c.SetRoot(p.Root)
	for n := range p.NoteDelay {
		c.SetNoteDelay(n, p.NoteDelay[n])
	}
	c.voiceOn = p.VoiceOn
	c.scaleButtons = p.ScaleButtons
	c.engine.UpdateScales(c.scaleButtons)
	c.engine.SetCurrentScale(p.CurrentScale)
	c.octave = p.Octave
	c.matrix.Load(p.Matrix)
	c.speedMod = 0
	c.last = matrix.Output{}
	return events
}

// SavePreset writes a preset to dir as <timestamp>[_name].yml
func SavePreset(dir, name string, p Preset) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("preset dir: %w", err)
	}

	data, err := yaml.Marshal(&p)
	if err != nil {
		return "", fmt.Errorf("encode preset: %w", err)
	}

	filename := time.Now().Format(presetLayout)
	if safe := sanitizeFilename(name); safe != "" {
		filename += "_" + safe
	}
	filename += presetExt

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("write preset: %w", err)
	}
	return filename, nil
}

// LoadPreset reads a preset file, or the newest one if filename is empty
func LoadPreset(dir, filename string) (Preset, error) {
	if filename == "" {
		newest, err := NewestPreset(dir)
		if err != nil {
			return Preset{}, err
		}
		filename = newest
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("decode preset %s: %w", filename, err)
	}
	return p, nil
}

// NewestPreset returns the filename of the newest preset in dir
func NewestPreset(dir string) (string, error) {
	presets, err := ListPresets(dir)
	if err != nil {
		return "", err
	}
	if len(presets) == 0 {
		return "", fmt.Errorf("no presets in %s", dir)
	}
	return presets[0].Filename, nil
}

// ListPresets returns the presets in dir, newest first
func ListPresets(dir string) ([]PresetInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []PresetInfo{}, nil
		}
		return nil, err
	}

	var presets []PresetInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, presetExt) {
			continue
		}

		// 2024-01-15_14-30-00.yml or 2024-01-15_14-30-00_name.yml
		base := strings.TrimSuffix(name, presetExt)
		if len(base) < len(presetLayout) {
			continue
		}
		ts, err := time.Parse(presetLayout, base[:len(presetLayout)])
		if err != nil {
			continue
		}

		info := PresetInfo{Filename: name, Timestamp: ts}
		if rest := base[len(presetLayout):]; len(rest) > 1 && rest[0] == '_' {
			info.Name = rest[1:]
		}
		presets = append(presets, info)
	}

	sort.SliceStable(presets, func(i, j int) bool {
		if presets[i].Timestamp.Equal(presets[j].Timestamp) {
			return presets[i].Filename > presets[j].Filename
		}
		return presets[i].Timestamp.After(presets[j].Timestamp)
	})
	return presets, nil
}

// DeletePreset removes a preset file
func DeletePreset(dir, filename string) error {
	return os.Remove(filepath.Join(dir, filename))
}

// sanitizeFilename replaces characters that are problematic in filenames
var filenameReplacer = strings.NewReplacer(
	" ", "-", "/", "-", "\\", "-", ":", "-",
	"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
)

func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(strings.TrimSpace(name))
}
