package sequencer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"orcas-heart/engine"
	"orcas-heart/matrix"
)

func customPreset(c *Controller) {
	c.SetConfig(engine.Config{Length: 13, AlgoX: 40, AlgoY: 90, Shift: 7, Space: 3})
	c.SetGateLength(35)
	c.SetKnob(30000)
	c.SetTranspose(-5)
	c.SetRoot(36)
	c.SetNoteDelay(1, 2)
	c.SetNoteDelay(5, 7)
	c.ToggleVoice(3)
	c.ToggleScaleNote(0, 1)
	c.ToggleScale(true)
	c.ToggleOctave(1)
	c.ToggleMatrixCell(matrix.NoteBank, 2, matrix.DestAlgoX)
	c.SelectSnapshot(matrix.ModBank, 2)
	c.ToggleMatrixCell(matrix.ModBank, 6, matrix.DestOctaveB)
	c.ToggleMatrixMute(matrix.ModBank)
	c.ToggleMatrixInvert(matrix.NoteBank)
}

func TestPresetApplyRoundTrip(t *testing.T) {
	c := newTestController()
	customPreset(c)
	p := c.Preset()

	other := newTestController()
	other.ApplyPreset(p)
	if got := other.Preset(); !reflect.DeepEqual(got, p) {
		t.Fatalf("preset after apply:\n%+v\nwant\n%+v", got, p)
	}
	if got := other.Engine().CurrentScale(); got != 1 {
		t.Fatalf("current scale = %d, want 1", got)
	}
	if got := other.Engine().Config(); got != p.Config {
		t.Fatalf("engine config = %+v, want %+v", got, p.Config)
	}
}

func TestApplyPresetClamps(t *testing.T) {
	c := newTestController()
	c.ApplyPreset(Preset{
		Config:     engine.Config{Length: 0, AlgoX: 200, AlgoY: 128, Shift: 40, Space: 99},
		GateLength: 500,
		Knob:       1 << 20,
		Transpose:  99,
		Root:       300,
		NoteDelay:  [engine.NoteCount]int{-3, 99},
	})
	want := engine.Config{Length: 1, AlgoX: engine.MaxAlgo, AlgoY: engine.MaxAlgo, Shift: engine.MaxShift, Space: engine.MaxSpace}
	if got := c.Config(); got != want {
		t.Fatalf("config = %+v, want %+v", got, want)
	}
	if c.GateLength() != matrix.MaxGateLength || c.Knob() != MaxKnob || c.Transpose() != MaxTranspose || c.Root() != 127 {
		t.Fatalf("gate %d knob %d transpose %d root %d not clamped", c.GateLength(), c.Knob(), c.Transpose(), c.Root())
	}
	if c.NoteDelay(0) != 0 || c.NoteDelay(1) != engine.HistoryCount-1 {
		t.Fatalf("delays = %d %d", c.NoteDelay(0), c.NoteDelay(1))
	}
}

func TestApplyPresetReleasesNotes(t *testing.T) {
	c := newTestController()
	c.sounding[4] = 70
	events := c.ApplyPreset(c.Preset())
	if len(events) != 1 || events[0].Note != 70 || events[0].Voice != 4 {
		t.Fatalf("events = %+v, want note off for voice 4", events)
	}
}

func TestSaveLoadPreset(t *testing.T) {
	dir := t.TempDir()
	c := newTestController()
	customPreset(c)
	p := c.Preset()

	filename, err := SavePreset(dir, "my patch/2", p)
	if err != nil {
		t.Fatalf("SavePreset: %v", err)
	}

	presets, err := ListPresets(dir)
	if err != nil {
		t.Fatalf("ListPresets: %v", err)
	}
	if len(presets) != 1 || presets[0].Filename != filename || presets[0].Name != "my-patch-2" {
		t.Fatalf("presets = %+v", presets)
	}

	got, err := LoadPreset(dir, filename)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("loaded:\n%+v\nwant\n%+v", got, p)
	}
}

func TestListPresetsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"2024-01-01_10-00-00_old.yml",
		"2024-02-01_10-00-00.yml",
		"notes.txt",
		"bad_name.yml",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("knob: 100\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "2024-03-01_10-00-00.yml"), 0755); err != nil {
		t.Fatal(err)
	}

	presets, err := ListPresets(dir)
	if err != nil {
		t.Fatalf("ListPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("presets = %+v, want 2", presets)
	}
	if presets[0].Filename != "2024-02-01_10-00-00.yml" || presets[0].Name != "" {
		t.Fatalf("newest = %+v", presets[0])
	}
	if presets[1].Name != "old" {
		t.Fatalf("oldest name = %q, want old", presets[1].Name)
	}

	p, err := LoadPreset(dir, "")
	if err != nil {
		t.Fatalf("LoadPreset newest: %v", err)
	}
	if p.Knob != 100 {
		t.Fatalf("knob = %d, want 100", p.Knob)
	}
}

func TestLoadPresetErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadPreset(dir, ""); err == nil {
		t.Fatal("empty dir loaded a preset")
	}
	if _, err := LoadPreset(dir, "missing.yml"); err == nil {
		t.Fatal("missing file loaded")
	}
	if err := os.WriteFile(filepath.Join(dir, "2024-01-01_10-00-00.yml"), []byte("config: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPreset(dir, ""); err == nil {
		t.Fatal("broken yaml loaded")
	}

	presets, err := ListPresets(filepath.Join(dir, "nope"))
	if err != nil || len(presets) != 0 {
		t.Fatalf("missing dir: %v, %v", presets, err)
	}
}
