package tui

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"orcas-heart/engine"
	"orcas-heart/matrix"
	"orcas-heart/midi"
	"orcas-heart/sequencer"
	"orcas-heart/theme"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	ctrl := sequencer.NewController(engine.DefaultConfig(), rand.New(rand.NewSource(1)))
	mgr := sequencer.NewManager(ctrl)
	return NewModel(mgr, nil, theme.New(theme.DefaultPalette()), t.TempDir())
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestParamKeys(t *testing.T) {
	m := newTestModel(t)

	// length is the first row
	m = press(m, keyRight, keyRight)
	if got := m.Manager.Snapshot().Base.Length; got != 10 {
		t.Fatalf("length = %d, want 10", got)
	}

	m = press(m, keyDown, tea.KeyMsg{Type: tea.KeyShiftRight})
	if got := m.Manager.Snapshot().Base.AlgoX; got != 22 {
		t.Fatalf("algoX = %d, want 22", got)
	}

	// wrap up to the last row (delay6) and push it past its range
	m = press(m, keyUp, keyUp)
	for i := 0; i < 20; i++ {
		m = press(m, keyRight)
	}
	if got := m.Manager.Snapshot().Voices[5].Delay; got != engine.HistoryCount-1 {
		t.Fatalf("delay6 = %d, want %d", got, engine.HistoryCount-1)
	}

	// root sits above the six delay rows
	for i := 0; i < engine.NoteCount; i++ {
		m = press(m, keyUp)
	}
	for i := 0; i < 200; i++ {
		m = press(m, keyRight)
	}
	if got := m.Manager.Snapshot().Root; got != 127 {
		t.Fatalf("root = %d, want 127", got)
	}
}

func TestDelayKeys(t *testing.T) {
	const delay = 3
	m := newTestModel(t)
	m.Manager.Update(func(c *sequencer.Controller) { c.SetGateLength(matrix.MaxGateLength) })

	// delay1 is the row after root
	for i := 0; i < len(params)-engine.NoteCount; i++ {
		m = press(m, keyDown)
	}
	for i := 0; i < delay; i++ {
		m = press(m, keyRight)
	}
	if got := m.Manager.Snapshot().Voices[0].Delay; got != delay {
		t.Fatalf("delay1 = %d, want %d", got, delay)
	}
	if !strings.Contains(m.View(), "delay1") {
		t.Fatal("view missing delay1 row")
	}

	m = press(m, runes("e"), runes("p"))
	defer m.Manager.Stop()

	played := 0
	for i := 0; i < 128; i++ {
		m.Manager.Tick()
		var past engine.Sample
		var pitch uint8
		m.Manager.Update(func(c *sequencer.Controller) {
			past = c.Engine().Sample(0, delay)
			pitch = c.Pitch(past.Note)
		})
		if !past.Changed {
			continue
		}
		want := -1
		if past.On() {
			want = int(pitch)
			played++
		}
		if got := m.Manager.Snapshot().Voices[0].Sounding; got != want {
			t.Fatalf("tick %d: voice 1 sounding %d, want %d from %d generations back", i, got, want, delay)
		}
	}
	if played == 0 {
		t.Fatal("voice 1 never played")
	}
}

func TestScaleAndGateKeys(t *testing.T) {
	m := newTestModel(t)
	before := m.Manager.Snapshot().ScaleButtons[0][1]

	m = press(m, runes("s"))
	if got := m.Manager.Snapshot().ScaleButtons[0][1]; got == before {
		t.Fatal("C# not toggled")
	}

	m = press(m, runes("A"))
	if !m.Manager.Snapshot().Octave[0] {
		t.Fatal("octave A not toggled")
	}
	m = press(m, runes("S"))
	if got := m.Manager.Snapshot().CurrentScale; got != 1 {
		t.Fatalf("scale = %d, want 1", got)
	}

	m = press(m, runes("1"))
	if m.Manager.Snapshot().Voices[0].On {
		t.Fatal("voice 1 still on")
	}
}

func TestMatrixKeys(t *testing.T) {
	m := newTestModel(t)
	m = press(m, keyTab)
	if m.page != pageMatrix {
		t.Fatal("tab did not switch page")
	}

	// source row 1, column 2 (algoX)
	m = press(m, keyDown, keyRight, keyRight, keySpace)
	s := m.Manager.Snapshot()
	if got := s.Matrix.Cells[matrix.NoteBank][0][1][matrix.DestAlgoX]; got != 1 {
		t.Fatalf("cell = %d, want 1", got)
	}

	m = press(m, runes("."), runes("m"), runes("@"))
	s = m.Manager.Snapshot()
	grid := m.Manager.GridView()
	if grid.Bank() != matrix.ModBank {
		t.Fatal("bank not switched")
	}
	if !s.Matrix.Muted[matrix.ModBank] || s.Matrix.Muted[matrix.NoteBank] {
		t.Fatalf("muted = %v, want only the mod bank", s.Matrix.Muted)
	}
	if s.Matrix.Snapshot[matrix.ModBank] != 1 {
		t.Fatalf("snapshot = %d, want 1", s.Matrix.Snapshot[matrix.ModBank])
	}

	m = press(m, runes(","), keyLeft)
	grid = m.Manager.GridView()
	if grid.Page() != 1 || m.cursorCol != 1 {
		t.Fatalf("page %d col %d, want 1 1", grid.Page(), m.cursorCol)
	}
}

func TestPresetKeys(t *testing.T) {
	m := newTestModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !strings.HasPrefix(m.message, "saved ") {
		t.Fatalf("message = %q", m.message)
	}
	m = press(m, keyRight, tea.KeyMsg{Type: tea.KeyCtrlO})
	if got := m.Manager.Snapshot().Base.Length; got != 8 {
		t.Fatalf("length = %d after load, want 8", got)
	}

	m.PresetDir = t.TempDir()
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !strings.HasPrefix(m.message, "load failed") {
		t.Fatalf("message = %q", m.message)
	}
}

func TestPresetTracking(t *testing.T) {
	m := newTestModel(t)
	var reported []string
	m.OnPreset = func(filename string) { reported = append(reported, filename) }

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.message != "no preset to delete" {
		t.Fatalf("message = %q", m.message)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	saved := m.Preset
	if saved == "" || len(reported) != 1 || reported[0] != saved {
		t.Fatalf("preset %q, reported %v", saved, reported)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.Preset != saved || m.message != "loaded "+saved {
		t.Fatalf("preset %q message %q, want %q", m.Preset, m.message, saved)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.Preset != "" || reported[len(reported)-1] != "" {
		t.Fatalf("preset %q, reported %v after delete", m.Preset, reported)
	}
	if presets, _ := sequencer.ListPresets(m.PresetDir); len(presets) != 0 {
		t.Fatalf("presets left: %v", presets)
	}
}

func TestViewAndQuit(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	for _, want := range []string{"orcas-heart", "STOP", "length", "scale A"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	m = press(m, keyTab)
	if !strings.Contains(m.View(), "bank:note") {
		t.Fatalf("matrix view:\n%s", m.View())
	}

	next, cmd := m.Update(runes("q"))
	if cmd == nil || next.(Model).View() != "" {
		t.Fatal("q did not quit")
	}
}

func TestNoteName(t *testing.T) {
	if got := noteName(60); got != "C4" {
		t.Fatalf("noteName(60) = %q, want C4", got)
	}
	if got := noteName(-1); got != "--" {
		t.Fatalf("noteName(-1) = %q", got)
	}
}

type fakeGrid struct {
	pads chan midi.PadEvent
}

func (g *fakeGrid) ID() string                                { return "grid" }
func (g *fakeGrid) Type() midi.ControllerType                 { return midi.ControllerLaunchpad }
func (g *fakeGrid) PadEvents() <-chan midi.PadEvent           { return g.pads }
func (g *fakeGrid) SetLEDRGB(int, int, [3]uint8, uint8) error { return nil }
func (g *fakeGrid) SetLEDBatch([]midi.LEDUpdate) error        { return nil }
func (g *fakeGrid) Close() error                              { return nil }

func TestGridDeviceEvents(t *testing.T) {
	m := newTestModel(t)
	grid := &fakeGrid{pads: make(chan midi.PadEvent, 1)}

	next, _ := m.Update(DeviceEventMsg{Type: midi.DeviceConnected, ID: "grid", Controller: grid})
	m = next.(Model)
	if m.controller == nil {
		t.Fatal("grid not attached")
	}

	// top pad row, first column: note row 0 -> speed
	grid.pads <- midi.PadEvent{Row: 7, Col: 0, Velocity: 127}
	close(grid.pads)
	deadline := time.Now().Add(2 * time.Second)
	for m.Manager.Snapshot().Matrix.Cells[matrix.NoteBank][0][0][matrix.DestSpeed] == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pad press never reached the matrix")
		}
		time.Sleep(5 * time.Millisecond)
	}

	next, _ = m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: "grid"})
	m = next.(Model)
	if m.controller != nil {
		t.Fatal("grid still attached")
	}

	// connect events without a device are ignored
	next, _ = m.Update(DeviceEventMsg{Type: midi.DeviceConnected, ID: "ghost"})
	next, _ = next.(Model).Update(DeviceEventMsg{Type: midi.OutputConnected, ID: "ghost"})
	if got := next.(Model); got.controller != nil || got.output != "" {
		t.Fatal("empty connect event attached a device")
	}
}
