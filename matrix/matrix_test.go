package matrix

import (
	"math/rand"
	"testing"

	"orcas-heart/engine"
)

type fakeSource struct {
	notes    [engine.NoteCount]uint8
	gates    [engine.NoteCount]uint8
	modCVs   [engine.ModCount]int
	modGates [engine.ModCount]bool
	reset    bool
}

func (f *fakeSource) Note(voice, generation int) uint8 { return f.notes[voice] }
func (f *fakeSource) Gate(voice, generation int) uint8 { return f.gates[voice] }
func (f *fakeSource) ModCV(index int) int              { return f.modCVs[index] }
func (f *fakeSource) ModGate(index int) bool           { return f.modGates[index] }
func (f *fakeSource) IsReset() bool                    { return f.reset }

func baseParams() Params {
	return Params{
		Config:     engine.Config{Length: 8, AlgoX: 10, AlgoY: 20, Shift: 3, Space: 2},
		GateLength: 50,
	}
}

func TestUnconnectedKeepsBase(t *testing.T) {
	m := New()
	src := &fakeSource{notes: [engine.NoteCount]uint8{30, 30, 30, 30}, reset: true}
	base := baseParams()
	for i := 0; i < 3; i++ {
		out := m.Evaluate(src, base)
		if out.Params != base {
			t.Fatalf("params = %+v, want %+v", out.Params, base)
		}
		if out.SpeedMod != 0 || out.ToggleScale || out.ToggleOctave[0] || out.ToggleOctave[1] {
			t.Fatalf("unexpected modulation: %+v", out)
		}
	}
}

func TestCalibration(t *testing.T) {
	m := New()
	m.SetCell(NoteBank, RowGate0, DestAlgoX, 1)
	m.SetCell(NoteBank, RowValue0, DestShift, 1)
	m.SetCell(ModBank, RowValue0, DestSpeed, 1)
	m.SetCell(NoteBank, RowValue0, DestLength, 1)
	m.SetCell(NoteBank, RowValue0+1, DestLength, 1)

	src := &fakeSource{}
	src.gates[0] = 1
	src.notes[0] = 25
	src.notes[1] = 5
	src.modCVs[0] = 5

	out := m.Evaluate(src, baseParams())
	if got := out.Config.AlgoX; got != 10+63 {
		t.Fatalf("algoX = %d, want 73", got)
	}
	if got := out.Config.Shift; got != 3+2 {
		t.Fatalf("shift = %d, want 5", got)
	}
	if got := out.SpeedMod; got != 990 {
		t.Fatalf("speed mod = %d, want 990", got)
	}
	// (25+5)*31 / (120*2) = 3
	if got := out.Config.Length; got != 11 {
		t.Fatalf("length = %d, want 11", got)
	}
	if got := out.Counts[DestLength]; got != 2 {
		t.Fatalf("length count = %d, want 2", got)
	}
	if out.Config.AlgoY != 20 || out.Config.Space != 2 || out.GateLength != 50 {
		t.Fatalf("unconnected destinations moved: %+v", out.Params)
	}
}

func TestLengthClampedAtMaximalSources(t *testing.T) {
	m := New()
	for b := 0; b < Banks; b++ {
		for r := 0; r < Rows; r++ {
			m.SetCell(b, r, DestLength, MaxCellState)
			m.SetCell(b, r, DestSpace, MaxCellState)
			m.SetCell(b, r, DestGateLength, MaxCellState)
		}
	}
	src := &fakeSource{reset: true}
	for i := range src.notes {
		src.notes[i] = 35
		src.gates[i] = 15
	}
	for i := range src.modCVs {
		src.modCVs[i] = 9
		src.modGates[i] = true
	}

	for _, length := range []uint8{1, 16, 32} {
		base := baseParams()
		base.Config.Length = length
		out := m.Evaluate(src, base)
		if got := out.Config.Length; got != engine.MaxLength {
			t.Fatalf("base %d: length = %d, want %d", length, got, engine.MaxLength)
		}
		if got := out.Config.Space; got != engine.MaxSpace {
			t.Fatalf("space = %d, want %d", got, engine.MaxSpace)
		}
		if got := out.GateLength; got != MaxGateLength {
			t.Fatalf("gate length = %d, want %d", got, MaxGateLength)
		}
	}

	m.SetInvert(NoteBank, true)
	m.SetInvert(ModBank, true)
	out := m.Evaluate(src, baseParams())
	if got := out.Config.Length; got != engine.MinLength {
		t.Fatalf("inverted length = %d, want %d", got, engine.MinLength)
	}
	if got := out.GateLength; got != MinGateLength {
		t.Fatalf("inverted gate length = %d, want %d", got, MinGateLength)
	}
}

func TestMuteDropsContributionsAndCounts(t *testing.T) {
	m := New()
	m.SetCell(NoteBank, RowGate0, DestAlgoY, 1)
	src := &fakeSource{}
	src.gates[0] = 1

	m.ToggleMute(NoteBank)
	if !m.Muted(NoteBank) {
		t.Fatal("bank not muted")
	}
	out := m.Evaluate(src, baseParams())
	if out.Counts[DestAlgoY] != 0 || out.Config.AlgoY != 20 {
		t.Fatalf("muted bank still modulates: count %d algoY %d", out.Counts[DestAlgoY], out.Config.AlgoY)
	}

	m.ToggleMute(NoteBank)
	out = m.Evaluate(src, baseParams())
	if out.Config.AlgoY == 20 {
		t.Fatal("unmuted bank does not modulate")
	}
}

func TestToggleFiresOnRisingEdge(t *testing.T) {
	m := New()
	m.SetCell(NoteBank, RowGate0, DestScale, 1)
	m.SetCell(ModBank, RowReset, DestOctaveA, 1)
	src := &fakeSource{}

	steps := []struct {
		gate      uint8
		reset     bool
		wantScale bool
		wantOct   bool
	}{
		{1, true, true, true},
		{1, true, false, false},
		{0, false, false, false},
		{2, false, true, false},
		{1, true, false, true},
		{0, false, false, false},
	}
	for i, s := range steps {
		src.gates[0] = s.gate
		src.reset = s.reset
		out := m.Evaluate(src, baseParams())
		if out.ToggleScale != s.wantScale {
			t.Fatalf("step %d: scale toggle = %v, want %v", i, out.ToggleScale, s.wantScale)
		}
		if out.ToggleOctave[0] != s.wantOct {
			t.Fatalf("step %d: octave toggle = %v, want %v", i, out.ToggleOctave[0], s.wantOct)
		}
		if out.ToggleOctave[1] {
			t.Fatalf("step %d: unconnected octave B toggled", i)
		}
	}
}

func TestToggleCellCycles(t *testing.T) {
	m := New()
	m.ToggleCell(ModBank, 3, DestSpace)
	if got := m.Cell(ModBank, 3, DestSpace); got != 1 {
		t.Fatalf("cell = %d, want 1", got)
	}
	m.ToggleCell(ModBank, 3, DestSpace)
	if got := m.Cell(ModBank, 3, DestSpace); got != 0 {
		t.Fatalf("cell = %d, want 0", got)
	}
	m.ToggleCell(Banks, 0, DestSpace)
	m.ToggleCell(0, Rows, DestSpace)
	m.ToggleCell(0, 0, Dests)
	if n := m.Connected(0) + m.Connected(1); n != 0 {
		t.Fatalf("out of range toggles connected %d cells", n)
	}
}

func TestSnapshots(t *testing.T) {
	m := New()
	m.SetCell(NoteBank, 1, DestLength, 1)
	m.SelectSnapshot(NoteBank, 2)
	if got := m.Cell(NoteBank, 1, DestLength); got != 0 {
		t.Fatalf("snapshot 2 cell = %d, want 0", got)
	}
	m.SelectSnapshot(NoteBank, Snapshots)
	if got := m.Snapshot(NoteBank); got != 2 {
		t.Fatalf("snapshot = %d, want 2", got)
	}
	m.SelectSnapshot(NoteBank, 0)
	if got := m.Cell(NoteBank, 1, DestLength); got != 1 {
		t.Fatalf("snapshot 0 cell = %d, want 1", got)
	}
}

func TestRandomizeAndClear(t *testing.T) {
	m := New()
	m.SetCell(ModBank, 0, DestSpeed, 1)
	m.Randomize(ModBank, rand.New(rand.NewSource(7)))
	n := m.Connected(ModBank)
	if n < 1 || n > RandomCells {
		t.Fatalf("connected = %d, want 1..%d", n, RandomCells)
	}
	if m.Connected(NoteBank) != 0 {
		t.Fatal("randomize touched the other bank")
	}
	m.Clear(ModBank)
	if got := m.Connected(ModBank); got != 0 {
		t.Fatalf("connected after clear = %d", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	m := New()
	m.SetCell(NoteBank, 2, DestAlgoY, 1)
	m.SelectSnapshot(ModBank, 3)
	m.SetCell(ModBank, 5, DestOctaveB, 1)
	m.ToggleMute(ModBank)
	m.SetInvert(NoteBank, true)

	s := m.State()
	s.Cells[NoteBank][1][0][0] = 9

	other := New()
	other.Load(s)
	if other.Cell(NoteBank, 2, DestAlgoY) != 1 || other.Cell(ModBank, 5, DestOctaveB) != 1 {
		t.Fatal("cells not restored")
	}
	if other.Snapshot(ModBank) != 3 || !other.Muted(ModBank) || !other.Inverted(NoteBank) {
		t.Fatalf("flags not restored: %+v", other.State())
	}
	other.SelectSnapshot(NoteBank, 1)
	if got := other.Cell(NoteBank, 0, 0); got != MaxCellState {
		t.Fatalf("loaded cell = %d, want clamp to %d", got, MaxCellState)
	}
}

func TestEvaluateAgainstEngine(t *testing.T) {
	e := engine.New(engine.Config{Length: 8, AlgoX: 12, AlgoY: 12})
	e.UpdateScales([engine.ScaleCount][engine.ScaleLen]bool{engine.ScaleButtons(0, 2, 4, 5, 7, 9, 11)})
	m := New()
	for r := 0; r < Rows; r++ {
		m.SetCell(NoteBank, r, DestLength, 1)
	}
	for i := 0; i < 100; i++ {
		e.Clock()
		out := m.Evaluate(e, Params{Config: e.Config(), GateLength: 50})
		if l := out.Config.Length; l < engine.MinLength || l > engine.MaxLength {
			t.Fatalf("tick %d: length %d out of range", i, l)
		}
		e.UpdateConfig(out.Config)
	}
}
