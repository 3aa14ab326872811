// Package matrix routes engine outputs back into engine parameters. Each bank
// is a grid of cells connecting source rows to destination columns; every
// evaluation aggregates the connected cells per destination and produces
// clamped parameter values.
package matrix

import (
	"orcas-heart/engine"
)

const (
	Banks        = 2
	Snapshots    = 4
	Rows         = 8
	MaxCellState = 1
	RandomCells  = 10
)

// Source weights
const (
	NoteWeight = 1
	CVWeight   = 12
	GateWeight = 60
)

const (
	NoteBank = 0 // notes and gates
	ModBank  = 1 // mod CVs and mod gates
)

// Source rows (same layout in both banks)
const (
	RowValue0 = 0 // rows 0-3: note / mod CV 0-3
	RowGate0  = 4 // rows 4-6: gate / mod gate 0-2
	RowReset  = 7 // reset phase
)

// Dest is a destination column
type Dest int

const (
	DestSpeed Dest = iota
	DestLength
	DestAlgoX
	DestAlgoY
	DestShift
	DestSpace
	DestGateLength
	DestScale
	DestOctaveA
	DestOctaveB
	Dests
)

var destNames = [Dests]string{"speed", "length", "algoX", "algoY", "shift", "space", "gate", "scale", "oct A", "oct B"}

func (d Dest) String() string {
	if d < 0 || d >= Dests {
		return "?"
	}
	return destNames[d]
}

// Gate length range (percent of a step)
const (
	MinGateLength = 1
	MaxGateLength = 100
)

// calibration is the per-destination delta = sum*num / (den*MaxCellState*count)
var calibration = [Dests]struct{ num, den int }{
	DestSpeed:      {198, 12},
	DestLength:     {31, 120},
	DestAlgoX:      {127, 120},
	DestAlgoY:      {127, 120},
	DestShift:      {1, 10},
	DestSpace:      {15, 120},
	DestGateLength: {99, 120},
}

// Source is what the matrix reads every tick
type Source interface {
	Note(voice, generation int) uint8
	Gate(voice, generation int) uint8
	ModCV(index int) int
	ModGate(index int) bool
	IsReset() bool
}

// Params are the base values the matrix modulates
type Params struct {
	Config     engine.Config
	GateLength int
}

// Output is the result of one evaluation
type Output struct {
	Params
	SpeedMod     int
	ToggleScale  bool
	ToggleOctave [2]bool

	Sums   [Dests]int
	Counts [Dests]int
}

// Cells is one snapshot of one bank
type Cells [Rows][Dests]uint8

// Matrix holds both banks, their snapshots and the previous toggle sums
type Matrix struct {
	cells    [Banks][Snapshots]Cells
	snapshot [Banks]int
	muted    [Banks]bool
	inverted [Banks]bool

	prev [Dests]int
}

// New creates an empty matrix with both banks live
func New() *Matrix {
	return &Matrix{}
}

// Evaluate aggregates every connected cell per destination and applies the
// deltas to base. A destination with no connections keeps its base value.
func (m *Matrix) Evaluate(src Source, base Params) Output {
	out := Output{Params: base}

	for b := 0; b < Banks; b++ {
		if m.muted[b] {
			continue
		}
		sign := 1
		if m.inverted[b] {
			sign = -1
		}
		cells := &m.cells[b][m.snapshot[b]]
		for r := 0; r < Rows; r++ {
			v := sign * sourceValue(src, b, r)
			for d := Dest(0); d < Dests; d++ {
				state := int(cells[r][d])
				if state == 0 {
					continue
				}
				out.Sums[d] += v * state
				out.Counts[d] += state
			}
		}
	}

	if out.Counts[DestSpeed] > 0 {
		out.SpeedMod = out.delta(DestSpeed)
	}
	c := &out.Config
	if out.Counts[DestLength] > 0 {
		c.Length = engine.ClampLength(int(base.Config.Length) + out.delta(DestLength))
	}
	if out.Counts[DestAlgoX] > 0 {
		c.AlgoX = engine.ClampAlgo(int(base.Config.AlgoX) + out.delta(DestAlgoX))
	}
	if out.Counts[DestAlgoY] > 0 {
		c.AlgoY = engine.ClampAlgo(int(base.Config.AlgoY) + out.delta(DestAlgoY))
	}
	if out.Counts[DestShift] > 0 {
		c.Shift = engine.ClampShift(int(base.Config.Shift) + out.delta(DestShift))
	}
	if out.Counts[DestSpace] > 0 {
		c.Space = engine.ClampSpace(int(base.Config.Space) + out.delta(DestSpace))
	}
	if out.Counts[DestGateLength] > 0 {
		out.GateLength = ClampGateLength(base.GateLength + out.delta(DestGateLength))
	}

	// toggles fire on a rising aggregate only
	out.ToggleScale = rising(out.Sums[DestScale], m.prev[DestScale])
	out.ToggleOctave[0] = rising(out.Sums[DestOctaveA], m.prev[DestOctaveA])
	out.ToggleOctave[1] = rising(out.Sums[DestOctaveB], m.prev[DestOctaveB])
	m.prev = out.Sums

	return out
}

func (o *Output) delta(d Dest) int {
	cal := calibration[d]
	return o.Sums[d] * cal.num / (cal.den * MaxCellState * o.Counts[d])
}

func rising(cur, prev int) bool {
	return cur > prev && cur != 0
}

func sourceValue(src Source, bank, row int) int {
	switch {
	case row < RowGate0:
		if bank == NoteBank {
			return int(src.Note(row, 0)) * NoteWeight
		}
		return src.ModCV(row) * CVWeight
	case row < RowReset:
		i := row - RowGate0
		if bank == NoteBank {
			return int(src.Gate(i, 0)) * GateWeight
		}
		if src.ModGate(i) {
			return GateWeight
		}
		return 0
	default:
		if src.IsReset() {
			return GateWeight
		}
		return 0
	}
}

// ClampGateLength keeps a gate length inside its range
func ClampGateLength(v int) int {
	if v < MinGateLength {
		return MinGateLength
	}
	if v > MaxGateLength {
		return MaxGateLength
	}
	return v
}
