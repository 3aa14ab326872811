// Package engine is the generative core: polyrhythmic tracks derived from two
// algorithm parameters, quantized per-voice notes and gates, and a short
// per-voice history. It is single-threaded; the owner serialises every call.
package engine

// Engine owns all sequencing state. Callers hold exactly one per module.
type Engine struct {
	config Config

	globalCounter  int
	spaceCounter   int
	isReset        bool
	resetRequested bool

	counter     [TrackCount]int
	divisor     [TrackCount]int
	phase       [TrackCount]int
	trackOn     [TrackCount]bool
	weightOn    [TrackCount]int
	totalWeight int

	shifts [NoteCount]int

	scales  scaleTable
	history history

	modCVs    [ModCount]int
	modGateOn [ModCount]bool
}

// New creates an engine from a config and computes the initial outputs
func New(config Config) *Engine {
	e := &Engine{}
	e.UpdateLength(config.Length)
	e.UpdateAlgoX(config.AlgoX)
	e.UpdateAlgoY(config.AlgoY)
	e.UpdateShift(config.Shift)
	e.UpdateSpace(config.Space)

	e.zeroCounters()
	e.updateTrackParameters()
	e.updateTrackValues()
	e.calculateNotes()
	e.calculateMods()
	return e
}

// Clock advances the engine by one tick
func (e *Engine) Clock() {
	e.tick()
	e.updateTrackParameters()
	e.updateTrackValues()
	e.calculateNotes()
	e.calculateMods()
}

// Reset zeroes all counters. Calling it repeatedly has no further effect.
func (e *Engine) Reset() {
	e.zeroCounters()
	e.resetRequested = true
}

// IsReset reports whether the last tick started from zeroed counters
func (e *Engine) IsReset() bool {
	return e.isReset
}

// CurrentStep returns the global counter
func (e *Engine) CurrentStep() int {
	return e.globalCounter
}

// SpaceCounter returns the 16-step space counter
func (e *Engine) SpaceCounter() int {
	return e.spaceCounter
}

// Parameters

func (e *Engine) Config() Config { return e.config }
func (e *Engine) Length() uint8  { return e.config.Length }
func (e *Engine) AlgoX() uint8   { return e.config.AlgoX }
func (e *Engine) AlgoY() uint8   { return e.config.AlgoY }
func (e *Engine) Shift() uint8   { return e.config.Shift }
func (e *Engine) Space() uint8   { return e.config.Space }

func (e *Engine) UpdateLength(length uint8) {
	e.config.Length = ClampLength(int(length))
}

func (e *Engine) UpdateAlgoX(algoX uint8) {
	e.config.AlgoX = ClampAlgo(int(algoX))
}

func (e *Engine) UpdateAlgoY(algoY uint8) {
	e.config.AlgoY = ClampAlgo(int(algoY))
}

// UpdateShift sets the note shift. Above half an octave each voice is spread
// by its own index.
func (e *Engine) UpdateShift(shift uint8) {
	e.config.Shift = ClampShift(int(shift))
	for i := 0; i < NoteCount; i++ {
		e.shifts[i] = int(e.config.Shift)
		if e.config.Shift > ScaleLen/2 {
			e.shifts[i] += i
		}
	}
}

func (e *Engine) UpdateSpace(space uint8) {
	e.config.Space = ClampSpace(int(space))
}

// UpdateConfig applies every field through its setter
func (e *Engine) UpdateConfig(c Config) {
	e.UpdateLength(c.Length)
	e.UpdateAlgoX(c.AlgoX)
	e.UpdateAlgoY(c.AlgoY)
	e.UpdateShift(c.Shift)
	e.UpdateSpace(c.Space)
}

// Scales

// UpdateScales rebuilds both scales from a button table
func (e *Engine) UpdateScales(buttons [ScaleCount][ScaleLen]bool) {
	e.scales.update(buttons)
}

// SetCurrentScale selects a scale; out of range is ignored
func (e *Engine) SetCurrentScale(scale int) {
	if scale < 0 || scale >= ScaleCount {
		return
	}
	e.scales.current = scale
}

func (e *Engine) CurrentScale() int {
	return e.scales.current
}

// ScaleCount returns the number of degrees in a scale
func (e *Engine) ScaleCount(scale int) int {
	if scale < 0 || scale >= ScaleCount {
		return 0
	}
	return e.scales.count[scale]
}

// Degrees returns a copy of a scale's degree list
func (e *Engine) Degrees(scale int) []uint8 {
	if scale < 0 || scale >= ScaleCount {
		return nil
	}
	out := make([]uint8, e.scales.count[scale])
	copy(out, e.scales.degrees[scale][:])
	return out
}

// Voice output

// Sample returns a voice's output at a history generation (0 = this tick)
func (e *Engine) Sample(voice, generation int) Sample {
	return e.history.at(voice, generation)
}

func (e *Engine) Note(voice, generation int) uint8 {
	return e.history.at(voice, generation).Note
}

func (e *Engine) Gate(voice, generation int) uint8 {
	return e.history.at(voice, generation).Gate
}

func (e *Engine) GateOn(voice, generation int) bool {
	return e.history.at(voice, generation).On()
}

func (e *Engine) GateChanged(voice, generation int) bool {
	return e.history.at(voice, generation).Changed
}

// Mod outputs

func (e *Engine) ModCV(index int) int {
	if index < 0 || index >= ModCount {
		return 0
	}
	return e.modCVs[index]
}

func (e *Engine) ModGate(index int) bool {
	if index < 0 || index >= ModCount {
		return false
	}
	return e.modGateOn[index]
}

// Tracks

func (e *Engine) TrackOn(track int) bool {
	if track < 0 || track >= TrackCount {
		return false
	}
	return e.trackOn[track]
}

func (e *Engine) Divisor(track int) int {
	if track < 0 || track >= TrackCount {
		return 1
	}
	return e.divisor[track]
}

func (e *Engine) Phase(track int) int {
	if track < 0 || track >= TrackCount {
		return 0
	}
	return e.phase[track]
}

func (e *Engine) Counter(track int) int {
	if track < 0 || track >= TrackCount {
		return 0
	}
	return e.counter[track]
}

func (e *Engine) TotalWeight() int {
	return e.totalWeight
}
