package sequencer

import (
	"math/rand"
	"time"

	"orcas-heart/engine"
	"orcas-heart/matrix"
	"orcas-heart/midi"
)

// Speed and pitch ranges
const (
	MaxKnob      = 65535
	DefaultKnob  = 8192
	MinSpeed     = 20 // steps per minute
	MaxSpeed     = 2000
	MinTranspose = -24
	MaxTranspose = 24
	DefaultRoot  = 48
	DefaultGate  = 50
)

// Gate inputs
const (
	GateReset = iota
	GateScale
	GateOctaveA
	GateOctaveB
)

// Controller ties one engine to one matrix and turns every tick into voice
// events. It is not safe for concurrent use; the Manager serialises it.
type Controller struct {
	engine *engine.Engine
	matrix *matrix.Matrix
	rng    matrix.Intner

	base         engine.Config // user values, the matrix modulates around these
	gateLength   int
	effGate      int
	knob         int
	speedMod     int
	transpose    int
	root         int
	octave       [engine.ScaleCount]bool
	scaleButtons [engine.ScaleCount][engine.ScaleLen]bool

	noteDelay [engine.NoteCount]int
	voiceOn   [engine.NoteCount]bool
	sounding  [engine.NoteCount]int // pitch, -1 when silent
	noteSeq   [engine.NoteCount]uint64

	last matrix.Output
}

// NewController creates a controller with major and minor pentatonic scales
// loaded. A nil rng seeds one from the clock.
func NewController(cfg engine.Config, rng matrix.Intner) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Controller{
		engine:     engine.New(cfg),
		matrix:     matrix.New(),
		rng:        rng,
		gateLength: DefaultGate,
		effGate:    DefaultGate,
		knob:       DefaultKnob,
		root:       DefaultRoot,
	}
	c.base = c.engine.Config()
	c.scaleButtons[0] = engine.ScaleButtons(0, 2, 4, 5, 7, 9, 11)
	c.scaleButtons[1] = engine.ScaleButtons(0, 3, 5, 7, 10)
	c.engine.UpdateScales(c.scaleButtons)
	for n := range c.voiceOn {
		c.voiceOn[n] = true
		c.sounding[n] = -1
	}
	return c
}

// Engine exposes the engine for read-only use
func (c *Controller) Engine() *engine.Engine { return c.engine }

// Matrix exposes the matrix for read-only use
func (c *Controller) Matrix() *matrix.Matrix { return c.matrix }

// Step runs one clock tick: advance the engine, plan voice output from the
// fresh history, then feed the outputs back through the matrix.
func (c *Controller) Step() []midi.Event {
	c.engine.Clock()
	events := c.planVoices()
	c.evaluate()
	return events
}

func (c *Controller) planVoices() []midi.Event {
	var events []midi.Event
	gateTime := c.GateTime()
	velocity := c.Velocity()

	for n := 0; n < engine.NoteCount; n++ {
		s := c.engine.Sample(n, engine.Generation(c.noteDelay[n]))
		if !s.Changed {
			continue
		}
		if c.sounding[n] >= 0 {
			events = append(events, midi.Event{Type: midi.NoteOff, Voice: n, Note: uint8(c.sounding[n])})
			c.sounding[n] = -1
		}
		if !s.On() || !c.voiceOn[n] {
			continue
		}
		pitch := c.Pitch(s.Note)
		c.noteSeq[n]++
		events = append(events, midi.Event{
			Type:     midi.NoteOn,
			Voice:    n,
			Note:     pitch,
			Velocity: velocity,
			GateTime: gateTime,
			Seq:      c.noteSeq[n],
		})
		c.sounding[n] = int(pitch)
	}
	return events
}

// evaluate runs the matrix against the current engine output and applies it
func (c *Controller) evaluate() {
	out := c.matrix.Evaluate(c.engine, matrix.Params{Config: c.base, GateLength: c.gateLength})
	c.last = out
	c.speedMod = out.SpeedMod
	c.effGate = out.GateLength
	c.engine.UpdateConfig(out.Config)

	if out.ToggleScale {
		c.ToggleScale(false)
	}
	for i, fire := range out.ToggleOctave {
		if fire {
			c.ToggleOctave(i)
		}
	}
}

// Release ends a timed note if the voice is still sounding the NoteOn
// numbered seq. A retrigger of the same pitch gets a new number.
func (c *Controller) Release(voice int, seq uint64) (midi.Event, bool) {
	if voice < 0 || voice >= engine.NoteCount || c.sounding[voice] < 0 || c.noteSeq[voice] != seq {
		return midi.Event{}, false
	}
	pitch := uint8(c.sounding[voice])
	c.sounding[voice] = -1
	return midi.Event{Type: midi.NoteOff, Voice: voice, Note: pitch}, true
}

// AllNotesOff silences every sounding voice
func (c *Controller) AllNotesOff() []midi.Event {
	var events []midi.Event
	for n, p := range c.sounding {
		if p < 0 {
			continue
		}
		events = append(events, midi.Event{Type: midi.NoteOff, Voice: n, Note: uint8(p)})
		c.sounding[n] = -1
	}
	return events
}

// Sounding returns the pitch a voice is holding, or -1
func (c *Controller) Sounding(voice int) int {
	if voice < 0 || voice >= engine.NoteCount {
		return -1
	}
	return c.sounding[voice]
}

// Pitch maps a scale note to a MIDI note
func (c *Controller) Pitch(note uint8) uint8 {
	p := int(note) + c.root + c.transpose
	if c.octave[c.engine.CurrentScale()] {
		p += 12
	}
	return uint8(clamp(p, 0, 127))
}

// Velocity follows the first mod CV
func (c *Controller) Velocity() uint8 {
	return uint8(clamp(64+6*c.engine.ModCV(0), 1, 127))
}

// Speed returns steps per minute from the knob and the matrix
func (c *Controller) Speed() int {
	sp := (c.knob*1980)>>16 + MinSpeed + c.speedMod
	return clamp(sp, MinSpeed, MaxSpeed)
}

// Interval is the time between internal clock ticks
func (c *Controller) Interval() time.Duration {
	return time.Duration(60000/c.Speed()) * time.Millisecond
}

// GateTime is how long a note sounds; 0 holds it until the gate changes
func (c *Controller) GateTime() time.Duration {
	if c.effGate >= matrix.MaxGateLength {
		return 0
	}
	return c.Interval() * time.Duration(c.effGate) / 100
}

// Parameters

func (c *Controller) Config() engine.Config { return c.base }

func (c *Controller) SetLength(v int) {
	c.base.Length = engine.ClampLength(v)
	c.engine.UpdateLength(c.base.Length)
}

func (c *Controller) SetAlgoX(v int) {
	c.base.AlgoX = engine.ClampAlgo(v)
	c.engine.UpdateAlgoX(c.base.AlgoX)
}

func (c *Controller) SetAlgoY(v int) {
	c.base.AlgoY = engine.ClampAlgo(v)
	c.engine.UpdateAlgoY(c.base.AlgoY)
}

func (c *Controller) SetShift(v int) {
	c.base.Shift = engine.ClampShift(v)
	c.engine.UpdateShift(c.base.Shift)
}

func (c *Controller) SetSpace(v int) {
	c.base.Space = engine.ClampSpace(v)
	c.engine.UpdateSpace(c.base.Space)
}

// SetConfig replaces every base parameter
func (c *Controller) SetConfig(cfg engine.Config) {
	c.base = cfg.Clamped()
	c.engine.UpdateConfig(c.base)
}

func (c *Controller) GateLength() int { return c.gateLength }

func (c *Controller) SetGateLength(v int) {
	c.gateLength = matrix.ClampGateLength(v)
	c.effGate = c.gateLength
}

func (c *Controller) Knob() int { return c.knob }

func (c *Controller) SetKnob(v int) {
	c.knob = clamp(v, 0, MaxKnob)
}

func (c *Controller) Transpose() int { return c.transpose }

func (c *Controller) SetTranspose(v int) {
	c.transpose = clamp(v, MinTranspose, MaxTranspose)
}

func (c *Controller) Root() int { return c.root }

func (c *Controller) SetRoot(v int) {
	c.root = clamp(v, 0, 127)
}

func (c *Controller) NoteDelay(voice int) int {
	if voice < 0 || voice >= engine.NoteCount {
		return 0
	}
	return c.noteDelay[voice]
}

// SetNoteDelay makes a voice play a past generation of its history
func (c *Controller) SetNoteDelay(voice, delay int) {
	if voice < 0 || voice >= engine.NoteCount {
		return
	}
	c.noteDelay[voice] = engine.Generation(delay)
}

func (c *Controller) VoiceOn(voice int) bool {
	return voice >= 0 && voice < engine.NoteCount && c.voiceOn[voice]
}

// ToggleVoice mutes or unmutes a voice; muting releases its note
func (c *Controller) ToggleVoice(voice int) []midi.Event {
	if voice < 0 || voice >= engine.NoteCount {
		return nil
	}
	c.voiceOn[voice] = !c.voiceOn[voice]
	if c.voiceOn[voice] || c.sounding[voice] < 0 {
		return nil
	}
	evt := midi.Event{Type: midi.NoteOff, Voice: voice, Note: uint8(c.sounding[voice])}
	c.sounding[voice] = -1
	return []midi.Event{evt}
}

// Scales

// ToggleScale switches to the next scale. Automatic toggles skip an empty scale.
func (c *Controller) ToggleScale(manual bool) {
	next := (c.engine.CurrentScale() + 1) % engine.ScaleCount
	if c.engine.ScaleCount(next) == 0 && !manual {
		return
	}
	c.engine.SetCurrentScale(next)
}

// ToggleOctave flips the octave-up flag of a scale
func (c *Controller) ToggleOctave(scale int) {
	if scale < 0 || scale >= engine.ScaleCount {
		return
	}
	c.octave[scale] = !c.octave[scale]
}

func (c *Controller) Octave(scale int) bool {
	return scale >= 0 && scale < engine.ScaleCount && c.octave[scale]
}

// ToggleScaleNote adds or removes a pitch class from a scale
func (c *Controller) ToggleScaleNote(scale, note int) {
	if scale < 0 || scale >= engine.ScaleCount || note < 0 || note >= engine.ScaleLen {
		return
	}
	c.scaleButtons[scale][note] = !c.scaleButtons[scale][note]
	c.engine.UpdateScales(c.scaleButtons)
}

func (c *Controller) ScaleButtons() [engine.ScaleCount][engine.ScaleLen]bool {
	return c.scaleButtons
}

// Inputs

// Reset zeroes the engine counters; the next tick starts a new cycle
func (c *Controller) Reset() {
	c.engine.Reset()
}

// ProcessGate handles a rising edge on a gate input
func (c *Controller) ProcessGate(index int) {
	switch index {
	case GateReset:
		c.Reset()
	case GateScale:
		c.ToggleScale(true)
	case GateOctaveA:
		c.ToggleOctave(0)
	case GateOctaveB:
		c.ToggleOctave(1)
	}
}

// Matrix

// ToggleMatrixCell cycles a cell and applies the result straight away
func (c *Controller) ToggleMatrixCell(bank, row int, d matrix.Dest) {
	c.matrix.ToggleCell(bank, row, d)
	c.evaluate()
}

func (c *Controller) ClearMatrix(bank int) {
	c.matrix.Clear(bank)
	c.evaluate()
}

func (c *Controller) RandomizeMatrix(bank int) {
	c.matrix.Randomize(bank, c.rng)
	c.evaluate()
}

func (c *Controller) ToggleMatrixMute(bank int) {
	c.matrix.ToggleMute(bank)
	c.evaluate()
}

func (c *Controller) ToggleMatrixInvert(bank int) {
	c.matrix.SetInvert(bank, !c.matrix.Inverted(bank))
	c.evaluate()
}

func (c *Controller) SelectSnapshot(bank, snapshot int) {
	c.matrix.SelectSnapshot(bank, snapshot)
	c.evaluate()
}

// LastOutput returns the most recent matrix evaluation
func (c *Controller) LastOutput() matrix.Output {
	return c.last
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
