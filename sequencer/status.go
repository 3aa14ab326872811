package sequencer

import (
	"time"

	"orcas-heart/engine"
	"orcas-heart/matrix"
)

// VoiceStatus is one voice as the views show it
type VoiceStatus struct {
	Note     uint8
	Gate     uint8
	Changed  bool
	Delay    int
	On       bool
	Sounding int
}

// TrackStatus is one track as the views show it
type TrackStatus struct {
	On      bool
	Counter int
	Divisor int
	Phase   int
}

// Status is a copy of everything the views render
type Status struct {
	Playing  bool
	External bool

	Base       engine.Config
	Effective  engine.Config
	GateLength int
	EffGate    int
	Knob       int
	Speed      int
	Interval   time.Duration
	Transpose  int
	Root       int

	Step         int
	SpaceCounter int
	IsReset      bool

	CurrentScale int
	Octave       [engine.ScaleCount]bool
	ScaleButtons [engine.ScaleCount][engine.ScaleLen]bool

	Tracks [engine.TrackCount]TrackStatus
	Voices [engine.NoteCount]VoiceStatus
	ModCVs [engine.ModCount]int
	ModOn  [engine.ModCount]bool

	Matrix matrix.State
	Output matrix.Output
}

// Status builds the read model
func (c *Controller) Status() Status {
	e := c.engine
	s := Status{
		Base:         c.base,
		Effective:    e.Config(),
		GateLength:   c.gateLength,
		EffGate:      c.effGate,
		Knob:         c.knob,
		Speed:        c.Speed(),
		Interval:     c.Interval(),
		Transpose:    c.transpose,
		Root:         c.root,
		Step:         e.CurrentStep(),
		SpaceCounter: e.SpaceCounter(),
		IsReset:      e.IsReset(),
		CurrentScale: e.CurrentScale(),
		Octave:       c.octave,
		ScaleButtons: c.scaleButtons,
		Matrix:       c.matrix.State(),
		Output:       c.last,
	}
	for i := range s.Tracks {
		s.Tracks[i] = TrackStatus{
			On:      e.TrackOn(i),
			Counter: e.Counter(i),
			Divisor: e.Divisor(i),
			Phase:   e.Phase(i),
		}
	}
	for n := range s.Voices {
		sample := e.Sample(n, 0)
		s.Voices[n] = VoiceStatus{
			Note:     sample.Note,
			Gate:     sample.Gate,
			Changed:  sample.Changed,
			Delay:    c.noteDelay[n],
			On:       c.voiceOn[n],
			Sounding: c.sounding[n],
		}
	}
	for i := range s.ModCVs {
		s.ModCVs[i] = e.ModCV(i)
		s.ModOn[i] = e.ModGate(i)
	}
	return s
}
