package midi

import (
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is one voice message produced by the sequencer
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Voice    int   // voice index, mapped to a channel by the Output
	Note     uint8
	Velocity uint8

	// GateTime is how long a NoteOn should sound; 0 holds until the next NoteOff
	GateTime time.Duration

	// Seq numbers the NoteOns of a voice; a timed release names the one it ends
	Seq uint64
}

// Message builds the wire message for the event on channel ch (0-based)
func (e Event) Message(ch uint8) (gomidi.Message, error) {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(ch, e.Note, e.Velocity), nil
	case NoteOff:
		return gomidi.NoteOff(ch, e.Note), nil
	case CC:
		return gomidi.ControlChange(ch, e.Note, e.Velocity), nil
	}
	return nil, fmt.Errorf("unknown event type %#x", e.Type)
}

// ChannelMap assigns each voice a 0-based MIDI channel
type ChannelMap []uint8

// NewChannelMap converts 1-based channels, clamping to 1-16. An empty list
// puts every voice on channel 1.
func NewChannelMap(channels []int) ChannelMap {
	var m ChannelMap
	for _, ch := range channels {
		ch = min(max(ch, 1), 16)
		m = append(m, uint8(ch-1))
	}
	if len(m) == 0 {
		m = ChannelMap{0}
	}
	return m
}

// Channel returns the channel for a voice; voices past the list reuse the last one
func (m ChannelMap) Channel(voice int) uint8 {
	if voice < 0 {
		voice = 0
	}
	if voice >= len(m) {
		return m[len(m)-1]
	}
	return m[voice]
}

// InputType identifies a decoded input message
type InputType int

const (
	InputClock InputType = iota // one 24ppqn timing clock pulse
	InputStart
	InputStop
	InputGate // gate input, Index 0-3
	InputKnob // speed knob, Value 0-65535
)

// InputEvent is sent by an Input for every message the sequencer cares about
type InputEvent struct {
	Type  InputType
	Index int
	Value int
}
