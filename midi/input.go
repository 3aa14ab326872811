package midi

import (
	"fmt"
	"sync"

	"orcas-heart/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// GateInputs is the number of gate inputs mapped from notes
const GateInputs = 4

// Decoder turns raw MIDI messages into input events
type Decoder struct {
	GateBaseNote uint8 // notes GateBaseNote..+3 fire gate inputs 0-3
	KnobCC       uint8 // this CC drives the speed knob
	Channel      int   // 1-16, or 0 for any channel
}

// Decode returns the input event for msg, if it is one the sequencer uses
func (d Decoder) Decode(msg gomidi.Message) (InputEvent, bool) {
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		return InputEvent{Type: InputClock}, true
	case msg.Is(gomidi.StartMsg):
		return InputEvent{Type: InputStart}, true
	case msg.Is(gomidi.StopMsg):
		return InputEvent{Type: InputStop}, true
	}

	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0 {
		if !d.channelMatches(channel) {
			return InputEvent{}, false
		}
		if key < d.GateBaseNote || key >= d.GateBaseNote+GateInputs {
			return InputEvent{}, false
		}
		return InputEvent{Type: InputGate, Index: int(key - d.GateBaseNote)}, true
	}

	var cc, value uint8
	if msg.GetControlChange(&channel, &cc, &value) {
		if !d.channelMatches(channel) || cc != d.KnobCC {
			return InputEvent{}, false
		}
		return InputEvent{Type: InputKnob, Value: int(value) << 9}, true
	}
	return InputEvent{}, false
}

func (d Decoder) channelMatches(ch uint8) bool {
	return d.Channel <= 0 || int(ch) == d.Channel-1
}

// Input listens to one port and forwards decoded events
type Input struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	events   chan InputEvent

	mu     sync.Mutex // guards closed against late driver callbacks
	closed bool
}

// NewInput starts listening on a port. Timing clock needs the time code
// option or the driver filters it.
func NewInput(inPort drivers.In, dec Decoder) (*Input, error) {
	in := &Input{
		id:     inPort.String(),
		inPort: inPort,
		events: make(chan InputEvent, 64),
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if evt, ok := dec.Decode(msg); ok {
			in.deliver(evt)
		}
	}, gomidi.UseTimeCode(), gomidi.HandleError(func(err error) {
		debug.Log("input", "listener %s: %v", in.id, err)
	}))
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.id, err)
	}
	in.stopFunc = stop
	return in, nil
}

// OpenInput finds an input port by name and listens to it
func OpenInput(name string, dec Decoder) (*Input, error) {
	for _, port := range gomidi.GetInPorts() {
		if port.String() == name {
			return NewInput(port, dec)
		}
	}
	return nil, fmt.Errorf("input %q: %w", name, ErrPortNotFound)
}

func (in *Input) ID() string {
	return in.id
}

func (in *Input) Events() <-chan InputEvent {
	return in.events
}

// deliver queues an event without blocking the driver. Events arriving after
// Close are dropped.
func (in *Input) deliver(evt InputEvent) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	select {
	case in.events <- evt:
	default:
		debug.LogEvery(24, "input", "dropped %v from %s", evt.Type, in.id)
	}
}

func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.closed {
		in.closed = true
		close(in.events)
	}
	return nil
}
