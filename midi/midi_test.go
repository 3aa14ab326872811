package midi

import (
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/testdrv"
)

func TestDecoder(t *testing.T) {
	dec := Decoder{GateBaseNote: 36, KnobCC: 1}

	tests := []struct {
		name string
		msg  gomidi.Message
		want InputEvent
		ok   bool
	}{
		{"clock", gomidi.TimingClock(), InputEvent{Type: InputClock}, true},
		{"start", gomidi.Start(), InputEvent{Type: InputStart}, true},
		{"stop", gomidi.Stop(), InputEvent{Type: InputStop}, true},
		{"gate 0", gomidi.NoteOn(0, 36, 100), InputEvent{Type: InputGate, Index: 0}, true},
		{"gate 3", gomidi.NoteOn(5, 39, 1), InputEvent{Type: InputGate, Index: 3}, true},
		{"below gates", gomidi.NoteOn(0, 35, 100), InputEvent{}, false},
		{"above gates", gomidi.NoteOn(0, 40, 100), InputEvent{}, false},
		{"release", gomidi.NoteOff(0, 36), InputEvent{}, false},
		{"knob max", gomidi.ControlChange(0, 1, 127), InputEvent{Type: InputKnob, Value: 127 << 9}, true},
		{"knob min", gomidi.ControlChange(0, 1, 0), InputEvent{Type: InputKnob, Value: 0}, true},
		{"other cc", gomidi.ControlChange(0, 7, 64), InputEvent{}, false},
	}
	for _, tt := range tests {
		got, ok := dec.Decode(tt.msg)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("%s: Decode = %+v, %v, want %+v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecoderChannelFilter(t *testing.T) {
	dec := Decoder{GateBaseNote: 60, KnobCC: 74, Channel: 10}
	if _, ok := dec.Decode(gomidi.NoteOn(0, 60, 100)); ok {
		t.Fatal("gate on channel 1 accepted")
	}
	if evt, ok := dec.Decode(gomidi.NoteOn(9, 61, 100)); !ok || evt.Index != 1 {
		t.Fatalf("gate on channel 10 = %+v, %v", evt, ok)
	}
	if _, ok := dec.Decode(gomidi.TimingClock()); !ok {
		t.Fatal("clock filtered by channel")
	}
}

type recorder struct {
	msgs []gomidi.Message
	err  error
}

func (r *recorder) send(msg gomidi.Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestOutputChannels(t *testing.T) {
	rec := &recorder{}
	out := newOutput("test", rec.send, []int{1, 2, 0, 17})

	if got := out.Channel(0); got != 0 {
		t.Fatalf("voice 0 channel = %d, want 0", got)
	}
	if got := out.Channel(2); got != 0 {
		t.Fatalf("voice 2 channel = %d, want clamp to 0", got)
	}
	if got := out.Channel(3); got != 15 {
		t.Fatalf("voice 3 channel = %d, want clamp to 15", got)
	}
	if got := out.Channel(5); got != 15 {
		t.Fatalf("voice 5 channel = %d, want last channel 15", got)
	}

	if err := out.Send(Event{Type: NoteOn, Voice: 1, Note: 60, Velocity: 90}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := out.Send(Event{Type: NoteOff, Voice: 1, Note: 60}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(rec.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rec.msgs))
	}

	var ch, key, vel uint8
	if !rec.msgs[0].GetNoteOn(&ch, &key, &vel) || ch != 1 || key != 60 || vel != 90 {
		t.Fatalf("note on = %v", rec.msgs[0])
	}
	if !rec.msgs[1].GetNoteOff(&ch, &key, &vel) || ch != 1 || key != 60 {
		t.Fatalf("note off = %v", rec.msgs[1])
	}
}

func TestOutputDefaultsAndErrors(t *testing.T) {
	rec := &recorder{err: errors.New("unplugged")}
	out := newOutput("test", rec.send, nil)
	if got := out.Channel(4); got != 0 {
		t.Fatalf("default channel = %d, want 0", got)
	}
	if err := out.Send(Event{Type: NoteOn, Note: 1, Velocity: 1}); !errors.Is(err, rec.err) {
		t.Fatalf("Send err = %v, want wrapped %v", err, rec.err)
	}
	if err := out.Send(Event{Type: 0x42}); err == nil {
		t.Fatal("unknown type accepted")
	}
}

func TestOutputPanic(t *testing.T) {
	rec := &recorder{}
	out := newOutput("test", rec.send, []int{1, 1, 2, 3, 3, 3})
	if err := out.Panic(); err != nil {
		t.Fatalf("Panic: %v", err)
	}
	if len(rec.msgs) != 3 {
		t.Fatalf("panic sent %d messages, want one per channel (3)", len(rec.msgs))
	}
}

func TestOutputClose(t *testing.T) {
	rec := &recorder{}
	out := newOutput("test", rec.send, nil)
	closes := 0
	out.close = func() error { closes++; return nil }

	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out.Close()
	if closes != 1 {
		t.Fatalf("port closed %d times, want 1", closes)
	}
	if err := out.Send(Event{Type: NoteOn, Note: 60, Velocity: 1}); !errors.Is(err, drivers.ErrPortClosed) {
		t.Fatalf("Send after close = %v, want ErrPortClosed", err)
	}
	if err := out.Panic(); err == nil {
		t.Fatal("Panic after close succeeded")
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("closed output sent %d messages", len(rec.msgs))
	}
}

func TestScanOutputClosesVanishedPort(t *testing.T) {
	outs, _ := testdrv.New("voices").Outs()
	pm := NewPortManager(PortConfig{OutputPort: outs[0].String(), Channels: []int{1}})

	events := pm.scanOutput(outs)
	if len(events) != 1 || events[0].Type != OutputConnected || events[0].Output == nil {
		t.Fatalf("connect events = %+v", events)
	}
	if !outs[0].IsOpen() {
		t.Fatal("output port not opened")
	}

	events = pm.scanOutput(nil)
	if len(events) != 1 || events[0].Type != OutputDisconnected {
		t.Fatalf("disconnect events = %+v", events)
	}
	if outs[0].IsOpen() {
		t.Fatal("vanished output port left open")
	}
	if pm.Output() != nil {
		t.Fatal("output still set")
	}
}

func TestInputLoopback(t *testing.T) {
	drv := testdrv.New("clock")
	ins, _ := drv.Ins()
	outs, _ := drv.Outs()

	in, err := NewInput(ins[0], Decoder{GateBaseNote: 36})
	if err != nil {
		t.Fatalf("NewInput: %v", err)
	}
	send, err := gomidi.SendTo(outs[0])
	if err != nil {
		t.Fatalf("SendTo: %v", err)
	}
	if err := send(gomidi.TimingClock()); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case evt := <-in.Events():
		if evt.Type != InputClock {
			t.Fatalf("event = %+v, want clock", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("clock not delivered")
	}
	in.Close()
}

func TestInputCloseDropsLateEvents(t *testing.T) {
	ins, _ := testdrv.New("late").Ins()
	in, err := NewInput(ins[0], Decoder{})
	if err != nil {
		t.Fatalf("NewInput: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	in.Close()

	// a driver callback racing Close must not send on the closed channel
	in.deliver(InputEvent{Type: InputClock})

	if _, ok := <-in.Events(); ok {
		t.Fatal("event delivered after close")
	}
}

func TestLaunchpadMapping(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 9; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Fatalf("(%d,%d) round trips to (%d,%d)", row, col, r, c)
			}
		}
	}
	if r, c := noteToRowCol(rowColToNote(8, 3)); r != 8 || c != 3 {
		t.Fatalf("top row round trips to (%d,%d)", r, c)
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Fatal("note 5 mapped onto the grid")
	}
}

func TestDecodePad(t *testing.T) {
	pad, ok := decodePad(gomidi.NoteOn(0, 11, 127))
	if !ok || pad.Row != 0 || pad.Col != 0 {
		t.Fatalf("pad = %+v, %v", pad, ok)
	}
	pad, ok = decodePad(gomidi.ControlChange(0, 98, 127))
	if !ok || pad.Row != 8 || pad.Col != 7 {
		t.Fatalf("top pad = %+v, %v", pad, ok)
	}
	if _, ok := decodePad(gomidi.ControlChange(0, 98, 0)); ok {
		t.Fatal("release decoded as press")
	}
}

func TestNearestColor(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{250, 0, 0}, 5},
		{[3]uint8{255, 255, 255}, 119},
		{[3]uint8{0, 250, 10}, 21},
	}
	for _, tt := range tests {
		if got := nearestColor(tt.rgb); got != tt.want {
			t.Fatalf("nearestColor(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}
