package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Output sends voice events to one MIDI port, one channel per voice
type Output struct {
	name     string
	send     func(msg gomidi.Message) error
	close    func() error
	closed   bool
	channels ChannelMap
	mu       sync.Mutex
}

// NewOutput opens a port. channels are 1-based; voices beyond the list reuse
// the last channel.
func NewOutput(port drivers.Out, channels []int) (*Output, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", port.String(), err)
	}
	out := newOutput(port.String(), send, channels)
	out.close = port.Close
	return out, nil
}

// OpenOutput finds an output port by name and opens it
func OpenOutput(name string, channels []int) (*Output, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() == name {
			return NewOutput(port, channels)
		}
	}
	return nil, fmt.Errorf("output %q: %w", name, ErrPortNotFound)
}

func newOutput(name string, send func(gomidi.Message) error, channels []int) *Output {
	return &Output{name: name, send: send, channels: NewChannelMap(channels)}
}

func (o *Output) Name() string {
	return o.name
}

// Channel returns the 0-based channel a voice plays on
func (o *Output) Channel(voice int) uint8 {
	return o.channels.Channel(voice)
}

// Send writes one event to the port
func (o *Output) Send(evt Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("send %s: %w", o.name, drivers.ErrPortClosed)
	}

	msg, err := evt.Message(o.Channel(evt.Voice))
	if err != nil {
		return err
	}
	if err := o.send(msg); err != nil {
		return fmt.Errorf("send %s: %w", o.name, err)
	}
	return nil
}

// Panic sends all-notes-off on every voice channel
func (o *Output) Panic() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("panic %s: %w", o.name, drivers.ErrPortClosed)
	}

	seen := make(map[uint8]bool)
	for _, ch := range o.channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		if err := o.send(gomidi.ControlChange(ch, 123, 0)); err != nil {
			return fmt.Errorf("panic %s: %w", o.name, err)
		}
	}
	return nil
}

// Close releases the port. Later sends fail.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.close == nil {
		return nil
	}
	return o.close()
}
