package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
)

// PadEvent is sent when a pad/button is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// LEDUpdate is one pad colour change
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8 // RGB, the controller maps it to its palette
	Channel  uint8    // ChannelStatic, ChannelFlash or ChannelPulse
}

// Controller is a grid surface used to edit the modulation matrix
type Controller interface {
	ID() string
	Type() ControllerType

	PadEvents() <-chan PadEvent

	SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error
	SetLEDBatch(updates []LEDUpdate) error

	Close() error
}

// Channel modes for LEDs
const (
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
