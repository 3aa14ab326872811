package midi

import (
	"fmt"
	"strings"
	"sync/atomic"

	"orcas-heart/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Grid size including the side column and top row
const (
	GridRows = 9
	GridCols = 9
)

var ledSendCount uint64

// LaunchpadController drives a Novation Launchpad X in programmer mode
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	padChan chan PadEvent
}

// programmer mode, full brightness, external LED feedback
var launchpadSetup = [][]byte{
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F},
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F},
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01},
}

// NewLaunchpadController opens both ports and switches the device to
// programmer mode
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:      id,
		padChan: make(chan PadEvent, 32),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send
		for _, sysex := range launchpadSetup {
			if err := lp.send(gomidi.SysEx(sysex)); err != nil {
				return nil, fmt.Errorf("programmer mode: %w", err)
			}
		}
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			if pad, ok := decodePad(msg); ok {
				select {
				case lp.padChan <- pad:
				default:
				}
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// decodePad maps grid notes and top-row CCs to pad presses. Releases are dropped.
func decodePad(msg gomidi.Message) (PadEvent, bool) {
	var channel, note, velocity, cc, value uint8
	if msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0 {
		if row, col := noteToRowCol(note); row >= 0 {
			return PadEvent{Row: row, Col: col, Velocity: velocity}, true
		}
	}
	if msg.GetControlChange(&channel, &cc, &value) && value > 0 {
		if row, col := ccToRowCol(cc); row >= 0 {
			return PadEvent{Row: row, Col: col, Velocity: value}, true
		}
	}
	return PadEvent{}, false
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

func (lp *LaunchpadController) SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error {
	if lp.send == nil {
		return nil
	}
	atomic.AddUint64(&ledSendCount, 1)
	return lp.send(gomidi.NoteOn(channel, rowColToNote(row, col), nearestColor(rgb)))
}

// SetLEDBatch sends one NoteOn per update; callers diff before batching
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		if err := lp.send(gomidi.NoteOn(u.Channel, rowColToNote(u.Row, u.Col), nearestColor(u.Color))); err != nil {
			return fmt.Errorf("led %d,%d: %w", u.Row, u.Col, err)
		}
	}

	count := atomic.AddUint64(&ledSendCount, uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		debug.Log("lp-send", "batch count=%d (this batch=%d)", count, len(updates))
	}
	return nil
}

// Launchpad X palette entries {velocity, R, G, B}
var launchpadPalette = [][4]uint8{
	{0, 0, 0, 0},
	{5, 255, 0, 0},
	{6, 255, 80, 80},
	{7, 180, 60, 60},
	{9, 255, 100, 0},
	{11, 180, 80, 40},
	{13, 255, 200, 0},
	{17, 0, 180, 0},
	{19, 0, 100, 0},
	{21, 0, 255, 0},
	{37, 0, 200, 200},
	{43, 40, 60, 120},
	{45, 0, 100, 255},
	{47, 80, 150, 255},
	{49, 150, 0, 200},
	{53, 255, 80, 180},
	{78, 100, 100, 255},
	{84, 255, 150, 50},
	{87, 150, 255, 100},
	{97, 180, 180, 60},
	{119, 255, 255, 255},
}

// nearestColor returns the palette velocity closest to rgb
func nearestColor(rgb [3]uint8) uint8 {
	best := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range launchpadPalette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			bestDist = dist
			best = p[0]
		}
	}
	return best
}

// Close blanks the surface and stops listening
func (lp *LaunchpadController) Close() error {
	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				if row == GridRows-1 && col == GridCols-1 {
					continue // no LED in the corner
				}
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		lp.SetLEDBatch(updates)
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.padChan)
	return nil
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

// Note layout: row 0 (bottom) is notes 11-18, row 7 is 81-88, the side
// column is 19..89 and the top row is CC 91-98.

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
