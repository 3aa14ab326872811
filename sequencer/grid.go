package sequencer

import "orcas-heart/matrix"

// LEDState describes the state of a single LED
type LEDState struct {
	Row, Col int
	Color    [3]uint8 // RGB color - controller maps to its palette
	Channel  uint8    // 0=static, 2=pulse
}

// Grid layout. Matrix source rows run top to bottom on pad rows 7..0; pad
// columns are destinations (eight per page).
const (
	gridSize  = 8
	topRow    = 8
	sideCol   = 8
	destPages = (int(matrix.Dests) + gridSize - 1) / gridSize

	// top row
	topBankNote = 0
	topBankMod  = 1
	topMuteNote = 2
	topMuteMod  = 3
	topSnap0    = 4 // 4..7

	// side column, counted from the top pad row
	sidePage      = 7
	sideInvert    = 6
	sideClear     = 5
	sideRandomize = 4
	sideGate0     = 3 // 3..0 fire gate inputs 0..3
)

var (
	colorOff       = [3]uint8{0, 0, 0}
	colorCell      = [3]uint8{0, 100, 255}
	colorCellHot   = [3]uint8{255, 255, 255}
	colorSourceHot = [3]uint8{40, 60, 120}
	colorSelected  = [3]uint8{255, 200, 0}
	colorAvailable = [3]uint8{180, 80, 40}
	colorMuted     = [3]uint8{255, 0, 0}
	colorLive      = [3]uint8{0, 255, 0}
	colorAction    = [3]uint8{150, 0, 200}
	colorGate      = [3]uint8{0, 200, 200}
)

// Grid is the pad surface for editing the matrix
type Grid struct {
	bank int
	page int
}

func (g *Grid) Bank() int { return g.bank }
func (g *Grid) Page() int { return g.page }

// SelectBank switches the bank shown on the pads
func (g *Grid) SelectBank(bank int) {
	if bank >= 0 && bank < matrix.Banks {
		g.bank = bank
	}
}

// NextPage flips to the next page of destination columns
func (g *Grid) NextPage() { g.page = (g.page + 1) % destPages }

// PageDests returns the destinations on the current page in pad order
func (g *Grid) PageDests() []matrix.Dest {
	var dests []matrix.Dest
	for col := 0; col < gridSize; col++ {
		if d, ok := g.padDest(col); ok {
			dests = append(dests, d)
		}
	}
	return dests
}

// padDest maps a pad column to a destination on the current page
func (g *Grid) padDest(col int) (matrix.Dest, bool) {
	d := matrix.Dest(g.page*gridSize + col)
	return d, col >= 0 && col < gridSize && d < matrix.Dests
}

// HandlePad applies a pad press. It reports whether anything changed.
func (g *Grid) HandlePad(c *Controller, row, col int) bool {
	switch {
	case row == topRow:
		return g.handleTop(c, col)
	case col == sideCol:
		return g.handleSide(c, row)
	case row >= 0 && row < gridSize:
		d, ok := g.padDest(col)
		if !ok {
			return false
		}
		c.ToggleMatrixCell(g.bank, gridSize-1-row, d)
		return true
	}
	return false
}

func (g *Grid) handleTop(c *Controller, col int) bool {
	switch {
	case col == topBankNote:
		g.SelectBank(matrix.NoteBank)
	case col == topBankMod:
		g.SelectBank(matrix.ModBank)
	case col == topMuteNote:
		c.ToggleMatrixMute(matrix.NoteBank)
	case col == topMuteMod:
		c.ToggleMatrixMute(matrix.ModBank)
	case col >= topSnap0 && col < topSnap0+matrix.Snapshots:
		c.SelectSnapshot(g.bank, col-topSnap0)
	default:
		return false
	}
	return true
}

func (g *Grid) handleSide(c *Controller, row int) bool {
	switch {
	case row == sidePage:
		g.NextPage()
	case row == sideInvert:
		c.ToggleMatrixInvert(g.bank)
	case row == sideClear:
		c.ClearMatrix(g.bank)
	case row == sideRandomize:
		c.RandomizeMatrix(g.bank)
	case row >= 0 && row <= sideGate0:
		c.ProcessGate(sideGate0 - row)
	default:
		return false
	}
	return true
}

// RenderLEDs draws the current bank, page and source activity
func (g *Grid) RenderLEDs(s Status) []LEDState {
	var leds []LEDState
	snap := s.Matrix.Snapshot[g.bank]
	cells := s.Matrix.Cells[g.bank][snap]

	for r := 0; r < matrix.Rows; r++ {
		hot := SourceActive(s, g.bank, r)
		for col := 0; col < gridSize; col++ {
			d, ok := g.padDest(col)
			if !ok {
				continue
			}
			color := colorOff
			switch {
			case cells[r][d] != 0 && hot:
				color = colorCellHot
			case cells[r][d] != 0:
				color = colorCell
			case hot:
				color = colorSourceHot
			}
			if color != colorOff {
				leds = append(leds, LEDState{Row: gridSize - 1 - r, Col: col, Color: color})
			}
		}
	}

	bankColor := func(b int) [3]uint8 {
		if b == g.bank {
			return colorSelected
		}
		return colorAvailable
	}
	muteColor := func(b int) [3]uint8 {
		if s.Matrix.Muted[b] {
			return colorMuted
		}
		return colorLive
	}
	leds = append(leds,
		LEDState{Row: topRow, Col: topBankNote, Color: bankColor(matrix.NoteBank)},
		LEDState{Row: topRow, Col: topBankMod, Color: bankColor(matrix.ModBank)},
		LEDState{Row: topRow, Col: topMuteNote, Color: muteColor(matrix.NoteBank)},
		LEDState{Row: topRow, Col: topMuteMod, Color: muteColor(matrix.ModBank)},
	)
	for i := 0; i < matrix.Snapshots; i++ {
		color := colorAvailable
		if i == snap {
			color = colorSelected
		}
		leds = append(leds, LEDState{Row: topRow, Col: topSnap0 + i, Color: color})
	}

	pageColor := colorAvailable
	if g.page > 0 {
		pageColor = colorSelected
	}
	invertColor := colorAvailable
	if s.Matrix.Inverted[g.bank] {
		invertColor = colorSelected
	}
	leds = append(leds,
		LEDState{Row: sidePage, Col: sideCol, Color: pageColor},
		LEDState{Row: sideInvert, Col: sideCol, Color: invertColor},
		LEDState{Row: sideClear, Col: sideCol, Color: colorAction},
		LEDState{Row: sideRandomize, Col: sideCol, Color: colorAction},
	)
	for row := 0; row <= sideGate0; row++ {
		leds = append(leds, LEDState{Row: row, Col: sideCol, Color: colorGate})
	}

	// pulse the reset row's gate pad on a cycle wrap
	if s.IsReset {
		leds[len(leds)-1].Channel = 2
	}
	return leds
}

// SourceActive reports whether a matrix source row currently reads non-zero
func SourceActive(s Status, bank, row int) bool {
	switch {
	case row < matrix.RowGate0:
		if bank == matrix.NoteBank {
			return s.Voices[row].Note != 0
		}
		return s.ModCVs[row] != 0
	case row < matrix.RowReset:
		i := row - matrix.RowGate0
		if bank == matrix.NoteBank {
			return s.Voices[i].Gate != 0
		}
		return s.ModOn[i]
	default:
		return s.IsReset
	}
}
