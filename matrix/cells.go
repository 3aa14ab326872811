package matrix

// Intner is the part of math/rand the randomizer needs
type Intner interface {
	Intn(n int) int
}

// State is the persistent part of a matrix
type State struct {
	Cells    [Banks][Snapshots]Cells `yaml:"cells"`
	Snapshot [Banks]int              `yaml:"snapshot"`
	Muted    [Banks]bool             `yaml:"muted"`
	Inverted [Banks]bool             `yaml:"inverted"`
}

func validCell(bank, row int, d Dest) bool {
	return bank >= 0 && bank < Banks && row >= 0 && row < Rows && d >= 0 && d < Dests
}

// Cell returns the state of a cell in the bank's active snapshot
func (m *Matrix) Cell(bank, row int, d Dest) uint8 {
	if !validCell(bank, row, d) {
		return 0
	}
	return m.cells[bank][m.snapshot[bank]][row][d]
}

// SetCell sets a cell in the bank's active snapshot, clamped to MaxCellState
func (m *Matrix) SetCell(bank, row int, d Dest, state uint8) {
	if !validCell(bank, row, d) {
		return
	}
	if state > MaxCellState {
		state = MaxCellState
	}
	m.cells[bank][m.snapshot[bank]][row][d] = state
}

// ToggleCell cycles a cell through its states
func (m *Matrix) ToggleCell(bank, row int, d Dest) {
	if !validCell(bank, row, d) {
		return
	}
	c := &m.cells[bank][m.snapshot[bank]][row][d]
	*c = (*c + 1) % (MaxCellState + 1)
}

// Clear disconnects every cell in the bank's active snapshot
func (m *Matrix) Clear(bank int) {
	if bank < 0 || bank >= Banks {
		return
	}
	m.cells[bank][m.snapshot[bank]] = Cells{}
}

// Randomize clears the active snapshot and connects RandomCells random cells
func (m *Matrix) Randomize(bank int, rng Intner) {
	if bank < 0 || bank >= Banks {
		return
	}
	m.Clear(bank)
	for i := 0; i < RandomCells; i++ {
		m.cells[bank][m.snapshot[bank]][rng.Intn(Rows)][rng.Intn(int(Dests))] = 1
	}
}

// Connected returns the number of connected cells in the bank's active snapshot
func (m *Matrix) Connected(bank int) int {
	if bank < 0 || bank >= Banks {
		return 0
	}
	n := 0
	for _, row := range m.cells[bank][m.snapshot[bank]] {
		for _, c := range row {
			if c != 0 {
				n++
			}
		}
	}
	return n
}

func (m *Matrix) ToggleMute(bank int) {
	if bank >= 0 && bank < Banks {
		m.muted[bank] = !m.muted[bank]
	}
}

func (m *Matrix) Muted(bank int) bool {
	return bank >= 0 && bank < Banks && m.muted[bank]
}

func (m *Matrix) SetInvert(bank int, on bool) {
	if bank >= 0 && bank < Banks {
		m.inverted[bank] = on
	}
}

func (m *Matrix) Inverted(bank int) bool {
	return bank >= 0 && bank < Banks && m.inverted[bank]
}

// SelectSnapshot switches the cells a bank evaluates; out of range is ignored
func (m *Matrix) SelectSnapshot(bank, snapshot int) {
	if bank < 0 || bank >= Banks || snapshot < 0 || snapshot >= Snapshots {
		return
	}
	m.snapshot[bank] = snapshot
}

func (m *Matrix) Snapshot(bank int) int {
	if bank < 0 || bank >= Banks {
		return 0
	}
	return m.snapshot[bank]
}

// State returns a copy of the persistent state
func (m *Matrix) State() State {
	return State{
		Cells:    m.cells,
		Snapshot: m.snapshot,
		Muted:    m.muted,
		Inverted: m.inverted,
	}
}

// Load replaces the persistent state. Cell values and snapshot indexes are
// clamped; toggle edge memory is cleared.
func (m *Matrix) Load(s State) {
	m.cells = s.Cells
	for b := range m.cells {
		for sn := range m.cells[b] {
			for r := range m.cells[b][sn] {
				for d := range m.cells[b][sn][r] {
					if m.cells[b][sn][r][d] > MaxCellState {
						m.cells[b][sn][r][d] = MaxCellState
					}
				}
			}
		}
	}
	for b := 0; b < Banks; b++ {
		m.snapshot[b] = 0
		m.SelectSnapshot(b, s.Snapshot[b])
	}
	m.muted = s.Muted
	m.inverted = s.Inverted
	m.prev = [Dests]int{}
}
