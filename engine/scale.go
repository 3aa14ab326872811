package engine

// scaleTable holds the user scales as ordered degree lists
type scaleTable struct {
	degrees [ScaleCount][ScaleLen]uint8
	count   [ScaleCount]int
	current int
}

// update rebuilds the degree lists from a button table (true = degree enabled)
func (t *scaleTable) update(buttons [ScaleCount][ScaleLen]bool) {
	for s := 0; s < ScaleCount; s++ {
		t.count[s] = 0
		for i := 0; i < ScaleLen; i++ {
			if buttons[s][i] {
				t.degrees[s][t.count[s]] = uint8(i)
				t.count[s]++
			}
		}
	}
}

func (t *scaleTable) empty() bool {
	return t.count[t.current] == 0
}

func (t *scaleTable) quantize(note int) uint8 {
	s := t.current
	return Quantize(t.degrees[s][:t.count[s]], note)
}

// Quantize reduces a raw summed note through a scale: the degree is picked by
// note modulo the scale size and the octave offset is capped at two octaves.
// An empty scale yields 0.
func Quantize(degrees []uint8, note int) uint8 {
	if len(degrees) == 0 || note < 0 {
		return 0
	}
	octave := note / ScaleLen
	if octave > 2 {
		octave = 2
	}
	return degrees[note%len(degrees)] + uint8(octave*ScaleLen)
}

// ScaleButtons builds a button row from a list of pitch classes
func ScaleButtons(degrees ...int) [ScaleLen]bool {
	var row [ScaleLen]bool
	for _, d := range degrees {
		if d >= 0 && d < ScaleLen {
			row[d] = true
		}
	}
	return row
}
