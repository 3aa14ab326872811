package engine

// Sample is one voice's output for one tick
type Sample struct {
	Note    uint8
	Gate    uint8 // non-zero = gate on; higher bits come from neighbour modulation
	Changed bool
}

// On reports whether the gate is open
func (s Sample) On() bool {
	return s.Gate != 0
}

// history is a fixed-depth ring of samples per voice. Generation 0 is the slot
// under the cursor, generation g sits g slots behind it.
type history struct {
	slots  [HistoryCount][NoteCount]Sample
	cursor int
}

// advance moves every voice one generation older and clears generation 0
func (h *history) advance() {
	h.cursor = (h.cursor + 1) % HistoryCount
	h.slots[h.cursor] = [NoteCount]Sample{}
}

func (h *history) at(voice, generation int) Sample {
	if voice < 0 || voice >= NoteCount || generation < 0 || generation >= HistoryCount {
		return Sample{}
	}
	return h.slots[(h.cursor-generation+HistoryCount)%HistoryCount][voice]
}

func (h *history) store(voice int, s Sample) {
	h.slots[h.cursor][voice] = s
}
