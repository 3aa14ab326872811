package engine

// calculateNotes runs the gate/note generator for every voice. Voices are
// computed in index order: the last voice looks at what the earlier ones did
// this tick.
func (e *Engine) calculateNotes() {
	e.history.advance()
	for n := 0; n < NoteCount; n++ {
		e.calculateVoice(n)
	}
}

func (e *Engine) calculateVoice(n int) {
	prev := e.history.at(n, 1)

	gate := e.voiceGate(n)
	if n == NoteCount-1 && e.previousGatesOn() {
		gate = 0
	}
	if SpaceSilenced(e.config.Space, n, e.spaceCounter) {
		gate = 0
	}
	if e.scales.empty() {
		gate = 0
	}

	s := Sample{Note: prev.Note, Gate: gate, Changed: gate != prev.Gate}
	if s.Changed {
		s.Note = e.calculateNote(n)
	}
	e.history.store(n, s)
}

// voiceGate combines the masked track states with the neighbour bits of algoY
func (e *Engine) voiceGate(n int) uint8 {
	mask := GateMask(e.config.AlgoY, n)

	var gate uint8
	for j := 0; j < TrackCount; j++ {
		if e.trackOn[j] && mask&(1<<j) != 0 {
			gate = 1
		}
	}

	for k := 0; k < 3; k++ {
		if neighbourOn(e.config.AlgoY, k) {
			gate ^= e.onBit((n+k+1)%TrackCount) << (k + 1)
		}
	}
	return gate
}

// previousGatesOn reports whether every voice before the last opened a new gate this tick
func (e *Engine) previousGatesOn() bool {
	for i := 0; i < NoteCount-1; i++ {
		s := e.history.at(i, 0)
		if !s.Changed || !s.On() {
			return false
		}
	}
	return true
}

func (e *Engine) calculateNote(n int) uint8 {
	note := 0
	mask := noteMask(e.config.AlgoY)
	for j := 0; j < TrackCount; j++ {
		if e.trackOn[j] && mask&(1<<j) != 0 {
			note += e.weightOn[j]
		}
	}

	for k := 0; k < 3; k++ {
		if neighbourOn(e.config.AlgoY, k) {
			note += e.weightOn[(n+k+1)%TrackCount]
		}
	}

	note += e.shifts[n]
	return e.scales.quantize(note)
}

func (e *Engine) calculateMods() {
	for i := 0; i < ModCount; i++ {
		e.modGateOn[i] = e.trackOn[i%TrackCount]
	}

	on := func(i int) int { return int(e.onBit(i)) }
	e.modCVs[0] = e.totalWeight + e.weightOn[0]
	e.modCVs[1] = weights[1]*(on(3)+on(2)) + weights[2]*(on(0)+on(2))
	e.modCVs[2] = weights[0]*(on(2)+on(1)) + weights[3]*(on(0)+on(3))
	e.modCVs[3] = weights[1]*(on(1)+on(2)) + weights[2]*(on(2)+on(3)) + weights[3]*(on(3)+on(2))

	for i := 0; i < ModCount; i++ {
		e.modCVs[i] %= 10
	}
}

func (e *Engine) onBit(track int) uint8 {
	if e.trackOn[track] {
		return 1
	}
	return 0
}
