package engine

// tick does the counter bookkeeping for one clock pulse
func (e *Engine) tick() {
	e.isReset = e.resetRequested
	e.resetRequested = false

	e.spaceCounter = (e.spaceCounter + 1) % SpaceSteps

	e.globalCounter++
	if e.globalCounter >= int(e.config.Length) {
		e.zeroCounters()
		e.isReset = true
		return
	}
	for i := 0; i < TrackCount; i++ {
		e.counter[i]++
	}
}

func (e *Engine) zeroCounters() {
	e.globalCounter = 0
	e.spaceCounter = 0
	for i := 0; i < TrackCount; i++ {
		e.counter[i] = 0
	}
}

// updateTrackParameters re-derives every divisor and phase from algoX
func (e *Engine) updateTrackParameters() {
	x := e.config.AlgoX
	e.divisor[0] = baseDivisor(x)
	e.phase[0] = basePhase(x)

	for i := 1; i < TrackCount; i++ {
		d := e.divisor[i-1] - 1
		if divisorRises(x, i) {
			d = e.divisor[i-1] + 1
		}
		if d < 0 {
			d = 1 - d
		}
		if d == 0 {
			d = i + 2
		}
		e.divisor[i] = d
		e.phase[i] = (phaseBits(x, i) + i) % d
	}
}

func (e *Engine) updateTrackValues() {
	e.totalWeight = 0
	for i := 0; i < TrackCount; i++ {
		e.trackOn[i] = TrackOn(e.counter[i], e.phase[i], e.divisor[i])
		e.weightOn[i] = 0
		if e.trackOn[i] {
			e.weightOn[i] = weights[i]
		}
		e.totalWeight += e.weightOn[i]
	}
}

// TrackOn reports the state of a track oscillator: alternating runs of
// divisor ticks, shifted by phase.
func TrackOn(counter, phase, divisor int) bool {
	if divisor < 1 {
		divisor = 1
	}
	return ((counter+phase)/divisor)%2 == 1
}
