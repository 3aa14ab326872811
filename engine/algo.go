package engine

const (
	TrackCount   = 6
	NoteCount    = 6
	ModCount     = 4
	ScaleLen     = 12
	ScaleCount   = 2
	HistoryCount = 8
	SpaceSteps   = 16
)

// Parameter ranges
const (
	MinLength = 1
	MaxLength = 32
	MaxAlgo   = 127
	MaxShift  = 12
	MaxSpace  = 15
)

const fallbackGateMask uint8 = 0b0101

// gatePresets holds a 4-bit track mask per voice, row selected by algoY
var gatePresets = [16][NoteCount]uint8{
	{0b0001, 0b0010, 0b0100, 0b1000, 0b0000, 0b0001},
	{0b0011, 0b0010, 0b0101, 0b1000, 0b0001, 0b0010},
	{0b0011, 0b0110, 0b1101, 0b1000, 0b0010, 0b0100},
	{0b0111, 0b0110, 0b1101, 0b1001, 0b0100, 0b1000},

	{0b0111, 0b0101, 0b1101, 0b1010, 0b1001, 0b0101},
	{0b1111, 0b0101, 0b1110, 0b1010, 0b0110, 0b1010},
	{0b1101, 0b1101, 0b1010, 0b1011, 0b1010, 0b0110},
	{0b1101, 0b1000, 0b0110, 0b1101, 0b1100, 0b0011},

	{0b1001, 0b1100, 0b1110, 0b0111, 0b1000, 0b0001},
	{0b1100, 0b0101, 0b0110, 0b0111, 0b0100, 0b1000},
	{0b1100, 0b0110, 0b0110, 0b1100, 0b0010, 0b0100},
	{0b0101, 0b1010, 0b0110, 0b1101, 0b0001, 0b0010},

	{0b0101, 0b1001, 0b0110, 0b0101, 0b1101, 0b1011},
	{0b0110, 0b0101, 0b0110, 0b1101, 0b1100, 0b0011},
	{0b1100, 0b0011, 0b0110, 0b1100, 0b0110, 0b0110},
	{0b1001, 0b0010, 0b0101, 0b1000, 0b0010, 0b0100},
}

// spacePresets holds the silencing masks, indexed by (space | voice)
var spacePresets = [SpaceSteps]uint8{
	0b0000, 0b0001, 0b0010, 0b0100,
	0b1000, 0b0011, 0b0101, 0b1001,
	0b0110, 0b1010, 0b1100, 0b0111,
	0b1011, 0b1101, 0b1110, 0b1111,
}

var weights = [TrackCount]int{1, 2, 4, 7, 5, 3}

// Weight returns the constant weight of a track (0 if out of range)
func Weight(track int) int {
	if track < 0 || track >= TrackCount {
		return 0
	}
	return weights[track]
}

// algoX packing: bits 0-1 base divisor, bits 3-7 divisor direction per track,
// bits 5-6 base phase.

func baseDivisor(algoX uint8) int {
	return int(algoX&0b11) + 1
}

func basePhase(algoX uint8) int {
	return int(algoX >> 5)
}

// divisorRises reports whether track i's divisor is one more than track i-1's
func divisorRises(algoX uint8, i int) bool {
	return algoX&(1<<(i+2)) != 0
}

func phaseBits(algoX uint8, i int) int {
	return int(algoX) & (0b11 << i)
}

// algoY packing: bits 0-2 neighbour tracks, bits 3-6 gate preset row and note mask.

func gateRow(algoY uint8) int {
	return int(algoY >> 3)
}

func noteMask(algoY uint8) int {
	return int(algoY >> 3)
}

func neighbourOn(algoY uint8, k int) bool {
	return algoY&(1<<k) != 0
}

// GateMask returns the track mask gating a voice: the preset for the algoY row
// (or the fallback when empty) rotated right by the voice index.
func GateMask(algoY uint8, voice int) uint8 {
	mask := gatePresets[gateRow(algoY)%len(gatePresets)][voice]
	if mask == 0 {
		mask = fallbackGateMask
	}
	for i := 0; i < voice; i++ {
		mask = rotateRight4(mask)
	}
	return mask
}

func rotateRight4(m uint8) uint8 {
	return (m&1)<<3 | m>>1
}

// SpaceSilenced reports whether a voice is silenced at the given space counter.
// The 4-bit preset is mirrored into the upper nibble and counter 0 is read as
// 16, so every phase of the counter is reachable by some mask bit.
func SpaceSilenced(space uint8, voice, counter int) bool {
	m := spacePresets[(int(space)|voice)%SpaceSteps]
	m |= m << 4
	phase := counter % SpaceSteps
	if phase == 0 {
		phase = SpaceSteps
	}
	return int(m)&phase != 0
}

// Generation maps a per-voice note delay to a history generation
func Generation(delay int) int {
	if delay < 0 {
		return 0
	}
	if delay > HistoryCount-1 {
		return HistoryCount - 1
	}
	return delay
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
