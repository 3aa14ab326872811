package engine

// Config holds the parameters the track engine re-derives from every tick
type Config struct {
	Length uint8 `yaml:"length" json:"length"`
	AlgoX  uint8 `yaml:"algoX" json:"algoX"`
	AlgoY  uint8 `yaml:"algoY" json:"algoY"`
	Shift  uint8 `yaml:"shift" json:"shift"`
	Space  uint8 `yaml:"space" json:"space"`
}

// DefaultConfig returns the power-on parameters
func DefaultConfig() Config {
	return Config{
		Length: 8,
		AlgoX:  12,
		AlgoY:  12,
		Shift:  0,
		Space:  0,
	}
}

// Clamped returns a copy with every field inside its legal range
func (c Config) Clamped() Config {
	return Config{
		Length: ClampLength(int(c.Length)),
		AlgoX:  ClampAlgo(int(c.AlgoX)),
		AlgoY:  ClampAlgo(int(c.AlgoY)),
		Shift:  ClampShift(int(c.Shift)),
		Space:  ClampSpace(int(c.Space)),
	}
}

func ClampLength(v int) uint8 { return uint8(clamp(v, MinLength, MaxLength)) }
func ClampAlgo(v int) uint8   { return uint8(clamp(v, 0, MaxAlgo)) }
func ClampShift(v int) uint8  { return uint8(clamp(v, 0, MaxShift)) }
func ClampSpace(v int) uint8  { return uint8(clamp(v, 0, MaxSpace)) }
