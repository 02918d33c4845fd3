package color

import "math"

// DefaultGamma leaves colors untouched.
const DefaultGamma = 1.0

// GammaTable builds the 256 entry correction table for gamma.
// Higher values quantize to fewer distinct levels but balance LED output
// against human perception (2.5 leaves roughly 172 levels).
func GammaTable(gamma float64) [256]uint8 {
	var table [256]uint8
	if gamma <= 0 {
		gamma = DefaultGamma
	}
	for i := range table {
		table[i] = uint8(math.Pow(float64(i)/255.0, gamma)*255.0 + 0.5)
	}
	return table
}

// Correct applies a gamma table to every channel.
func Correct(colors []RGB, table *[256]uint8) []RGB {
	out := make([]RGB, len(colors))
	for i, c := range colors {
		out[i] = RGB{R: table[c.R], G: table[c.G], B: table[c.B]}
	}
	return out
}
