package color

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrProfileLengthMismatch is returned when a fixed profile does not have
// exactly one color per pixel.
var ErrProfileLengthMismatch = errors.New("color: profile length mismatch")

// Expand inflates colors to exactly length pixels using mode.
// An empty color list expands to black, except in fixed mode where any
// non-zero length is a mismatch. Random mode uses seed 0.
func Expand(colors []RGB, mode Mode, length int) ([]RGB, error) {
	return ExpandSeeded(colors, mode, length, 0)
}

// ExpandSeeded is Expand with the seed random mode draws from. The same
// seed and length always give the same pixels.
func ExpandSeeded(colors []RGB, mode Mode, length int, seed uint64) ([]RGB, error) {
	if length < 0 {
		return nil, fmt.Errorf("color: negative length %d", length)
	}

	if mode == ModeFixed {
		if len(colors) != length {
			return nil, fmt.Errorf("%w: %d colors for %d pixels", ErrProfileLengthMismatch, len(colors), length)
		}
		out := make([]RGB, length)
		copy(out, colors)
		return out, nil
	}

	out := make([]RGB, length)
	if len(colors) == 0 {
		return out, nil
	}

	switch mode {
	case ModeRepeat, "":
		for i := range out {
			out[i] = colors[i%len(colors)]
		}
	case ModeMirror:
		for i := range out {
			out[i] = colors[mirrorIndex(i, len(colors))]
		}
	case ModeGradient:
		gradient(out, colors)
	case ModeRandom:
		rng := rand.New(rand.NewPCG(seed, uint64(length)))
		for i := range out {
			out[i] = colors[rng.IntN(len(colors))]
		}
	default:
		return nil, fmt.Errorf("color: unknown mode %q", mode)
	}
	return out, nil
}

// mirrorIndex maps pixel i onto a ping-pong walk over k colors.
func mirrorIndex(i, k int) int {
	if k == 1 {
		return 0
	}
	period := 2 * (k - 1)
	m := i % period
	if m < k {
		return m
	}
	return period - m
}

func gradient(out, colors []RGB) {
	if len(colors) == 1 || len(out) == 1 {
		for i := range out {
			out[i] = colors[0]
		}
		return
	}

	segments := len(colors) - 1
	last := float64(len(out) - 1)
	for i := range out {
		pos := float64(i) / last * float64(segments)
		seg := int(math.Floor(pos))
		if seg >= segments {
			seg = segments - 1
		}
		frac := pos - float64(seg)

		blended := colors[seg].colorful().BlendLab(colors[seg+1].colorful(), frac).Clamped()
		r, g, b := blended.RGB255()
		out[i] = RGB{R: r, G: g, B: b}
	}
}
