package firmware

import (
	"github.com/huereka/huereka/internal/color"
)

// Built-in test animations.
const (
	AnimationNone      uint8 = 0
	AnimationColorWipe uint8 = 1
	AnimationChase     uint8 = 2
)

var wipeColors = []color.RGB{color.Red, color.Green, color.Blue, color.White}

// animation steps one frame per governed render and ends black.
type animation struct {
	kind  uint8
	frame int
}

func validAnimation(kind uint8) bool {
	return kind == AnimationColorWipe || kind == AnimationChase
}

// frames returns how many frames the animation shows on n pixels,
// including the final black frame.
func (a *animation) frames(n int) int {
	switch a.kind {
	case AnimationColorWipe:
		return len(wipeColors) + 1
	case AnimationChase:
		return n + 1
	}
	return 1
}

// paint draws the current frame and reports whether more frames follow.
func (a *animation) paint(pixels []color.RGB) bool {
	total := a.frames(len(pixels))
	clear(pixels)
	switch a.kind {
	case AnimationColorWipe:
		if a.frame < len(wipeColors) {
			for i := range pixels {
				pixels[i] = wipeColors[a.frame]
			}
		}
	case AnimationChase:
		if a.frame < len(pixels) {
			pixels[a.frame] = color.White
		}
	}
	a.frame++
	return a.frame < total
}
