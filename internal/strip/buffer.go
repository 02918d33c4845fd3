// Package strip holds the host side pixel state of one LED strip and
// computes the wire ops that bring the controller up to date.
package strip

import (
	"errors"
	"fmt"

	"github.com/huereka/huereka/internal/color"
)

// DefaultFillThreshold is the changed pixel fraction above which Diff
// repaints with a fill instead of per-pixel ops.
const DefaultFillThreshold = 0.5

// MaxBrightness is full brightness.
const MaxBrightness = 255

// ErrIndexOutOfRange is returned for pixel indexes past the strip end.
var ErrIndexOutOfRange = errors.New("strip: index out of range")

// view is what the controller is known to display.
type view struct {
	pixels     []color.RGB
	brightness uint8
}

// Buffer is the authoritative pixel state for one strip. It is not safe
// for concurrent use; the owning manager serializes access.
type Buffer struct {
	id          uint8
	pixels      []color.RGB
	brightness  uint8
	fingerprint string
	dirty       bool
	threshold   float64

	// device is nil when the controller state is unknown.
	device *view
}

// New creates a black, full brightness buffer for strip id. The
// controller is assumed to show the same until Invalidate is called.
func New(id uint8, count int, threshold float64) *Buffer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFillThreshold
	}
	return &Buffer{
		id:         id,
		pixels:     make([]color.RGB, count),
		brightness: MaxBrightness,
		threshold:  threshold,
		device: &view{
			pixels:     make([]color.RGB, count),
			brightness: MaxBrightness,
		},
	}
}

// ID returns the controller strip number.
func (b *Buffer) ID() uint8 { return b.id }

// Len returns the fixed pixel count.
func (b *Buffer) Len() int { return len(b.pixels) }

// Pixels returns a copy of the current pixels.
func (b *Buffer) Pixels() []color.RGB {
	return append([]color.RGB(nil), b.pixels...)
}

// Brightness returns the current global brightness.
func (b *Buffer) Brightness() uint8 { return b.brightness }

// Dirty reports whether the buffer holds changes the controller has not
// confirmed.
func (b *Buffer) Dirty() bool { return b.dirty }

// Fingerprint identifies the last applied profile pattern, empty after a
// direct pixel edit.
func (b *Buffer) Fingerprint() string { return b.fingerprint }

// SetAll paints every pixel.
func (b *Buffer) SetAll(c color.RGB) {
	for i := range b.pixels {
		if b.pixels[i] != c {
			b.pixels[i] = c
			b.dirty = true
		}
	}
	b.fingerprint = ""
}

// SetPixel paints one pixel.
func (b *Buffer) SetPixel(i int, c color.RGB) error {
	if i < 0 || i >= len(b.pixels) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(b.pixels))
	}
	if b.pixels[i] != c {
		b.pixels[i] = c
		b.dirty = true
		b.fingerprint = ""
	}
	return nil
}

// SetBrightness sets the global brightness, clamped to 0..255.
func (b *Buffer) SetBrightness(level int) {
	if level < 0 {
		level = 0
	}
	if level > MaxBrightness {
		level = MaxBrightness
	}
	if uint8(level) != b.brightness {
		b.brightness = uint8(level)
		b.dirty = true
	}
}

// ApplyProfile replaces the pixels with the profile expanded to the strip
// length. On error the buffer is left untouched.
func (b *Buffer) ApplyProfile(p *color.Profile) error {
	pixels, err := p.Expand(len(b.pixels))
	if err != nil {
		return err
	}
	for i, c := range pixels {
		if b.pixels[i] != c {
			b.pixels[i] = c
			b.dirty = true
		}
	}
	b.fingerprint = p.Fingerprint()
	return nil
}

// Invalidate forgets what the controller shows, so the next Diff is a
// full repaint.
func (b *Buffer) Invalidate() {
	b.device = nil
	b.dirty = true
}
