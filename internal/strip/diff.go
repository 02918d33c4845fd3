package strip

import (
	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

// Diff returns the ops that bring the controller from its confirmed view
// to the current buffer. The last op carries the apply-now flag. Diff does
// not change the buffer; call Confirm once the ops were sent.
func (b *Buffer) Diff() []wire.Op {
	var ops []wire.Op

	if b.device == nil || b.device.brightness != b.brightness {
		ops = append(ops, wire.SetBrightness{Strip: b.id, Level: b.brightness})
	}

	changed := b.changed()
	if len(changed) > 0 {
		fill, uniform := b.dominant()
		if uniform || float64(len(changed)) > b.threshold*float64(len(b.pixels)) {
			ops = append(ops, wire.FillStrip{Strip: b.id, Color: fill})
			for i, c := range b.pixels {
				if c != fill {
					ops = append(ops, b.setPixel(i, c))
				}
			}
		} else {
			for _, i := range changed {
				ops = append(ops, b.setPixel(i, b.pixels[i]))
			}
		}
	}

	if len(ops) == 0 {
		return nil
	}
	ops[len(ops)-1], _ = wire.WithApply(ops[len(ops)-1])
	return ops
}

// Confirm folds ops that reached the controller into the device view and
// clears the dirty flag once the view matches the buffer.
func (b *Buffer) Confirm(ops []wire.Op) {
	if b.device == nil {
		b.device = &view{pixels: make([]color.RGB, len(b.pixels)), brightness: MaxBrightness}
	}
	for _, op := range ops {
		switch o := op.(type) {
		case wire.SetBrightness:
			if o.Strip == b.id {
				b.device.brightness = o.Level
			}
		case wire.FillStrip:
			if o.Strip == b.id {
				for i := range b.device.pixels {
					b.device.pixels[i] = o.Color
				}
			}
		case wire.SetPixel:
			if o.Strip == b.id && int(o.Index) < len(b.device.pixels) {
				b.device.pixels[o.Index] = o.Color
			}
		}
	}
	b.dirty = !b.inSync()
}

func (b *Buffer) setPixel(i int, c color.RGB) wire.Op {
	return wire.SetPixel{Strip: b.id, Index: uint16(i), Color: c}
}

// changed lists the pixel indexes that differ from the device view.
func (b *Buffer) changed() []int {
	var out []int
	for i, c := range b.pixels {
		if b.device == nil || b.device.pixels[i] != c {
			out = append(out, i)
		}
	}
	return out
}

// dominant returns the most frequent pixel color and
// whether every pixel has that color.
func (b *Buffer) dominant() (color.RGB, bool) {
	if len(b.pixels) == 0 {
		return color.Black, true
	}
	counts := make(map[color.RGB]int)
	best := b.pixels[0]
	for _, c := range b.pixels {
		counts[c]++
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best, counts[best] == len(b.pixels)
}

func (b *Buffer) inSync() bool {
	if b.device == nil || b.device.brightness != b.brightness {
		return false
	}
	for i, c := range b.pixels {
		if b.device.pixels[i] != c {
			return false
		}
	}
	return true
}
