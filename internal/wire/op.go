// Package wire implements the framed byte protocol spoken between the
// host and a strip controller.
//
// A frame is the sync byte 0x7F, an opcode and a payload whose length is
// fixed by the opcode. Multi-byte fields are big-endian.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/huereka/huereka/internal/color"
)

// Sync starts every frame.
const Sync byte = 0x7F

// Opcode selects the operation and its payload length.
type Opcode byte

const (
	OpInitStrip     Opcode = 1
	OpSetBrightness Opcode = 32
	OpFillStrip     Opcode = 33
	OpSetPixel      Opcode = 34
	OpRender        Opcode = 35
	OpTestAnimation Opcode = 77
	OpReset         Opcode = 99
)

var payloadLen = map[Opcode]int{
	OpInitStrip:     7,
	OpSetBrightness: 3,
	OpFillStrip:     5,
	OpSetPixel:      7,
	OpRender:        1,
	OpTestAnimation: 2,
	OpReset:         0,
}

// PayloadLen returns the fixed payload size for a known opcode.
func PayloadLen(code Opcode) (int, bool) {
	n, ok := payloadLen[code]
	return n, ok
}

func (c Opcode) String() string {
	switch c {
	case OpInitStrip:
		return "init_strip"
	case OpSetBrightness:
		return "set_brightness"
	case OpFillStrip:
		return "fill_strip"
	case OpSetPixel:
		return "set_pixel"
	case OpRender:
		return "render"
	case OpTestAnimation:
		return "test_animation"
	case OpReset:
		return "reset"
	}
	return fmt.Sprintf("unknown(%d)", byte(c))
}

// Op is one decoded or to-be-encoded operation. The set of
// implementations is closed to this package.
type Op interface {
	Opcode() Opcode
	appendPayload(b []byte) []byte
}

// InitStrip registers a strip on a controller pin. Strips are numbered by
// the controller in registration order.
type InitStrip struct {
	Type uint8
	Pin  uint8
	// Count is the number of pixels on the strip.
	Count uint16
	// RefreshMicros is the minimum interval between renders.
	RefreshMicros uint16
	// Animation runs once after registration, 0 for none.
	Animation uint8
}

func (InitStrip) Opcode() Opcode { return OpInitStrip }

func (o InitStrip) appendPayload(b []byte) []byte {
	b = append(b, o.Type, o.Pin)
	b = binary.BigEndian.AppendUint16(b, o.Count)
	b = binary.BigEndian.AppendUint16(b, o.RefreshMicros)
	return append(b, o.Animation)
}

// SetBrightness sets the strip's global brightness.
type SetBrightness struct {
	Strip uint8
	Level uint8
	Apply bool
}

func (SetBrightness) Opcode() Opcode { return OpSetBrightness }

func (o SetBrightness) appendPayload(b []byte) []byte {
	return append(b, o.Strip, o.Level, boolByte(o.Apply))
}

// FillStrip paints every pixel of a strip.
type FillStrip struct {
	Strip uint8
	Color color.RGB
	Apply bool
}

func (FillStrip) Opcode() Opcode { return OpFillStrip }

func (o FillStrip) appendPayload(b []byte) []byte {
	return append(b, o.Strip, o.Color.R, o.Color.G, o.Color.B, boolByte(o.Apply))
}

// SetPixel paints one pixel.
type SetPixel struct {
	Strip uint8
	Index uint16
	Color color.RGB
	Apply bool
}

func (SetPixel) Opcode() Opcode { return OpSetPixel }

func (o SetPixel) appendPayload(b []byte) []byte {
	b = append(b, o.Strip)
	b = binary.BigEndian.AppendUint16(b, o.Index)
	return append(b, o.Color.R, o.Color.G, o.Color.B, boolByte(o.Apply))
}

// Render asks the controller to show pending changes.
type Render struct {
	Strip uint8
}

func (Render) Opcode() Opcode { return OpRender }

func (o Render) appendPayload(b []byte) []byte {
	return append(b, o.Strip)
}

// TestAnimation runs a built-in animation on a strip.
type TestAnimation struct {
	Strip     uint8
	Animation uint8
}

func (TestAnimation) Opcode() Opcode { return OpTestAnimation }

func (o TestAnimation) appendPayload(b []byte) []byte {
	return append(b, o.Strip, o.Animation)
}

// Reset clears every strip on the controller.
type Reset struct{}

func (Reset) Opcode() Opcode { return OpReset }

func (Reset) appendPayload(b []byte) []byte { return b }

// Unknown is returned by the decoder for opcodes outside the table.
// It carries no payload and cannot be encoded.
type Unknown struct {
	Code byte
}

func (o Unknown) Opcode() Opcode { return Opcode(o.Code) }

func (Unknown) appendPayload(b []byte) []byte { return b }

// WithApply returns op with its apply-now flag set, and whether op
// carries such a flag at all.
func WithApply(op Op) (Op, bool) {
	switch o := op.(type) {
	case SetBrightness:
		o.Apply = true
		return o, true
	case FillStrip:
		o.Apply = true
		return o, true
	case SetPixel:
		o.Apply = true
		return o, true
	}
	return op, false
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func parse(code Opcode, p []byte) Op {
	switch code {
	case OpInitStrip:
		return InitStrip{
			Type:          p[0],
			Pin:           p[1],
			Count:         binary.BigEndian.Uint16(p[2:4]),
			RefreshMicros: binary.BigEndian.Uint16(p[4:6]),
			Animation:     p[6],
		}
	case OpSetBrightness:
		return SetBrightness{Strip: p[0], Level: p[1], Apply: p[2] != 0}
	case OpFillStrip:
		return FillStrip{Strip: p[0], Color: color.RGB{R: p[1], G: p[2], B: p[3]}, Apply: p[4] != 0}
	case OpSetPixel:
		return SetPixel{
			Strip: p[0],
			Index: binary.BigEndian.Uint16(p[1:3]),
			Color: color.RGB{R: p[3], G: p[4], B: p[5]},
			Apply: p[6] != 0,
		}
	case OpRender:
		return Render{Strip: p[0]}
	case OpTestAnimation:
		return TestAnimation{Strip: p[0], Animation: p[1]}
	case OpReset:
		return Reset{}
	}
	return Unknown{Code: byte(code)}
}
