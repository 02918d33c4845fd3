// Package color holds RGB values, color profiles and the pattern
// expansion that turns a short color list into a full strip of pixels.
package color

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// RGB is a single 24-bit pixel color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Predefined colors
var (
	Black  = RGB{0x00, 0x00, 0x00}
	Red    = RGB{0xFF, 0x00, 0x00}
	Yellow = RGB{0xFF, 0x96, 0x00}
	Green  = RGB{0x00, 0xFF, 0x00}
	Cyan   = RGB{0x00, 0xFF, 0xFF}
	Blue   = RGB{0x00, 0x00, 0xFF}
	Purple = RGB{0xB4, 0x00, 0xFF}
	White  = RGB{0xFF, 0xFF, 0xFF}
)

// FromUint32 unpacks a 0xRRGGBB value.
func FromUint32(v uint32) RGB {
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Uint32 packs the color as 0xRRGGBB.
func (c RGB) Uint32() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

// colorful converts to the go-colorful representation used for blending.
func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// ParseRGB parses "#rrggbb", "rrggbb", "0xrrggbb" or a decimal integer.
func ParseRGB(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGB{}, fmt.Errorf("color: empty value")
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "#"):
		return parseHex(lower)
	case strings.HasPrefix(lower, "0x"):
		return parseHex("#" + lower[2:])
	case len(lower) == 6 && isHex(lower):
		return parseHex("#" + lower)
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color: invalid value %q", s)
	}
	if v > 0xFFFFFF {
		return RGB{}, fmt.Errorf("color: value %d out of range", v)
	}
	return FromUint32(uint32(v)), nil
}

func parseHex(s string) (RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("color: invalid hex %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

func isHex(s string) bool {
	for _, ch := range s {
		if !strings.ContainsRune("0123456789abcdef", ch) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the color as a hex string.
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON accepts a hex string or a packed integer.
func (c *RGB) UnmarshalJSON(data []byte) error {
	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		*c = FromUint32(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML encodes the color as a hex string.
func (c RGB) MarshalYAML() (interface{}, error) {
	return c.Hex(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for RGB
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
