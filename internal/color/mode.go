package color

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects how a profile's colors are stretched across a strip.
type Mode string

const (
	// ModeRepeat cycles through the colors: a b c a b c ...
	ModeRepeat Mode = "repeat"
	// ModeMirror walks forward then backward without doubling the ends: a b c b a b c ...
	ModeMirror Mode = "mirror"
	// ModeFixed requires exactly one color per pixel.
	ModeFixed Mode = "fixed"
	// ModeGradient blends neighbouring colors across the strip in Lab space.
	ModeGradient Mode = "gradient"
	// ModeRandom picks each pixel from the colors with a seeded generator,
	// so a profile always scatters the same way.
	ModeRandom Mode = "random"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeRepeat, ModeMirror, ModeFixed, ModeGradient, ModeRandom}

// ParseMode parses a mode name (case-insensitive). Empty means repeat.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeRepeat, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("color: unknown mode %q", s)
}

// Valid reports whether m is one of the closed set of modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// UnmarshalYAML implements yaml.Unmarshaler for Mode
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
