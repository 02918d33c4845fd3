package schedule

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode controls how a schedule picks its routine.
type Mode string

const (
	// ModeOff never activates a routine.
	ModeOff Mode = "off"
	// ModeOn forces the first routine regardless of time.
	ModeOn Mode = "on"
	// ModeAuto follows the routine windows.
	ModeAuto Mode = "auto"
)

// ParseMode parses a schedule mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeOn:
		return ModeOn, nil
	case ModeOff:
		return ModeOff, nil
	}
	return "", fmt.Errorf("schedule: unknown mode %q", s)
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

// Schedule owns the ordered routines for one strip manager.
type Schedule struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Manager    string    `json:"manager" yaml:"manager"`
	Mode       Mode      `json:"mode" yaml:"mode"`
	Brightness *uint8    `json:"brightness,omitempty" yaml:"brightness,omitempty"`
	Routines   []Routine `json:"routines" yaml:"routines"`
}

// Validate checks every routine.
func (s *Schedule) Validate() error {
	if s.Manager == "" {
		return fmt.Errorf("schedule: %q has no manager", s.Name)
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	for i := range s.Routines {
		if err := s.Routines[i].Validate(); err != nil {
			return fmt.Errorf("schedule %q: %w", s.Name, err)
		}
	}
	return nil
}

// Resolve returns the routine active at now, if any.
//
// Among matching routines the one with the latest start wins. Equal starts
// go to the routine stored last. The result depends only on now and the
// routine list.
func (s *Schedule) Resolve(now time.Time) (Routine, bool) {
	switch s.Mode {
	case ModeOff:
		return Routine{}, false
	case ModeOn:
		if len(s.Routines) == 0 {
			return Routine{}, false
		}
		return s.Routines[0].Clone(), true
	}

	best := -1
	for i := range s.Routines {
		r := &s.Routines[i]
		if !r.Contains(now) {
			continue
		}
		if best < 0 || r.Start >= s.Routines[best].Start {
			best = i
		}
	}
	if best < 0 {
		return Routine{}, false
	}
	return s.Routines[best].Clone(), true
}

// EffectiveBrightness picks the brightness to show: routine override, then
// schedule override, then fallback.
func (s *Schedule) EffectiveBrightness(r Routine, fallback uint8) uint8 {
	if r.Brightness != nil {
		return *r.Brightness
	}
	if s.Brightness != nil {
		return *s.Brightness
	}
	return fallback
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	c := *s
	if s.Brightness != nil {
		b := *s.Brightness
		c.Brightness = &b
	}
	c.Routines = make([]Routine, len(s.Routines))
	for i, r := range s.Routines {
		c.Routines[i] = r.Clone()
	}
	return &c
}
