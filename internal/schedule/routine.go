package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a routine starts after it ends.
var ErrInvalidWindow = errors.New("schedule: routine start after end")

// Routine binds a color profile to a weekly time window.
type Routine struct {
	ID        string `json:"id" yaml:"id"`
	ProfileID string `json:"profile" yaml:"profile"`
	Days      Days   `json:"days" yaml:"days"`
	Start     Clock  `json:"start" yaml:"start"`
	End       Clock  `json:"end" yaml:"end"`
	// Disabled routines never match.
	Disabled   bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Brightness *uint8 `json:"brightness,omitempty" yaml:"brightness,omitempty"`
}

// Validate checks the window bounds.
func (r *Routine) Validate() error {
	if r.ProfileID == "" {
		return fmt.Errorf("schedule: routine %q has no profile", r.ID)
	}
	if r.Start < 0 || r.End > EndOfDay {
		return fmt.Errorf("%w: routine %q window %s-%s", ErrInvalidClock, r.ID, r.Start, r.End)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: routine %q window %s-%s", ErrInvalidWindow, r.ID, r.Start, r.End)
	}
	if r.Days&^AllDays != 0 {
		return fmt.Errorf("schedule: routine %q day mask %d out of range", r.ID, r.Days)
	}
	return nil
}

// Contains reports whether now falls inside [Start, End) on an enabled day.
// A zero width window never matches.
func (r *Routine) Contains(now time.Time) bool {
	if r.Disabled || !r.Days.Has(now.Weekday()) {
		return false
	}
	if r.Start >= r.End {
		return false
	}
	end := r.End.snapEnd()
	tod := ClockOf(now)
	return tod >= r.Start && tod < end
}

// Window renders the routine for logs, e.g. "SMTWTFS 00:00-24:00".
func (r *Routine) Window() string {
	return fmt.Sprintf("%s %s-%s", r.Days.Human(), r.Start, r.End.snapEnd())
}

// Clone returns a copy that does not share the brightness pointer.
func (r Routine) Clone() Routine {
	if r.Brightness != nil {
		b := *r.Brightness
		r.Brightness = &b
	}
	return r
}
