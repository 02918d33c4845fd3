// Package schedule resolves which lighting routine is active at a given
// instant. Resolution is pure: it reads the routine list and the clock
// passed in and keeps no state between calls.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EndOfDay is the exclusive upper bound of a day, 24:00.
const EndOfDay = Clock(24 * time.Hour)

// snapThreshold is 23:59:59. Ends at or past it are treated as 24:00 so a
// window written as 00:00-23:59:59 covers the final second too.
const snapThreshold = Clock(23*time.Hour + 59*time.Minute + 59*time.Second)

// ErrInvalidClock is returned for unparsable or out of range times of day.
var ErrInvalidClock = errors.New("schedule: invalid time of day")

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Clock is a time of day as an offset from local midnight.
type Clock time.Duration

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

// ParseClock parses "HH:MM", "HH:MM:SS" or a plain number of seconds.
// "24:00" is accepted as end of day.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)

	if matches := clockPattern.FindStringSubmatch(s); matches != nil {
		hour, _ := strconv.Atoi(matches[1])
		min, _ := strconv.Atoi(matches[2])
		sec := 0
		if matches[3] != "" {
			sec, _ = strconv.Atoi(matches[3])
		}
		if min > 59 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		if hour > 24 || (hour == 24 && (min != 0 || sec != 0)) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		return Clock(time.Duration(hour)*time.Hour +
			time.Duration(min)*time.Minute +
			time.Duration(sec)*time.Second), nil
	}

	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return ClockFromSeconds(secs)
}

// ClockFromSeconds converts seconds since midnight, 0 to 86400 inclusive.
func ClockFromSeconds(secs int) (Clock, error) {
	if secs < 0 || secs > 86400 {
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidClock, secs)
	}
	return Clock(time.Duration(secs) * time.Second), nil
}

// Seconds returns the whole seconds since midnight.
func (c Clock) Seconds() int {
	return int(time.Duration(c) / time.Second)
}

// snapEnd rounds ends in the last second of the day up to 24:00.
func (c Clock) snapEnd() Clock {
	if c >= snapThreshold {
		return EndOfDay
	}
	return c
}

func (c Clock) String() string {
	d := time.Duration(c)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MarshalYAML encodes the clock as "HH:MM[:SS]".
func (c Clock) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Clock
func (c *Clock) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText encodes the clock for JSON state.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the clock from JSON state.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
