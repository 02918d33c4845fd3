package schedule

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Days is a 7 bit weekday mask.
type Days uint8

const (
	Monday Days = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend  = Saturday | Sunday
	AllDays  = Weekdays | Weekend
)

var dayNames = map[string]Days{
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,
	"sun": Sunday, "sunday": Sunday,
	"weekdays": Weekdays,
	"weekend":  Weekend,
	"all":      AllDays,
	"daily":    AllDays,
}

// DayOf returns the mask bit for a weekday.
func DayOf(wd time.Weekday) Days {
	if wd == time.Sunday {
		return Sunday
	}
	return Monday << (wd - 1)
}

// Has reports whether wd is enabled.
func (d Days) Has(wd time.Weekday) bool {
	return d&DayOf(wd) != 0
}

// Human renders the mask Sunday first, "-" for disabled days.
func (d Days) Human() string {
	order := []struct {
		day    Days
		letter byte
	}{
		{Sunday, 'S'}, {Monday, 'M'}, {Tuesday, 'T'}, {Wednesday, 'W'},
		{Thursday, 'T'}, {Friday, 'F'}, {Saturday, 'S'},
	}
	var sb strings.Builder
	for _, o := range order {
		if d&o.day != 0 {
			sb.WriteByte(o.letter)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func (d Days) String() string {
	return d.Human()
}

// ParseDays parses a comma separated list of day names ("mon,wed",
// "weekdays", "all").
func ParseDays(s string) (Days, error) {
	var d Days
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		bit, ok := dayNames[name]
		if !ok {
			return 0, fmt.Errorf("schedule: unknown day %q", part)
		}
		d |= bit
	}
	return d, nil
}

// UnmarshalYAML accepts an integer mask, a day list string or a sequence
// of day names.
func (d *Days) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		parsed, err := ParseDays(strings.Join(names, ","))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case yaml.ScalarNode:
		var n int
		if err := value.Decode(&n); err == nil {
			if n < 0 || n > int(AllDays) {
				return fmt.Errorf("schedule: day mask %d out of range", n)
			}
			*d = Days(n)
			return nil
		}
		parsed, err := ParseDays(value.Value)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("schedule: invalid days at line %d", value.Line)
}
