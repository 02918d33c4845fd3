package scheduler

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/schedule"
)

// Catalog is the read side of catalog.Catalog.
type Catalog interface {
	SchedulesFor(manager string) []*schedule.Schedule
	Profile(id string) (*color.Profile, error)
}

// Decision is what one manager should show at a point in time.
type Decision struct {
	Manager    string
	Schedule   string
	Routine    string
	Profile    *color.Profile
	Brightness uint8
	// Missing is set when the routine names a profile that no longer exists.
	Missing string
}

// Off reports whether the decision blanks the strip.
func (d Decision) Off() bool {
	return d.Profile == nil || d.Profile.IsOff()
}

// key identifies the rendered result. Decisions with equal keys paint the
// same pixels at the same brightness.
func (d Decision) key() string {
	if d.Off() {
		return color.OffProfileID
	}
	return d.Profile.Fingerprint() + "@" + strconv.Itoa(int(d.Brightness))
}

// Resolve picks the profile for manager at now. The manager's schedules
// are walked in catalog order and the last one with an active routine
// wins. No active routine, or a routine whose profile is gone, resolves
// to off.
func Resolve(cat Catalog, manager string, fallback uint8, now time.Time) Decision {
	d := Decision{Manager: manager, Profile: color.Off(), Brightness: fallback}

	var winner *schedule.Schedule
	var routine schedule.Routine
	for _, s := range cat.SchedulesFor(manager) {
		if r, ok := s.Resolve(now); ok {
			winner, routine = s, r
		}
	}
	if winner == nil {
		return d
	}

	d.Schedule = winner.ID
	d.Routine = routine.ID
	d.Brightness = winner.EffectiveBrightness(routine, fallback)

	p, err := cat.Profile(routine.ProfileID)
	if err != nil {
		log.Warn().
			Str("manager", manager).
			Str("schedule", winner.ID).
			Str("routine", routine.ID).
			Str("profile", routine.ProfileID).
			Msg("Routine profile missing, falling back to off")
		d.Missing = routine.ProfileID
		return d
	}
	d.Profile = p
	return d
}
