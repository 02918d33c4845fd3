package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

// 2024-01-15 is a Monday.
func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 15, hour, min, sec, 0, time.UTC)
}

func TestResolve_LatestStartWins(t *testing.T) {
	early := Routine{ID: "early", ProfileID: "a", Days: AllDays, Start: mustClock(t, "08:00"), End: mustClock(t, "20:00")}
	late := Routine{ID: "late", ProfileID: "b", Days: AllDays, Start: mustClock(t, "12:00"), End: mustClock(t, "18:00")}

	orders := [][]Routine{{early, late}, {late, early}}
	for _, routines := range orders {
		s := &Schedule{Manager: "m", Routines: routines}
		for i := 0; i < 3; i++ {
			got, ok := s.Resolve(at(13, 0, 0))
			require.True(t, ok)
			assert.Equal(t, "late", got.ID)
		}
	}
}

func TestResolve_EqualStartLastStoredWins(t *testing.T) {
	first := Routine{ID: "first", ProfileID: "a", Days: AllDays, Start: mustClock(t, "10:00"), End: mustClock(t, "20:00")}
	second := Routine{ID: "second", ProfileID: "b", Days: AllDays, Start: mustClock(t, "10:00"), End: mustClock(t, "12:00")}

	s := &Schedule{Manager: "m", Routines: []Routine{first, second}}
	got, ok := s.Resolve(at(11, 0, 0))
	require.True(t, ok)
	assert.Equal(t, "second", got.ID)

	s = &Schedule{Manager: "m", Routines: []Routine{second, first}}
	got, ok = s.Resolve(at(11, 0, 0))
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}

func TestResolve_NoMatch(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
		now      time.Time
	}{
		{
			name:     "no_routines",
			schedule: &Schedule{Manager: "m"},
			now:      at(12, 0, 0),
		},
		{
			name: "outside_window",
			schedule: &Schedule{Manager: "m", Routines: []Routine{
				{ID: "r", ProfileID: "p", Days: AllDays, Start: Clock(8 * time.Hour), End: Clock(9 * time.Hour)},
			}},
			now: at(9, 0, 0),
		},
		{
			name: "wrong_day",
			schedule: &Schedule{Manager: "m", Routines: []Routine{
				{ID: "r", ProfileID: "p", Days: Weekend, Start: 0, End: EndOfDay},
			}},
			now: at(12, 0, 0),
		},
		{
			name: "zero_width",
			schedule: &Schedule{Manager: "m", Routines: []Routine{
				{ID: "r", ProfileID: "p", Days: AllDays, Start: Clock(12 * time.Hour), End: Clock(12 * time.Hour)},
			}},
			now: at(12, 0, 0),
		},
		{
			name: "disabled_routine",
			schedule: &Schedule{Manager: "m", Routines: []Routine{
				{ID: "r", ProfileID: "p", Days: AllDays, Start: 0, End: EndOfDay, Disabled: true},
			}},
			now: at(12, 0, 0),
		},
		{
			name: "schedule_off",
			schedule: &Schedule{Manager: "m", Mode: ModeOff, Routines: []Routine{
				{ID: "r", ProfileID: "p", Days: AllDays, Start: 0, End: EndOfDay},
			}},
			now: at(12, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, ok := tt.schedule.Resolve(tt.now)
				assert.False(t, ok)
			}
		})
	}
}

func TestResolve_WindowIsHalfOpen(t *testing.T) {
	s := &Schedule{Manager: "m", Routines: []Routine{
		{ID: "r", ProfileID: "p", Days: AllDays, Start: mustClock(t, "08:00"), End: mustClock(t, "09:00")},
	}}

	_, ok := s.Resolve(at(8, 0, 0))
	assert.True(t, ok, "start is inclusive")

	_, ok = s.Resolve(time.Date(2024, 1, 15, 8, 59, 59, 999999999, time.UTC))
	assert.True(t, ok)

	_, ok = s.Resolve(at(9, 0, 0))
	assert.False(t, ok, "end is exclusive")
}

func TestResolve_EndOfDaySnap(t *testing.T) {
	s := &Schedule{Manager: "m", Routines: []Routine{
		{ID: "all", ProfileID: "p", Days: AllDays, Start: 0, End: mustClock(t, "23:59:59")},
	}}

	for _, now := range []time.Time{
		at(0, 0, 0),
		at(23, 59, 59),
		time.Date(2024, 1, 21, 23, 59, 59, 999999999, time.UTC),
	} {
		got, ok := s.Resolve(now)
		require.True(t, ok, now.String())
		assert.Equal(t, "all", got.ID)
	}
}

func TestRoutine_ZeroWidthNeverMatches(t *testing.T) {
	for _, clock := range []string{"00:00", "12:30", "23:59:59"} {
		r := Routine{ID: "r", ProfileID: "p", Days: AllDays, Start: mustClock(t, clock), End: mustClock(t, clock)}
		require.NoError(t, r.Validate())

		start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.Start))
		for _, now := range []time.Time{start, start.Add(500 * time.Nanosecond), start.Add(time.Second - 1)} {
			assert.False(t, r.Contains(now), "%s at %s", clock, now.Format("15:04:05.000000000"))
		}
	}
}

func TestResolve_ForcedOnPicksFirst(t *testing.T) {
	s := &Schedule{Manager: "m", Mode: ModeOn, Routines: []Routine{
		{ID: "first", ProfileID: "p", Days: Sunday, Start: Clock(time.Hour), End: Clock(2 * time.Hour)},
		{ID: "second", ProfileID: "q", Days: AllDays, Start: 0, End: EndOfDay},
	}}
	got, ok := s.Resolve(at(12, 0, 0))
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}

func TestResolve_ReturnsCopy(t *testing.T) {
	b := uint8(10)
	s := &Schedule{Manager: "m", Routines: []Routine{
		{ID: "r", ProfileID: "p", Days: AllDays, Start: 0, End: EndOfDay, Brightness: &b},
	}}
	got, ok := s.Resolve(at(12, 0, 0))
	require.True(t, ok)
	*got.Brightness = 200
	assert.Equal(t, uint8(10), *s.Routines[0].Brightness)
}

func TestEffectiveBrightness(t *testing.T) {
	rb, sb := uint8(10), uint8(20)
	s := &Schedule{Brightness: &sb}

	assert.Equal(t, uint8(10), s.EffectiveBrightness(Routine{Brightness: &rb}, 30))
	assert.Equal(t, uint8(20), s.EffectiveBrightness(Routine{}, 30))
	assert.Equal(t, uint8(30), (&Schedule{}).EffectiveBrightness(Routine{}, 30))
}

func TestValidate_RejectsInvertedWindow(t *testing.T) {
	s := &Schedule{Name: "night", Manager: "m", Routines: []Routine{
		{ID: "r", ProfileID: "p", Days: AllDays, Start: mustClock(t, "22:00"), End: mustClock(t, "06:00")},
	}}
	assert.ErrorIs(t, s.Validate(), ErrInvalidWindow)
}
