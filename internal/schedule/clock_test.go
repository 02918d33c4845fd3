package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Clock
		wantErr bool
	}{
		{name: "hh_mm", input: "06:30", want: Clock(6*time.Hour + 30*time.Minute)},
		{name: "single_digit_hour", input: "7:05", want: Clock(7*time.Hour + 5*time.Minute)},
		{name: "with_seconds", input: "23:59:59", want: Clock(23*time.Hour + 59*time.Minute + 59*time.Second)},
		{name: "end_of_day", input: "24:00", want: EndOfDay},
		{name: "seconds", input: "3600", want: Clock(time.Hour)},
		{name: "bad_minute", input: "12:60", wantErr: true},
		{name: "past_end_of_day", input: "24:01", wantErr: true},
		{name: "hour_25", input: "25:00", wantErr: true},
		{name: "seconds_out_of_range", input: "86401", wantErr: true},
		{name: "garbage", input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "06:30", Clock(6*time.Hour+30*time.Minute).String())
	assert.Equal(t, "23:59:59", Clock(23*time.Hour+59*time.Minute+59*time.Second).String())
	assert.Equal(t, "24:00", EndOfDay.String())
}

func TestDays(t *testing.T) {
	assert.Equal(t, "SMTWTFS", AllDays.Human())
	assert.Equal(t, "-MTWTF-", Weekdays.Human())
	assert.Equal(t, "S-----S", Weekend.Human())
	assert.Equal(t, Days(127), AllDays)

	assert.True(t, Monday.Has(time.Monday))
	assert.True(t, Sunday.Has(time.Sunday))
	assert.False(t, Weekdays.Has(time.Saturday))

	d, err := ParseDays("mon, Wed,fri")
	require.NoError(t, err)
	assert.Equal(t, Monday|Wednesday|Friday, d)

	_, err = ParseDays("someday")
	assert.Error(t, err)
}

func TestRoutine_YAML(t *testing.T) {
	src := `
id: evening
profile: warm
days: [weekdays, sat]
start: "18:00"
end: "23:59:59"
`
	var r Routine
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))
	assert.Equal(t, "warm", r.ProfileID)
	assert.Equal(t, Weekdays|Saturday, r.Days)
	assert.Equal(t, Clock(18*time.Hour), r.Start)
	assert.False(t, r.Disabled)
	assert.NoError(t, r.Validate())
	assert.Equal(t, "-MTWTFS 18:00-24:00", r.Window())

	var mask Routine
	require.NoError(t, yaml.Unmarshal([]byte("profile: p\ndays: 65\n"), &mask))
	assert.Equal(t, Monday|Sunday, mask.Days)
}
