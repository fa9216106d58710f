package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf_CrossesUTCMidnight(t *testing.T) {
	// 2025-12-19 23:30 UTC is already 2025-12-20 07:30 in school time.
	utcEvening := time.Date(2025, 12, 19, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Day("2025-12-20"), DayOf(utcEvening))

	// 2025-12-20 15:59 UTC is still 2025-12-20 23:59 in school time.
	utcAfternoon := time.Date(2025, 12, 20, 15, 59, 0, 0, time.UTC)
	assert.Equal(t, Day("2025-12-20"), DayOf(utcAfternoon))

	// One minute later the school day rolls over.
	assert.Equal(t, Day("2025-12-21"), DayOf(utcAfternoon.Add(time.Minute)))
}

func TestDay_IsValid(t *testing.T) {
	tests := []struct {
		day   Day
		valid bool
	}{
		{"2025-12-20", true},
		{"2025-01-01", true},
		{"2025-13-01", false},
		{"2025-02-30", false},
		{"20251220", false},
		{"2025-12-20T00:00:00Z", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.day.IsValid(), "day %q", tt.day)
	}
}

func TestDay_Bounds(t *testing.T) {
	start, end, err := Day("2025-12-20").Bounds()
	require.NoError(t, err)

	assert.Equal(t, DateTime(2025, 12, 20, 0, 0, 0), start)
	assert.Equal(t, DateTime(2025, 12, 21, 0, 0, 0), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = Day("not-a-day").Bounds()
	assert.Error(t, err)
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 12, 19, 20, 0, 0, 0, time.UTC) // school: Dec 20 04:00
	b := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC) // school: Dec 20 18:00
	assert.True(t, SameDay(a, b))

	c := time.Date(2025, 12, 19, 10, 0, 0, 0, time.UTC) // school: Dec 19 18:00
	assert.False(t, SameDay(a, c))
}

func TestStartOfDay(t *testing.T) {
	instant := time.Date(2025, 6, 1, 18, 45, 12, 0, time.UTC)
	start := StartOfDay(instant)

	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, DayOf(instant), DayOf(start))
}
