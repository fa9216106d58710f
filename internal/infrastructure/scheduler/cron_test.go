package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	expr, err := ParseCronExpression(EveryHour)
	require.NoError(t, err)
	assert.Equal(t, EveryHour, expr.String())

	_, err = ParseCronExpression("")
	assert.Error(t, err)

	_, err = ParseCronExpression("* * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("61 * * * *")
	assert.Error(t, err)

	_, err = ParseCronExpression("* 25 * * *")
	assert.Error(t, err)
}

func TestParseCronExpression_Fields(t *testing.T) {
	for _, preset := range []string{
		EveryMinute, Every5Minutes, Every15Minutes,
		Every30Minutes, EveryHour, EveryDayMidnight,
	} {
		_, err := ParseCronExpression(preset)
		assert.NoError(t, err, preset)
	}

	// Ranges and lists.
	_, err := ParseCronExpression("0 9-17 * * 1-5")
	assert.NoError(t, err)

	_, err = ParseCronExpression("0,30 * * * *")
	assert.NoError(t, err)
}

func TestCronExpression_Next(t *testing.T) {
	after := time.Date(2026, 3, 2, 10, 17, 30, 0, time.UTC)

	hourly := MustParseCronExpression(EveryHour)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), hourly.Next(after))

	every5 := MustParseCronExpression(Every5Minutes)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 20, 0, 0, time.UTC), every5.Next(after))

	midnight := MustParseCronExpression(EveryDayMidnight)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), midnight.Next(after))

	// Next never returns the boundary itself.
	onTheHour := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), hourly.Next(onTheHour))
}

func TestMustParseCronExpression_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustParseCronExpression("not a cron")
	})
}

func TestIntervalSchedule(t *testing.T) {
	schedule := NewIntervalSchedule(15 * time.Minute)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(15*time.Minute), schedule.Next(now))
	assert.NotEmpty(t, schedule.String())
}
