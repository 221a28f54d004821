package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTOD(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func mustDate(t *testing.T, s string, loc *time.Location) time.Time {
	t.Helper()
	d, err := ParseDate(s, loc)
	require.NoError(t, err)
	return d
}

func TestPlanSlotIntervals_SingleDayWindow(t *testing.T) {
	day := mustDate(t, "2024-01-01", time.UTC)

	intervals, err := PlanSlotIntervals(day, day, mustTOD(t, "09:00"), mustTOD(t, "10:00"), 30*time.Minute, time.UTC)
	require.NoError(t, err)

	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), intervals[0].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), intervals[0].End)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), intervals[1].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), intervals[1].End)
}

func TestPlanSlotIntervals_StrictlyIncreasingNonOverlapping(t *testing.T) {
	from := mustDate(t, "2024-03-01", time.UTC)
	to := mustDate(t, "2024-03-03", time.UTC)

	intervals, err := PlanSlotIntervals(from, to, mustTOD(t, "08:00"), mustTOD(t, "12:00"), 30*time.Minute, time.UTC)
	require.NoError(t, err)
	require.Len(t, intervals, 3*8)

	for i, iv := range intervals {
		assert.Equal(t, 30*time.Minute, iv.End.Sub(iv.Start))
		if i > 0 {
			assert.False(t, iv.Start.Before(intervals[i-1].End), "interval %d overlaps its predecessor", i)
		}
	}
}

func TestPlanSlotIntervals_NormalizesToUTC(t *testing.T) {
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	day := mustDate(t, "2024-01-01", dhaka)

	intervals, err := PlanSlotIntervals(day, day, mustTOD(t, "09:00"), mustTOD(t, "09:30"), 30*time.Minute, dhaka)
	require.NoError(t, err)

	require.Len(t, intervals, 1)
	assert.Equal(t, time.UTC, intervals[0].Start.Location())
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), intervals[0].Start)
}

func TestPlanSlotIntervals_DropsPartialTail(t *testing.T) {
	day := mustDate(t, "2024-01-01", time.UTC)

	intervals, err := PlanSlotIntervals(day, day, mustTOD(t, "09:00"), mustTOD(t, "10:15"), 30*time.Minute, time.UTC)
	require.NoError(t, err)

	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), intervals[1].End)
}

func TestPlanSlotIntervals_Validation(t *testing.T) {
	jan1 := mustDate(t, "2024-01-01", time.UTC)
	jan2 := mustDate(t, "2024-01-02", time.UTC)

	tests := []struct {
		name        string
		start, end  time.Time
		from, to    string
		granularity time.Duration
	}{
		{"end date before start date", jan2, jan1, "09:00", "10:00", 30 * time.Minute},
		{"end time equals start time", jan1, jan1, "09:00", "09:00", 30 * time.Minute},
		{"end time before start time", jan1, jan1, "10:00", "09:00", 30 * time.Minute},
		{"zero granularity", jan1, jan1, "09:00", "10:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanSlotIntervals(tt.start, tt.end, mustTOD(t, tt.from), mustTOD(t, tt.to), tt.granularity, time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("17:45")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 17, Minute: 45}, tod)
	assert.Equal(t, "17:45", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}
