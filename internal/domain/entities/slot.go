package entities

import (
	"fmt"
	"time"
)

// DefaultSlotGranularity is the length of a generated slot when none is configured
const DefaultSlotGranularity = 30 * time.Minute

// TimeSlot is a discrete, immutable interval eligible for booking.
// StartTime and EndTime are always stored in UTC.
type TimeSlot struct {
	ID        string    `json:"id" db:"id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Interval is a candidate [Start, End) pair produced by slot planning
type Interval struct {
	Start time.Time
	End   time.Time
}

// TimeOfDay is a wall-clock time within a day, minute precision
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "15:04"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// String formats the time of day as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseDate parses "2006-01-02" as midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// PlanSlotIntervals lists every [start, start+granularity) interval for each day in
// [startDate, endDate] between the daily start and end times, interpreted in loc and
// returned in UTC. An interval that would run past the daily end time is not emitted.
func PlanSlotIntervals(startDate, endDate time.Time, from, to TimeOfDay, granularity time.Duration, loc *time.Location) ([]Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	if granularity <= 0 {
		return nil, fmt.Errorf("granularity must be positive")
	}
	if to.minutes() <= from.minutes() {
		return nil, fmt.Errorf("end time %s must be after start time %s", to, from)
	}

	first := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	last := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)
	if last.Before(first) {
		return nil, fmt.Errorf("end date %s is before start date %s", last.Format("2006-01-02"), first.Format("2006-01-02"))
	}

	var intervals []Interval
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), from.Hour, from.Minute, 0, 0, loc)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), to.Hour, to.Minute, 0, 0, loc)

		for start := dayStart; !start.Add(granularity).After(dayEnd); start = start.Add(granularity) {
			intervals = append(intervals, Interval{
				Start: start.UTC(),
				End:   start.Add(granularity).UTC(),
			})
		}
	}
	return intervals, nil
}
