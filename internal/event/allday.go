package event

import "time"

// NormalizeAllDay stretches an all-day span to cover whole local days in loc:
// the start day from 00:00:00.000 and the end day until 23:59:59.999.
// Both results are in UTC.
func NormalizeAllDay(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	s := start.In(loc)
	e := end.In(loc)
	first := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	last := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return first.UTC(), last.UTC()
}
