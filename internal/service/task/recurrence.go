package task

import (
	"time"

	"taskboard/internal/model"
)

// NextOccurrence computes the next due date strictly after the given one for
// a recurring task. It returns false when the pattern has ended or is
// malformed. Intervals below one are treated as one.
func NextOccurrence(p model.RecurrencePattern, after time.Time) (time.Time, bool) {
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch p.Type {
	case model.RecurrenceDaily:
		next = after.AddDate(0, 0, interval)
	case model.RecurrenceWeekly:
		next = nextWeekly(p, after, interval)
	case model.RecurrenceMonthly:
		next = after.AddDate(0, interval, 0)
		if p.DayOfMonth >= 1 && p.DayOfMonth <= 28 {
			next = time.Date(next.Year(), next.Month(), p.DayOfMonth,
				next.Hour(), next.Minute(), next.Second(), 0, next.Location())
		}
	case model.RecurrenceYearly:
		next = after.AddDate(interval, 0, 0)
	default:
		return time.Time{}, false
	}

	if p.EndDate != nil && next.After(*p.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// nextWeekly advances to the next listed weekday, skipping interval-1 weeks
// when the scan wraps past Saturday. Without a day list it advances whole
// weeks.
func nextWeekly(p model.RecurrencePattern, after time.Time, interval int) time.Time {
	if len(p.DaysOfWeek) == 0 {
		return after.AddDate(0, 0, 7*interval)
	}

	allowed := make(map[time.Weekday]bool, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		if d >= 0 && d <= 6 {
			allowed[time.Weekday(d)] = true
		}
	}
	if len(allowed) == 0 {
		return after.AddDate(0, 0, 7*interval)
	}

	next := after.AddDate(0, 0, 1)
	for i := 0; i < 7*interval+7; i++ {
		if allowed[next.Weekday()] {
			return next
		}
		if next.Weekday() == time.Saturday && interval > 1 {
			next = next.AddDate(0, 0, 7*(interval-1))
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}
