package recurrence

import "time"

// NextOccurrence returns the first date strictly after from on which rule
// produces an occurrence. The result is a calendar day in from's location.
//
// Month and year overflow clamps to the last day of the target month: a
// series anchored on the 31st falls on Feb 28 (or 29) and returns to the 31st
// in March. NextOccurrence never fails for a rule built by NewRule.
func NextOccurrence(rule Rule, from time.Time) time.Time {
	from = Day(from)
	anchor := rule.anchorOr(from)
	n := rule.interval
	if n < 1 {
		n = 1
	}

	switch rule.freq {
	case Weekly:
		if rule.weekdays.Empty() {
			return from.AddDate(0, 0, 7*n)
		}
		return nextSelectedWeekday(rule.weekdays, n, anchor, from)
	case Monthly:
		return addMonths(from, n, anchor.Day())
	case Yearly:
		return clampedDate(from.Year()+n, anchor.Month(), anchor.Day(), from.Location())
	default:
		return from.AddDate(0, 0, n)
	}
}

// nextSelectedWeekday walks the rest of from's week when that week is an
// active interval window, then jumps to the next active window and takes its
// first selected day. Weeks start on Monday.
func nextSelectedWeekday(days WeekdaySet, interval int, anchor, from time.Time) time.Time {
	week := startOfWeek(from)
	offset := floorMod(daysBetween(startOfWeek(anchor), week)/7, interval)

	if offset == 0 {
		end := week.AddDate(0, 0, 7)
		for d := from.AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
			if days.Has(d.Weekday()) {
				return d
			}
		}
	}

	window := week.AddDate(0, 0, 7*(interval-offset))
	for i := 0; i < 7; i++ {
		d := window.AddDate(0, 0, i)
		if days.Has(d.Weekday()) {
			return d
		}
	}
	// Unreachable for a non-empty set.
	return window
}

// Upcoming lists at most limit future due dates of a series whose current
// occurrence is on from with completed occurrences behind it. The list stops
// where completing the occurrences one by one would end the series.
func Upcoming(rule Rule, from time.Time, completed, limit int) []time.Time {
	if limit <= 0 {
		return nil
	}
	out := make([]time.Time, 0, limit)
	cur := Day(from)
	for len(out) < limit {
		completed++
		next := NextOccurrence(rule, cur)
		if HasEnded(rule, completed, next) {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
