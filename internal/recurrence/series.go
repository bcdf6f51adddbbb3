package recurrence

import "time"

// HasEnded reports whether a series with completed occurrences behind it
// must stop instead of moving on to candidate.
//
// An end date is inclusive: a candidate on the end date still belongs to
// the series, the day after does not.
func HasEnded(rule Rule, completed int, candidate time.Time) bool {
	switch rule.end.kind {
	case endUntil:
		return daysBetween(rule.end.until, candidate) > 0
	case endCount:
		return completed >= rule.end.count
	default:
		return false
	}
}

// Remaining returns how many occurrences a count-limited series still has.
// ok is false when the rule is not limited by count.
func Remaining(rule Rule, completed int) (n int, ok bool) {
	limit, ok := rule.end.MaxCount()
	if !ok {
		return 0, false
	}
	if completed >= limit {
		return 0, true
	}
	return limit - completed, true
}
