package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a bitmask indexed by time.Weekday.
type WeekdaySet uint8

// mondayFirst is the display and iteration order for weekday sets.
var mondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool { return s == 0 }

func (s WeekdaySet) Len() int {
	n := 0
	for _, d := range mondayFirst {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Days returns the members in Monday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for _, d := range mondayFirst {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as "mon,wed,fri"; the empty set renders as "".
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, weekdayNames[d])
	}
	return strings.Join(names, ",")
}

// ParseWeekdays parses a comma or space separated list of weekday names.
// Both short ("mon") and full ("monday") English names are accepted.
func ParseWeekdays(raw string) (WeekdaySet, error) {
	var s WeekdaySet
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	for _, f := range fields {
		d, ok := parseWeekday(f)
		if !ok {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, f)
		}
		s = s.With(d)
	}
	return s, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	name = strings.TrimSpace(name)
	for _, d := range mondayFirst {
		full := strings.ToLower(d.String())
		if name == weekdayNames[d] || name == full {
			return d, true
		}
	}
	return 0, false
}
