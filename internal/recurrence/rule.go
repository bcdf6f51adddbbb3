package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the unit a rule repeats in.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ParseFrequency accepts the frequency names in any case, plus the
// single-letter forms d, w, m and y.
func ParseFrequency(raw string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily", "day", "d":
		return Daily, nil
	case "weekly", "week", "w":
		return Weekly, nil
	case "monthly", "month", "m":
		return Monthly, nil
	case "yearly", "year", "annually", "y":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, raw)
}

// MaxInterval bounds Interval so date arithmetic cannot overflow.
const MaxInterval = 1000

type endKind uint8

const (
	endNever endKind = iota
	endUntil
	endCount
)

// EndCondition says when a series stops producing occurrences. The zero
// value never ends. Build values with Never, Until or AfterCount.
type EndCondition struct {
	kind  endKind
	until time.Time
	count int
}

func Never() EndCondition { return EndCondition{} }

// Until ends the series after the last occurrence on or before date.
func Until(date time.Time) EndCondition {
	if date.IsZero() {
		return EndCondition{kind: endUntil}
	}
	return EndCondition{kind: endUntil, until: Day(date)}
}

// AfterCount ends the series once n occurrences were completed or skipped.
func AfterCount(n int) EndCondition {
	return EndCondition{kind: endCount, count: n}
}

func (e EndCondition) IsNever() bool { return e.kind == endNever }

func (e EndCondition) UntilDate() (time.Time, bool) {
	return e.until, e.kind == endUntil
}

func (e EndCondition) MaxCount() (int, bool) {
	return e.count, e.kind == endCount
}

func (e EndCondition) validate() error {
	switch e.kind {
	case endUntil:
		if e.until.IsZero() {
			return fmt.Errorf("%w: end date is empty", ErrInvalidRule)
		}
	case endCount:
		if e.count < 1 {
			return fmt.Errorf("%w: occurrence count must be >= 1, got %d", ErrInvalidRule, e.count)
		}
	}
	return nil
}

func (e EndCondition) String() string {
	switch e.kind {
	case endUntil:
		return "until " + e.until.Format(DateLayout)
	case endCount:
		return fmt.Sprintf("for %d occurrences", e.count)
	default:
		return "forever"
	}
}

// RuleParams is the unvalidated input of NewRule.
type RuleParams struct {
	Frequency Frequency
	Interval  int
	Weekdays  WeekdaySet
	End       EndCondition
	// Anchor is the due date of the first occurrence. Zero means the rule
	// anchors on whatever date it is evaluated from.
	Anchor time.Time
}

// Rule describes how a task repeats. Rules are values; they cannot be
// changed after NewRule returns.
type Rule struct {
	freq     Frequency
	interval int
	weekdays WeekdaySet
	end      EndCondition
	anchor   time.Time
}

func NewRule(p RuleParams) (Rule, error) {
	if !p.Frequency.Valid() {
		return Rule{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, p.Frequency)
	}
	if p.Interval < 1 || p.Interval > MaxInterval {
		return Rule{}, fmt.Errorf("%w: interval must be in 1..%d, got %d", ErrInvalidRule, MaxInterval, p.Interval)
	}
	if !p.Weekdays.Empty() && p.Frequency != Weekly {
		return Rule{}, fmt.Errorf("%w: weekdays are only allowed for weekly rules", ErrInvalidRule)
	}
	if err := p.End.validate(); err != nil {
		return Rule{}, err
	}

	r := Rule{
		freq:     p.Frequency,
		interval: p.Interval,
		weekdays: p.Weekdays,
		end:      p.End,
	}
	if !p.Anchor.IsZero() {
		r.anchor = Day(p.Anchor)
	}
	return r, nil
}

// MustRule is NewRule for rules known to be valid at compile time.
func MustRule(p RuleParams) Rule {
	r, err := NewRule(p)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) Frequency() Frequency { return r.freq }
func (r Rule) Interval() int        { return r.interval }
func (r Rule) Weekdays() WeekdaySet { return r.weekdays }
func (r Rule) End() EndCondition    { return r.end }
func (r Rule) Anchor() time.Time    { return r.anchor }
func (r Rule) IsZero() bool         { return r.freq == "" }
func (r Rule) HasAnchor() bool      { return !r.anchor.IsZero() }

// Params returns the inputs that rebuild r through NewRule.
func (r Rule) Params() RuleParams {
	return RuleParams{
		Frequency: r.freq,
		Interval:  r.interval,
		Weekdays:  r.weekdays,
		End:       r.end,
		Anchor:    r.anchor,
	}
}

// withAnchor returns a copy of r anchored on date.
func (r Rule) withAnchor(date time.Time) Rule {
	r.anchor = Day(date)
	return r
}

// anchorOr returns the rule anchor, or from when the rule has none.
func (r Rule) anchorOr(from time.Time) time.Time {
	if r.anchor.IsZero() {
		return from
	}
	y, m, d := r.anchor.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, from.Location())
}

var unitNames = map[Frequency][2]string{
	Daily:   {"day", "days"},
	Weekly:  {"week", "weeks"},
	Monthly: {"month", "months"},
	Yearly:  {"year", "years"},
}

// String renders the rule for humans, e.g. "every 2 weeks on mon,fri until 2024-06-30".
func (r Rule) String() string {
	if r.IsZero() {
		return "never"
	}
	names := unitNames[r.freq]
	var sb strings.Builder
	if r.interval == 1 {
		sb.WriteString("every " + names[0])
	} else {
		fmt.Fprintf(&sb, "every %d %s", r.interval, names[1])
	}
	if !r.weekdays.Empty() {
		sb.WriteString(" on " + r.weekdays.String())
	}
	if !r.end.IsNever() {
		sb.WriteString(" " + r.end.String())
	}
	return sb.String()
}
