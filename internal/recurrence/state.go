package recurrence

import (
	"fmt"
	"time"
)

// State is the recurrence part of a task. The engine never mutates a State
// in place: every operation returns the next value.
type State struct {
	IsRecurring bool
	// Rule is nil iff IsRecurring is false.
	Rule *Rule
	// DueDate is the date of the current occurrence.
	DueDate time.Time
	// OccurrencesCompleted counts completed and skipped occurrences.
	OccurrencesCompleted int
	SeriesActive         bool
}

// Start creates the state of a new series whose first occurrence is due on
// anchor. A rule without an anchor is anchored on that date.
func Start(rule Rule, anchor time.Time) State {
	due := Day(anchor)
	if !rule.HasAnchor() {
		rule = rule.withAnchor(due)
	}
	return State{
		IsRecurring:  true,
		Rule:         &rule,
		DueDate:      due,
		SeriesActive: true,
	}
}

// Clear drops the recurrence and keeps the current due date, turning the
// task into a plain one.
func Clear(s State) State {
	return State{DueDate: s.DueDate}
}

// Ended reports whether s is a recurring series that produces no more
// occurrences.
func (s State) Ended() bool {
	return s.IsRecurring && !s.SeriesActive
}

// Validate checks the invariants tying the state fields together.
func (s State) Validate() error {
	if s.IsRecurring != (s.Rule != nil) {
		return fmt.Errorf("recurring flag %t does not match rule presence", s.IsRecurring)
	}
	if s.OccurrencesCompleted < 0 {
		return fmt.Errorf("negative occurrence count %d", s.OccurrencesCompleted)
	}
	if s.Rule == nil {
		return nil
	}
	if limit, ok := s.Rule.End().MaxCount(); ok && s.OccurrencesCompleted > limit {
		return fmt.Errorf("%d occurrences exceed the limit of %d", s.OccurrencesCompleted, limit)
	}
	return nil
}

func (s State) rule() (Rule, error) {
	if !s.IsRecurring || s.Rule == nil {
		return Rule{}, ErrNotRecurring
	}
	return *s.Rule, nil
}
