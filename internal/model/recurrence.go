package model

import (
	"fmt"
	"time"

	"recurring-planner/internal/recurrence"
)

// Recurrence rebuilds the engine state from the stored columns.
func (t Task) Recurrence() (recurrence.State, error) {
	state := recurrence.State{
		IsRecurring:          t.IsRecurring,
		OccurrencesCompleted: t.OccurrencesCompleted,
		SeriesActive:         t.IsRecurring && t.SeriesActive,
	}
	if t.Deadline != nil {
		state.DueDate = storedDate(*t.Deadline)
	}
	if !t.IsRecurring {
		state.OccurrencesCompleted = 0
		return state, nil
	}

	rule, err := t.rule()
	if err != nil {
		return recurrence.State{}, fmt.Errorf("task %d recurrence: %w", t.ID, err)
	}
	state.Rule = &rule
	if err := state.Validate(); err != nil {
		return recurrence.State{}, fmt.Errorf("task %d recurrence: %w", t.ID, err)
	}
	return state, nil
}

func (t Task) rule() (recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(t.RecurFrequency)
	if err != nil {
		return recurrence.Rule{}, err
	}
	weekdays, err := recurrence.ParseWeekdays(t.RecurWeekdays)
	if err != nil {
		return recurrence.Rule{}, err
	}

	params := recurrence.RuleParams{
		Frequency: freq,
		Interval:  t.RecurInterval,
		Weekdays:  weekdays,
	}
	switch {
	case t.RecurUntil != nil:
		params.End = recurrence.Until(storedDate(*t.RecurUntil))
	case t.RecurCount > 0:
		params.End = recurrence.AfterCount(t.RecurCount)
	}
	if t.RecurAnchor != nil {
		params.Anchor = storedDate(*t.RecurAnchor)
	}
	return recurrence.NewRule(params)
}

// ApplyRecurrence writes an engine state back into the task columns.
func (t *Task) ApplyRecurrence(s recurrence.State) {
	t.IsRecurring = s.IsRecurring
	t.OccurrencesCompleted = s.OccurrencesCompleted
	t.SeriesActive = s.IsRecurring && s.SeriesActive
	t.Deadline = datePtr(s.DueDate)

	t.RecurFrequency = ""
	t.RecurInterval = 0
	t.RecurWeekdays = ""
	t.RecurAnchor = nil
	t.RecurUntil = nil
	t.RecurCount = 0
	if s.Rule == nil {
		return
	}

	rule := *s.Rule
	t.RecurFrequency = string(rule.Frequency())
	t.RecurInterval = rule.Interval()
	t.RecurWeekdays = rule.Weekdays().String()
	t.RecurAnchor = datePtr(rule.Anchor())
	if until, ok := rule.End().UntilDate(); ok {
		t.RecurUntil = datePtr(until)
	}
	if n, ok := rule.End().MaxCount(); ok {
		t.RecurCount = n
	}
}

// DueDate returns the stored due date as UTC midnight, or the zero time.
func (t Task) DueDate() time.Time {
	if t.Deadline == nil {
		return time.Time{}
	}
	return storedDate(*t.Deadline)
}

// CalendarDate keeps the calendar date of t as seen in t's own location and
// returns it as UTC midnight. Due dates are stored in this form so that they
// read back as the same day whatever zone the driver reports.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// storedDate reads back a date written by datePtr.
func storedDate(t time.Time) time.Time {
	return CalendarDate(t.UTC())
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := CalendarDate(t)
	return &d
}
