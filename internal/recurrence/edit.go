package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// EditScope selects which occurrences an edit of a recurring task touches.
type EditScope uint8

const (
	// ScopeThisInstance splits the current occurrence off the series.
	ScopeThisInstance EditScope = iota + 1
	// ScopeAllFuture rewrites the series definition in place.
	ScopeAllFuture
)

func (s EditScope) String() string {
	switch s {
	case ScopeThisInstance:
		return "this"
	case ScopeAllFuture:
		return "all"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

func ParseEditScope(raw string) (EditScope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "this", "instance", "one":
		return ScopeThisInstance, nil
	case "all", "future", "series":
		return ScopeAllFuture, nil
	}
	return 0, fmt.Errorf("%w: unknown scope %q", ErrInvalidEdit, raw)
}

// Edit carries the recurrence-relevant part of a task edit. Nil fields are
// left unchanged.
type Edit struct {
	Rule    *Rule
	DueDate *time.Time
}

// EditResult is the outcome of ResolveEdit. Detached is set only for
// ScopeThisInstance and describes the new standalone task.
type EditResult struct {
	Series   State
	Detached *State
}

// ResolveEdit decides how an edit lands on a recurring series.
func ResolveEdit(scope EditScope, s State, e Edit) (EditResult, error) {
	if _, err := s.rule(); err != nil {
		return EditResult{}, err
	}
	switch scope {
	case ScopeAllFuture:
		return editSeries(s, e)
	case ScopeThisInstance:
		return detachInstance(s, e)
	default:
		return EditResult{}, fmt.Errorf("%w: unknown scope %s", ErrInvalidEdit, scope)
	}
}

// editSeries replaces the rule and/or the current due date. Progress and the
// active flag carry over, except that a new count limit already reached ends
// the series. A new rule keeps the series anchor unless the due date moves
// or the frequency changes.
func editSeries(s State, e Edit) (EditResult, error) {
	out := s
	if e.DueDate != nil {
		out.DueDate = Day(*e.DueDate)
	}

	rule := *s.Rule
	switch {
	case e.Rule != nil:
		rule = *e.Rule
		switch {
		case rule.HasAnchor():
		case e.DueDate == nil && s.Rule.HasAnchor() && rule.freq == s.Rule.freq:
			rule.anchor = s.Rule.anchor
		case !out.DueDate.IsZero():
			rule = rule.withAnchor(out.DueDate)
		}
	case e.DueDate != nil:
		rule = rule.withAnchor(out.DueDate)
	}

	if limit, ok := rule.end.MaxCount(); ok {
		if s.OccurrencesCompleted > limit {
			return EditResult{}, fmt.Errorf("%w: %d occurrences already done, limit %d is too low",
				ErrInvalidRule, s.OccurrencesCompleted, limit)
		}
		if s.OccurrencesCompleted == limit {
			out.SeriesActive = false
		}
	}
	out.Rule = &rule
	return EditResult{Series: out}, nil
}

// detachInstance turns the current occurrence into a standalone task and
// moves the series one step forward without counting the detached one.
func detachInstance(s State, e Edit) (EditResult, error) {
	if e.Rule != nil {
		return EditResult{}, fmt.Errorf("%w: rule changes apply to all future occurrences", ErrInvalidEdit)
	}
	if !s.SeriesActive {
		return EditResult{}, ErrSeriesEnded
	}
	if s.DueDate.IsZero() {
		return EditResult{}, fmt.Errorf("%w: series has no current occurrence", ErrInvalidEdit)
	}

	detached := State{DueDate: s.DueDate}
	if e.DueDate != nil {
		detached.DueDate = Day(*e.DueDate)
	}

	series := s
	next := NextOccurrence(*s.Rule, s.DueDate)
	if HasEnded(*s.Rule, s.OccurrencesCompleted, next) {
		series.SeriesActive = false
	} else {
		series.DueDate = next
	}
	return EditResult{Series: series, Detached: &detached}, nil
}
