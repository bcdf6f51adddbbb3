package recurrence

import (
	"fmt"
	"time"
)

// Action is what a caller does to the current occurrence of a series.
type Action uint8

const (
	ActionComplete Action = iota + 1
	ActionSkip
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionComplete:
		return "complete"
	case ActionSkip:
		return "skip"
	case ActionStop:
		return "stop"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Apply runs action against s. now is only consulted when the series has no
// current due date; see Complete.
func Apply(s State, action Action, now time.Time) (State, error) {
	switch action {
	case ActionComplete:
		return Complete(s, now)
	case ActionSkip:
		return Skip(s, now)
	case ActionStop:
		return Stop(s)
	default:
		return s, fmt.Errorf("unknown recurrence action %s", action)
	}
}

// Complete closes the current occurrence and moves the series to the next
// one. When the end condition rejects the next date the series ends and the
// due date stays on the occurrence just completed.
//
// The next date is computed from the current due date; now is used instead
// only when the state carries no due date.
func Complete(s State, now time.Time) (State, error) {
	return advance(s, now)
}

// Skip drops the current occurrence. It counts towards an occurrence limit
// exactly like Complete; only the caller's history differs.
func Skip(s State, now time.Time) (State, error) {
	return advance(s, now)
}

// Stop ends the series without moving the due date. Stopping an ended series
// returns it unchanged.
func Stop(s State) (State, error) {
	if _, err := s.rule(); err != nil {
		return s, err
	}
	s.SeriesActive = false
	return s, nil
}

func advance(s State, now time.Time) (State, error) {
	rule, err := s.rule()
	if err != nil {
		return s, err
	}
	if !s.SeriesActive {
		return s, ErrSeriesEnded
	}

	from := s.DueDate
	if from.IsZero() {
		from = Day(now)
	}
	next := NextOccurrence(rule, from)

	out := s
	out.OccurrencesCompleted++
	if HasEnded(rule, out.OccurrencesCompleted, next) {
		out.SeriesActive = false
		out.DueDate = Day(from)
		return out, nil
	}
	out.DueDate = next
	return out, nil
}
