package service

import (
	"time"

	"recurring-planner/internal/model"
)

// Clock tells the services what time it is and which timezone decides the
// calendar day. The recurrence engine never reads the clock itself.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func SystemClock(loc *time.Location) Clock {
	return Clock{Location: loc, Now: time.Now}
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(c.location())
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Today is the current calendar date in the clock's location, in the form
// due dates are stored in.
func (c Clock) Today() time.Time {
	return model.CalendarDate(c.now())
}
