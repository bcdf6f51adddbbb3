package recurrence

import "errors"

var (
	ErrInvalidRule  = errors.New("invalid recurrence rule")
	ErrSeriesEnded  = errors.New("recurrence series has ended")
	ErrNotRecurring = errors.New("task is not recurring")
	ErrInvalidEdit  = errors.New("invalid recurrence edit")
)
