package model

import "time"

// Occurrence actions.
const (
	ActionComplete = "complete"
	ActionSkip     = "skip"
	ActionStop     = "stop"
	ActionDetach   = "detach"
)

// Occurrence is an append-only history record of what happened to one
// occurrence of a recurring task.
type Occurrence struct {
	ID         uint `gorm:"primaryKey"`
	TaskID     uint `gorm:"index"`
	UserID     uint `gorm:"index"`
	DueDate    time.Time
	Action     string // complete, skip, stop, detach
	Sequence   int    // occurrences counted after the action
	RecordedAt time.Time
	CreatedAt  time.Time
}
