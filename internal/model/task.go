package model

import "time"

// Task represents a single item in the planner. For recurring tasks Deadline
// is the due date of the current occurrence and moves forward as occurrences
// are completed or skipped.
type Task struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index"`
	CategoryID  *uint `gorm:"index"`
	Title       string
	Description string
	Deadline    *time.Time
	IsCompleted bool `gorm:"default:false"`

	IsRecurring          bool `gorm:"default:false"`
	RecurFrequency       string
	RecurInterval        int
	RecurWeekdays        string // e.g. "mon,wed,fri"
	RecurAnchor          *time.Time
	RecurUntil           *time.Time
	RecurCount           int
	RecurWindow          int // days before the due date the task shows up in reports
	OccurrencesCompleted int
	SeriesActive         bool

	// DetachedFromID links a task split off a series to the series task.
	DetachedFromID *uint `gorm:"index"`
	// Version guards read-modify-write cycles against lost updates.
	Version int `gorm:"not null;default:1"`

	LastCompletedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Ended reports whether the task is a recurring series that stopped
// producing occurrences.
func (t Task) Ended() bool {
	return t.IsRecurring && !t.SeriesActive
}
