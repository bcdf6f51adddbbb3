package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-planner/internal/recurrence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTask_RecurrenceRoundTrip(t *testing.T) {
	t.Parallel()

	rule := recurrence.MustRule(recurrence.RuleParams{
		Frequency: recurrence.Weekly,
		Interval:  2,
		Weekdays:  recurrence.Weekdays(time.Monday, time.Thursday),
		End:       recurrence.AfterCount(6),
	})
	state := recurrence.Start(rule, date(2024, 1, 1))
	state.OccurrencesCompleted = 2

	var task Task
	task.ApplyRecurrence(state)

	assert.True(t, task.IsRecurring)
	assert.True(t, task.SeriesActive)
	assert.Equal(t, "weekly", task.RecurFrequency)
	assert.Equal(t, 2, task.RecurInterval)
	assert.Equal(t, "mon,thu", task.RecurWeekdays)
	assert.Equal(t, 6, task.RecurCount)
	assert.Nil(t, task.RecurUntil)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, date(2024, 1, 1), *task.Deadline)

	got, err := task.Recurrence()
	require.NoError(t, err)
	assert.Equal(t, state.DueDate, got.DueDate)
	assert.Equal(t, state.OccurrencesCompleted, got.OccurrencesCompleted)
	assert.Equal(t, state.SeriesActive, got.SeriesActive)
	assert.Equal(t, *state.Rule, *got.Rule)
}

func TestTask_RecurrenceWithEndDate(t *testing.T) {
	t.Parallel()

	until := date(2024, 12, 31)
	anchor := date(2024, 1, 31)
	deadline := date(2024, 2, 29)
	task := Task{
		ID:             7,
		IsRecurring:    true,
		RecurFrequency: "monthly",
		RecurInterval:  1,
		RecurAnchor:    &anchor,
		RecurUntil:     &until,
		Deadline:       &deadline,
		SeriesActive:   true,
	}

	state, err := task.Recurrence()
	require.NoError(t, err)
	end, ok := state.Rule.End().UntilDate()
	require.True(t, ok)
	assert.Equal(t, until, end)

	next, err := recurrence.Complete(state, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 31), next.DueDate)
}

func TestTask_RecurrenceReadsStoredDatesInAnyZone(t *testing.T) {
	t.Parallel()

	// A driver may hand back UTC midnight converted to another zone.
	west := time.FixedZone("UTC-5", -5*60*60)
	deadline := date(2024, 3, 10).In(west)
	task := Task{Deadline: &deadline}

	state, err := task.Recurrence()
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 10), state.DueDate)
}

func TestTask_RecurrenceRejectsBrokenColumns(t *testing.T) {
	t.Parallel()

	tests := []Task{
		{ID: 1, IsRecurring: true, RecurFrequency: "hourly", RecurInterval: 1},
		{ID: 2, IsRecurring: true, RecurFrequency: "daily", RecurInterval: 0},
		{ID: 3, IsRecurring: true, RecurFrequency: "daily", RecurInterval: 1, RecurWeekdays: "mon"},
		{ID: 4, IsRecurring: true, RecurFrequency: "daily", RecurInterval: 1, RecurCount: 2, OccurrencesCompleted: 3},
	}
	for _, task := range tests {
		_, err := task.Recurrence()
		require.Error(t, err, "task %d", task.ID)
	}
}

func TestTask_ApplyClearedRecurrence(t *testing.T) {
	t.Parallel()

	rule := recurrence.MustRule(recurrence.RuleParams{Frequency: recurrence.Daily, Interval: 1})
	task := Task{}
	task.ApplyRecurrence(recurrence.Start(rule, date(2024, 5, 5)))
	require.True(t, task.IsRecurring)

	task.ApplyRecurrence(recurrence.Clear(recurrence.Start(rule, date(2024, 5, 5))))
	assert.False(t, task.IsRecurring)
	assert.False(t, task.SeriesActive)
	assert.Empty(t, task.RecurFrequency)
	assert.Nil(t, task.RecurAnchor)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, date(2024, 5, 5), *task.Deadline)
	assert.False(t, task.Ended())

	state, err := task.Recurrence()
	require.NoError(t, err)
	assert.False(t, state.IsRecurring)
}
