package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
)

func TestDailySummary(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mustCreate := func(in TaskInput) *model.Task {
		task, err := env.tasks.CreateTask(ctx, env.user, in)
		require.NoError(t, err)
		return task
	}
	mustCreate(TaskInput{Title: "overdue <draft>", Deadline: dayPtr(t, "2024-03-08"), Category: "work"})
	mustCreate(TaskInput{Title: "no deadline"})
	mustCreate(TaskInput{
		Title:       "rent",
		Deadline:    dayPtr(t, "2024-03-12"),
		Recurrence:  &RecurrenceInput{Frequency: recurrence.Monthly, Interval: 1},
		RecurWindow: 3,
	})
	mustCreate(TaskInput{
		Title:       "dentist",
		Deadline:    dayPtr(t, "2024-04-01"),
		Recurrence:  &RecurrenceInput{Frequency: recurrence.Yearly, Interval: 1},
		RecurWindow: 2,
	})
	done := mustCreate(TaskInput{Title: "finished"})
	_, err := env.tasks.CompleteTask(ctx, env.user, done.ID)
	require.NoError(t, err)

	text, err := env.reports.DailySummary(ctx, *env.user)
	require.NoError(t, err)

	assert.Contains(t, text, "10.03.2024")
	assert.Contains(t, text, "⚠️ overdue &lt;draft&gt; <i>(work)</i>")
	assert.Contains(t, text, "просрочено")
	assert.Contains(t, text, "🟢 no deadline")
	assert.Contains(t, text, "♻️ rent")
	assert.Contains(t, text, "2024-03-12, через 2 дн. (окно 3 дн.)")
	assert.Contains(t, text, "🔄 каждый месяц")
	assert.Contains(t, text, "➡️ Далее: 2024-04-12, 2024-05-12")
	assert.NotContains(t, text, "dentist")
	assert.NotContains(t, text, "finished")
}

func TestDailySummary_Empty(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC))

	text, err := env.reports.DailySummary(context.Background(), *env.user)
	require.NoError(t, err)
	assert.Contains(t, text, "— нет открытых задач")
	assert.Contains(t, text, "— нет задач в окне выполнения")
}

func TestDueSoon(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	due := func(raw string) *time.Time { return dayPtr(t, raw) }

	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"plain task", model.Task{Deadline: due("2024-03-10")}, false},
		{"due today", model.Task{IsRecurring: true, SeriesActive: true, Deadline: due("2024-03-10")}, true},
		{"overdue", model.Task{IsRecurring: true, SeriesActive: true, Deadline: due("2024-03-01")}, true},
		{"inside window", model.Task{IsRecurring: true, SeriesActive: true, RecurWindow: 2, Deadline: due("2024-03-12")}, true},
		{"outside window", model.Task{IsRecurring: true, SeriesActive: true, RecurWindow: 2, Deadline: due("2024-03-13")}, false},
		{"stopped", model.Task{IsRecurring: true, Deadline: due("2024-03-10")}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dueSoon(tt.task, today), tt.name)
	}
}

func TestFormatRecurring_LastOccurrence(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rule := recurrence.MustRule(recurrence.RuleParams{Frequency: recurrence.Daily, Interval: 1, End: recurrence.AfterCount(3)})
	state := recurrence.Start(rule, today)
	state.OccurrencesCompleted = 2

	task := model.Task{Title: "pills"}
	task.ApplyRecurrence(state)

	text := formatRecurring(task, nil, today, time.UTC)
	assert.Contains(t, text, "сегодня")
	assert.Contains(t, text, "всего 3 раза")
	assert.Contains(t, text, "🏁 Последнее повторение")
	assert.Contains(t, text, "Пока не выполнялась")
}
