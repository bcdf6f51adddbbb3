package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

func TestPreview_MonthlyClampsToMonthEnd(t *testing.T) {
	var out bytes.Buffer
	err := runPreview(&out, previewOptions{freq: "monthly", interval: 1, from: "2024-01-31", count: 3, limit: 5}, time.Now())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Rule: every month for 3 occurrences")
	assert.Contains(t, text, "Описание: каждый месяц, всего 3 раза")
	assert.Contains(t, text, "  1  2024-01-31  Wed")
	assert.Contains(t, text, "  2  2024-02-29  Thu")
	assert.Contains(t, text, "  3  2024-03-31  Sun")
	assert.NotContains(t, text, "  4  ")
	assert.Contains(t, text, "(series ends)")
}

func TestPreview_WeeklyDefaultsToToday(t *testing.T) {
	now := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC) // Monday
	var out bytes.Buffer
	err := runPreview(&out, previewOptions{freq: "w", interval: 2, days: "mon,thu", limit: 4}, now)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "  1  2025-03-03  Mon")
	assert.Contains(t, text, "  2  2025-03-06  Thu")
	assert.Contains(t, text, "  3  2025-03-17  Mon")
	assert.Contains(t, text, "  4  2025-03-20  Thu")
	assert.NotContains(t, text, "(series ends)")
}

func TestPreview_UntilBeforeStart(t *testing.T) {
	var out bytes.Buffer
	err := runPreview(&out, previewOptions{freq: "daily", interval: 1, from: "2025-05-10", until: "2025-05-01", limit: 3}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No occurrences")
}

func TestPreview_InvalidInput(t *testing.T) {
	cases := []previewOptions{
		{freq: "hourly", interval: 1, limit: 1},
		{freq: "daily", interval: 0, limit: 1},
		{freq: "weekly", interval: 1 << 60, limit: 1},
		{freq: "daily", interval: 1, days: "mon", limit: 1},
		{freq: "daily", interval: 1, until: "2025-01-01", count: 2, limit: 1},
		{freq: "daily", interval: 1, until: "tomorrow", limit: 1},
		{freq: "daily", interval: 1, from: "01.02.2025", limit: 1},
		{freq: "daily", interval: 1, limit: 0},
	}
	for _, o := range cases {
		err := runPreview(&bytes.Buffer{}, o, time.Now())
		assert.Error(t, err, "%+v", o)
	}

	err := runPreview(&bytes.Buffer{}, cases[1], time.Now())
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestHistoryCommand_RequiresTaskID(t *testing.T) {
	assert.Equal(t, "history <task-id>", historyCmd.Use)
	assert.Error(t, historyCmd.Args(historyCmd, []string{}))
	assert.NoError(t, historyCmd.Args(historyCmd, []string{"7"}))
}

func TestHistoryCommand_PrintsLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "planner.db")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PLANNER_CONFIG", "")

	db, err := repository.NewDB(dbPath, zerolog.Nop())
	require.NoError(t, err)
	store := repository.NewStore(db)
	ctx := context.Background()

	recorded := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	for i, action := range []string{model.ActionComplete, model.ActionSkip} {
		require.NoError(t, store.Occurrences.Append(ctx, &model.Occurrence{
			TaskID:     5,
			UserID:     1,
			DueDate:    time.Date(2025, 3, 3+7*i, 0, 0, 0, 0, time.UTC),
			Action:     action,
			Sequence:   i + 1,
			RecordedAt: recorded,
		}))
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	historyCmd.SetErr(&bytes.Buffer{})
	historyCmd.SetContext(ctx)
	t.Cleanup(func() {
		historyCmd.SetOut(nil)
		historyCmd.SetErr(nil)
	})

	require.NoError(t, runHistory(historyCmd, []string{"5"}))
	text := out.String()
	assert.Contains(t, text, "2025-03-03  complete     1  2025-03-03 09:30")
	assert.Contains(t, text, "2025-03-10  skip         2  2025-03-03 09:30")

	out.Reset()
	require.NoError(t, runHistory(historyCmd, []string{"6"}))
	assert.Contains(t, out.String(), "No history for task 6.")

	assert.Error(t, runHistory(historyCmd, []string{"abc"}))
}
