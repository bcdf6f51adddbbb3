package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recurring-planner/internal/model"
	"recurring-planner/internal/repository"
)

type testEnv struct {
	store   *repository.Store
	now     time.Time
	clock   Clock
	tasks   *TaskService
	reports *ReminderService
	user    *model.User
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db, err := repository.NewDB(repository.MemoryDSN(t.Name()), zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	env := &testEnv{store: repository.NewStore(db), now: now}
	env.clock = Clock{Location: time.UTC, Now: func() time.Time { return env.now }}
	env.tasks = NewTaskService(env.store, env.clock, zerolog.Nop())
	env.reports = NewReminderService(env.store, env.clock)

	env.user, err = env.store.Users.UpsertFromTelegram(context.Background(), 100, "Ann", "", "ann")
	require.NoError(t, err)
	return env
}

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, raw string) *time.Time {
	d := day(t, raw)
	return &d
}

func strPtr(s string) *string { return &s }

func requireDue(t *testing.T, want string, task *model.Task) {
	t.Helper()
	require.NotNil(t, task.Deadline, "task %d has no due date", task.ID)
	require.Equal(t, want, task.DueDate().Format("2006-01-02"))
}

func actions(occs []model.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Action)
	}
	return out
}
