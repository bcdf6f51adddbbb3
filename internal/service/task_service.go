package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// maxAttempts bounds the read-modify-write cycles of one task operation.
const maxAttempts = 2

// RecurrenceInput describes how a task repeats. Until and Count are mutually
// exclusive; leaving both unset repeats forever.
type RecurrenceInput struct {
	Frequency recurrence.Frequency
	Interval  int
	Weekdays  recurrence.WeekdaySet
	Until     *time.Time
	Count     int
}

// Rule validates the input and builds an unanchored rule.
func (in RecurrenceInput) Rule() (recurrence.Rule, error) {
	params := recurrence.RuleParams{
		Frequency: in.Frequency,
		Interval:  in.Interval,
		Weekdays:  in.Weekdays,
	}
	switch {
	case in.Until != nil && in.Count != 0:
		return recurrence.Rule{}, fmt.Errorf("%w: set either an end date or an occurrence count", recurrence.ErrInvalidRule)
	case in.Until != nil:
		params.End = recurrence.Until(model.CalendarDate(*in.Until))
	case in.Count != 0:
		params.End = recurrence.AfterCount(in.Count)
	}
	return recurrence.NewRule(params)
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	// Deadline is the due date; for a recurring task it is the first
	// occurrence and defaults to today.
	Deadline    *time.Time
	Recurrence  *RecurrenceInput
	RecurWindow int
}

// TaskEdit lists the fields to change. Nil fields stay as they are.
type TaskEdit struct {
	Scope          recurrence.EditScope
	Title          *string
	Description    *string
	Deadline       *time.Time
	Recurrence     *RecurrenceInput
	DropRecurrence bool
	RecurWindow    *int
}

func (e TaskEdit) empty() bool {
	return e.Title == nil && e.Description == nil && e.Deadline == nil &&
		e.Recurrence == nil && !e.DropRecurrence && e.RecurWindow == nil
}

// EditOutcome is the result of EditTask. Detached is the standalone task
// created by a this-instance edit of a series.
type EditOutcome struct {
	Task     *model.Task
	Detached *model.Task
}

// TaskService wraps task-related business logic. Every state change loads
// the task, runs the recurrence engine and saves the task together with a
// history record in one transaction.
type TaskService struct {
	store *repository.Store
	clock Clock
	log   zerolog.Logger
}

func NewTaskService(store *repository.Store, clock Clock, log zerolog.Logger) *TaskService {
	return &TaskService{store: store, clock: clock, log: log.With().Str("component", "tasks").Logger()}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	task := model.Task{
		UserID:      user.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}

	switch {
	case input.Recurrence != nil:
		rule, err := input.Recurrence.Rule()
		if err != nil {
			return nil, err
		}
		first := s.clock.Today()
		if input.Deadline != nil {
			first = model.CalendarDate(*input.Deadline)
		}
		if err := checkFirstOccurrence(rule, first); err != nil {
			return nil, err
		}
		task.ApplyRecurrence(recurrence.Start(rule, first))
		task.RecurWindow = max(input.RecurWindow, 0)
	case input.Deadline != nil:
		due := model.CalendarDate(*input.Deadline)
		task.Deadline = &due
	}

	err := s.store.Atomic(ctx, func(tx *repository.Store) error {
		category, err := tx.Categories.GetOrCreate(ctx, user.ID, input.Category)
		if err != nil {
			return err
		}
		if category != nil {
			task.CategoryID = &category.ID
		}
		return tx.Tasks.Create(ctx, &task)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("task_id", task.ID).Uint("user_id", user.ID).Bool("recurring", task.IsRecurring).Msg("task created")
	return &task, nil
}

func (s *TaskService) ListActive(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.store.Tasks.ListOpen(ctx, user.ID)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return findTask(ctx, s.store.Tasks, user.ID, taskID)
}

// CompleteTask marks the current occurrence done. A recurring task moves on
// to its next occurrence; a plain task, or a stopped series, is closed.
func (s *TaskService) CompleteTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	now := s.clock.now()
	return s.mutate(ctx, user, taskID, func(tx *repository.Store, task *model.Task) error {
		if task.IsRecurring && !stoppedOpen(task) {
			return s.advance(ctx, tx, task, recurrence.ActionComplete, now)
		}
		if task.IsCompleted {
			return ErrAlreadyCompleted
		}
		due := task.DueDate()
		task.IsCompleted = true
		task.LastCompletedAt = &now
		if err := tx.Tasks.Update(ctx, task); err != nil {
			return err
		}
		return record(ctx, tx, task, model.ActionComplete, due, now)
	})
}

// SkipOccurrence drops the current occurrence of a series without
// completing it.
func (s *TaskService) SkipOccurrence(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	now := s.clock.now()
	return s.mutate(ctx, user, taskID, func(tx *repository.Store, task *model.Task) error {
		return s.advance(ctx, tx, task, recurrence.ActionSkip, now)
	})
}

// StopRecurrence ends a series and leaves the current occurrence as an
// ordinary task. Stopping an ended series changes nothing.
func (s *TaskService) StopRecurrence(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	now := s.clock.now()
	return s.mutate(ctx, user, taskID, func(tx *repository.Store, task *model.Task) error {
		state, err := task.Recurrence()
		if err != nil {
			return err
		}
		next, err := recurrence.Stop(state)
		if err != nil {
			return err
		}
		if !state.SeriesActive {
			return nil
		}
		task.ApplyRecurrence(next)
		if err := tx.Tasks.Update(ctx, task); err != nil {
			return err
		}
		return record(ctx, tx, task, model.ActionStop, state.DueDate, now)
	})
}

// EditTask changes a task. For a series the scope decides whether the edit
// rewrites the series or splits the current occurrence off as its own task.
// Plain tasks ignore the scope.
func (s *TaskService) EditTask(ctx context.Context, user *model.User, taskID uint, edit TaskEdit) (EditOutcome, error) {
	if edit.empty() {
		return EditOutcome{}, ErrNothingToEdit
	}
	if edit.Title != nil && strings.TrimSpace(*edit.Title) == "" {
		return EditOutcome{}, ErrTitleRequired
	}
	if edit.Recurrence != nil && edit.DropRecurrence {
		return EditOutcome{}, fmt.Errorf("%w: cannot both set and drop the recurrence", recurrence.ErrInvalidEdit)
	}

	var rule *recurrence.Rule
	if edit.Recurrence != nil {
		r, err := edit.Recurrence.Rule()
		if err != nil {
			return EditOutcome{}, err
		}
		rule = &r
	}
	var due *time.Time
	if edit.Deadline != nil {
		d := model.CalendarDate(*edit.Deadline)
		due = &d
	}

	now := s.clock.now()
	var detached *model.Task
	task, err := s.mutate(ctx, user, taskID, func(tx *repository.Store, task *model.Task) error {
		detached = nil
		if !task.IsRecurring {
			return s.editPlain(ctx, tx, task, edit, rule, due)
		}
		d, err := s.editSeries(ctx, tx, task, edit, rule, due, now)
		detached = d
		return err
	})
	if err != nil {
		return EditOutcome{}, err
	}

	ev := s.log.Info().Uint("task_id", task.ID).Str("scope", edit.Scope.String())
	if detached != nil {
		ev = ev.Uint("detached_id", detached.ID)
	}
	ev.Msg("task edited")
	return EditOutcome{Task: task, Detached: detached}, nil
}

func (s *TaskService) editPlain(ctx context.Context, tx *repository.Store, task *model.Task, edit TaskEdit, rule *recurrence.Rule, due *time.Time) error {
	applyText(task, edit)
	if due != nil {
		task.Deadline = due
	}
	if rule != nil {
		first := task.DueDate()
		if first.IsZero() {
			first = s.clock.Today()
		}
		if err := checkFirstOccurrence(*rule, first); err != nil {
			return err
		}
		task.ApplyRecurrence(recurrence.Start(*rule, first))
		task.IsCompleted = false
	}
	if edit.RecurWindow != nil {
		task.RecurWindow = max(*edit.RecurWindow, 0)
	}
	return tx.Tasks.Update(ctx, task)
}

func (s *TaskService) editSeries(ctx context.Context, tx *repository.Store, task *model.Task, edit TaskEdit, rule *recurrence.Rule, due *time.Time, now time.Time) (*model.Task, error) {
	state, err := task.Recurrence()
	if err != nil {
		return nil, err
	}

	if edit.Scope == recurrence.ScopeThisInstance && (edit.DropRecurrence || edit.RecurWindow != nil) {
		return nil, fmt.Errorf("%w: recurrence settings apply to all future occurrences", recurrence.ErrInvalidEdit)
	}
	if edit.DropRecurrence {
		if edit.Scope != recurrence.ScopeAllFuture {
			return nil, fmt.Errorf("%w: unknown scope %s", recurrence.ErrInvalidEdit, edit.Scope)
		}
		next := recurrence.Clear(state)
		if due != nil {
			next.DueDate = *due
		}
		applyText(task, edit)
		task.ApplyRecurrence(next)
		task.RecurWindow = 0
		return nil, tx.Tasks.Update(ctx, task)
	}

	res, err := recurrence.ResolveEdit(edit.Scope, state, recurrence.Edit{Rule: rule, DueDate: due})
	if err != nil {
		return nil, err
	}

	if res.Detached == nil {
		applyText(task, edit)
		task.ApplyRecurrence(res.Series)
		if state.SeriesActive && res.Series.Ended() {
			task.IsCompleted = true
		}
		if edit.RecurWindow != nil {
			task.RecurWindow = max(*edit.RecurWindow, 0)
		}
		return nil, tx.Tasks.Update(ctx, task)
	}

	detached := model.Task{
		UserID:         task.UserID,
		CategoryID:     task.CategoryID,
		Title:          task.Title,
		Description:    task.Description,
		DetachedFromID: &task.ID,
	}
	applyText(&detached, edit)
	detached.ApplyRecurrence(*res.Detached)
	if err := tx.Tasks.Create(ctx, &detached); err != nil {
		return nil, err
	}

	task.ApplyRecurrence(res.Series)
	if res.Series.Ended() {
		task.IsCompleted = true
	}
	if err := tx.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	if err := record(ctx, tx, task, model.ActionDetach, state.DueDate, now); err != nil {
		return nil, err
	}
	return &detached, nil
}

// History returns the latest limit occurrence records of a task.
func (s *TaskService) History(ctx context.Context, user *model.User, taskID uint, limit int) ([]model.Occurrence, error) {
	if _, err := findTask(ctx, s.store.Tasks, user.ID, taskID); err != nil {
		return nil, err
	}
	return s.store.Occurrences.ListByTask(ctx, user.ID, taskID, limit)
}

// DetachedCopies lists the standalone tasks split off a series by
// single-occurrence edits.
func (s *TaskService) DetachedCopies(ctx context.Context, user *model.User, taskID uint) ([]model.Task, error) {
	if _, err := findTask(ctx, s.store.Tasks, user.ID, taskID); err != nil {
		return nil, err
	}
	return s.store.Tasks.ListDetached(ctx, user.ID, taskID)
}

// DeleteTask removes a task completely (for both one-time and recurring
// tasks) together with its history.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	err := s.store.Atomic(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.Delete(ctx, user.ID, taskID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		return tx.Occurrences.DeleteByTask(ctx, user.ID, taskID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("task_id", taskID).Uint("user_id", user.ID).Msg("task deleted")
	return nil
}

// UpcomingDates lists the due dates that follow the current occurrence of
// an active series.
func UpcomingDates(task model.Task, limit int) []time.Time {
	state, err := task.Recurrence()
	if err != nil || !state.IsRecurring || !state.SeriesActive || state.DueDate.IsZero() {
		return nil
	}
	return recurrence.Upcoming(*state.Rule, state.DueDate, state.OccurrencesCompleted, limit)
}

// advance completes or skips the current occurrence of a series.
func (s *TaskService) advance(ctx context.Context, tx *repository.Store, task *model.Task, action recurrence.Action, now time.Time) error {
	state, err := task.Recurrence()
	if err != nil {
		return err
	}
	today := model.CalendarDate(now)
	next, err := recurrence.Apply(state, action, today)
	if err != nil {
		return err
	}

	due := state.DueDate
	if due.IsZero() {
		due = today
	}
	task.ApplyRecurrence(next)
	if action == recurrence.ActionComplete {
		task.LastCompletedAt = &now
	}
	if next.Ended() {
		task.IsCompleted = true
		s.log.Info().Uint("task_id", task.ID).Int("occurrences", next.OccurrencesCompleted).Msg("series ended")
	}
	if err := tx.Tasks.Update(ctx, task); err != nil {
		return err
	}
	return record(ctx, tx, task, action.String(), due, now)
}

// mutate runs fn on a freshly loaded task inside a transaction and retries
// once when the task changed underneath.
func (s *TaskService) mutate(ctx context.Context, user *model.User, taskID uint, fn func(tx *repository.Store, task *model.Task) error) (*model.Task, error) {
	for attempt := 1; ; attempt++ {
		var out *model.Task
		err := s.store.Atomic(ctx, func(tx *repository.Store) error {
			task, err := findTask(ctx, tx.Tasks, user.ID, taskID)
			if err != nil {
				return err
			}
			if err := fn(tx, task); err != nil {
				return err
			}
			out = task
			return nil
		})
		if errors.Is(err, repository.ErrConflict) && attempt < maxAttempts {
			s.log.Debug().Uint("task_id", taskID).Int("attempt", attempt).Msg("task changed concurrently, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func findTask(ctx context.Context, repo *repository.TaskRepository, userID, taskID uint) (*model.Task, error) {
	task, err := repo.FindByID(ctx, userID, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func record(ctx context.Context, tx *repository.Store, task *model.Task, action string, due, now time.Time) error {
	if due.IsZero() {
		due = model.CalendarDate(now)
	}
	return tx.Occurrences.Append(ctx, &model.Occurrence{
		TaskID:     task.ID,
		UserID:     task.UserID,
		DueDate:    due,
		Action:     action,
		Sequence:   task.OccurrencesCompleted,
		RecordedAt: now,
	})
}

func applyText(task *model.Task, edit TaskEdit) {
	if edit.Title != nil {
		task.Title = strings.TrimSpace(*edit.Title)
	}
	if edit.Description != nil {
		task.Description = strings.TrimSpace(*edit.Description)
	}
}

// stoppedOpen reports a series stopped by the user whose last occurrence
// is still to be done.
func stoppedOpen(task *model.Task) bool {
	return task.Ended() && !task.IsCompleted
}

func checkFirstOccurrence(rule recurrence.Rule, first time.Time) error {
	if until, ok := rule.End().UntilDate(); ok && until.Before(first) {
		return fmt.Errorf("%w: end date %s is before the first occurrence %s",
			recurrence.ErrInvalidRule, until.Format(recurrence.DateLayout), first.Format(recurrence.DateLayout))
	}
	return nil
}
