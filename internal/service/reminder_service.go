package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

// upcomingInReport is how many dates after the current one a report lists.
const upcomingInReport = 2

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	store *repository.Store
	clock Clock
}

func NewReminderService(store *repository.Store, clock Clock) *ReminderService {
	return &ReminderService{store: store, clock: clock}
}

// DailySummary lists the user's open one-off tasks and the recurring
// occurrences whose reminder window has opened.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User) (string, error) {
	tasks, err := s.store.Tasks.ListOpen(ctx, user.ID)
	if err != nil {
		return "", err
	}
	catNames, err := s.store.Categories.Names(ctx, user.ID)
	if err != nil {
		return "", err
	}

	today := s.clock.Today()
	var pending, recurringDue []model.Task
	for _, task := range tasks {
		switch {
		case task.IsRecurring && task.SeriesActive:
			if dueSoon(task, today) {
				recurringDue = append(recurringDue, task)
			}
		default:
			pending = append(pending, task)
		}
	}
	sortByDue(pending)
	sortByDue(recurringDue)

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format("02.01.2006")))

	builder.WriteString("🔥 <b>Текущие задачи</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— нет открытых задач\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, catNames, today))
		}
	}

	builder.WriteString("\n♻️ <b>Регулярные задачи</b>\n")
	if len(recurringDue) == 0 {
		builder.WriteString("— нет задач в окне выполнения\n")
	} else {
		for _, task := range recurringDue {
			builder.WriteString(formatRecurring(task, catNames, today, s.clock.location()))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// dueSoon reports whether the current occurrence of an active series is
// overdue or falls within the task's reminder window.
func dueSoon(task model.Task, today time.Time) bool {
	if !task.IsRecurring || !task.SeriesActive || task.Deadline == nil {
		return false
	}
	return DaysUntil(today, task.DueDate()) <= task.RecurWindow
}

func sortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate(), tasks[j].DueDate()
		switch {
		case a.IsZero() && b.IsZero():
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})
}

func categorySuffix(task model.Task, catNames map[uint]string) string {
	if task.CategoryID == nil {
		return ""
	}
	name := strings.TrimSpace(catNames[*task.CategoryID])
	if name == "" {
		return ""
	}
	return fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name))
}

func formatTask(task model.Task, catNames map[uint]string, today time.Time) string {
	var sb strings.Builder

	due := task.DueDate()
	icon := "🟢"
	if !due.IsZero() {
		switch left := DaysUntil(today, due); {
		case left < 0:
			icon = "⚠️"
		case left <= 2:
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s", icon, title))
	sb.WriteString(categorySuffix(task, catNames))

	if !due.IsZero() {
		if left := DaysUntil(today, due); left < 0 {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s — <b>просрочено</b>", due.Format(recurrence.DateLayout)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s · осталось %d дн.", due.Format(recurrence.DateLayout), left))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatRecurring(task model.Task, catNames map[uint]string, today time.Time, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("♻️ %s", html.EscapeString(strings.TrimSpace(task.Title))))
	sb.WriteString(categorySuffix(task, catNames))

	due := task.DueDate()
	status := "сегодня"
	switch left := DaysUntil(today, due); {
	case left < 0:
		status = "<b>просрочено</b>"
	case left > 0:
		status = fmt.Sprintf("через %d дн.", left)
	}
	sb.WriteString(fmt.Sprintf("\n   📆 Срок: %s, %s (окно %d дн.)", due.Format(recurrence.DateLayout), status, task.RecurWindow))

	if state, err := task.Recurrence(); err == nil && state.Rule != nil {
		sb.WriteString(fmt.Sprintf("\n   🔄 %s", DescribeRule(*state.Rule)))
	}
	if next := UpcomingDates(task, upcomingInReport); len(next) > 0 {
		dates := make([]string, 0, len(next))
		for _, d := range next {
			dates = append(dates, d.Format(recurrence.DateLayout))
		}
		sb.WriteString(fmt.Sprintf("\n   ➡️ Далее: %s", strings.Join(dates, ", ")))
	} else {
		sb.WriteString("\n   🏁 Последнее повторение")
	}
	if task.LastCompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\n   ✅ Последнее выполнение: %s", task.LastCompletedAt.In(loc).Format(recurrence.DateLayout)))
	} else {
		sb.WriteString("\n   ✅ Пока не выполнялась")
	}

	sb.WriteByte('\n')
	return sb.String()
}
