package bot

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

const (
	noCategory    = "Без категории"
	noCategoryKey = "__no_category__"
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
	iconStopped   = "⏹"
)

var actionLabels = map[string]string{
	model.ActionComplete: "✅ выполнено",
	model.ActionSkip:     "⏭ пропущено",
	model.ActionStop:     "⏹ повтор остановлен",
	model.ActionDetach:   "✂️ вынесено в отдельную задачу",
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "учеба":
		icon = "🎓"
	case "работа":
		icon = "💼"
	case "покупки":
		icon = "🛒"
	case "здоровье":
		icon = "🩺"
	case "личное":
		icon = "🧩"
	case strings.ToLower(noCategory):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func normalizedCategory(categoryID *uint, catNames map[uint]string) (string, string) {
	if categoryID == nil {
		return noCategoryKey, categoryLabel(noCategory)
	}
	if name, ok := catNames[*categoryID]; ok {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return noCategoryKey, categoryLabel(noCategory)
		}
		return strings.ToLower(trimmed), categoryLabel(trimmed)
	}
	return noCategoryKey, categoryLabel(noCategory)
}

func dueLine(label string, due, today time.Time) string {
	left := service.DaysUntil(today, due)
	switch {
	case left < 0:
		return fmt.Sprintf("   ⏰ %s: %s — <b>просрочено</b>\n", label, due.Format(dateLayout))
	case left == 0:
		return fmt.Sprintf("   ⏰ %s: %s · сегодня\n", label, due.Format(dateLayout))
	default:
		return fmt.Sprintf("   ⏰ %s: %s · осталось %d дн.\n", label, due.Format(dateLayout), left)
	}
}

func formatTask(task model.Task, today time.Time) string {
	var b strings.Builder
	due := task.DueDate()
	icon := iconDefault
	if task.Ended() {
		icon = iconStopped
	} else if !due.IsZero() {
		switch left := service.DaysUntil(today, due); {
		case left < 0:
			icon = iconOverdue
		case left <= 2:
			icon = iconDue
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(normalizeTitle(task.Title))))
	if !due.IsZero() {
		b.WriteString(dueLine("Дедлайн", due, today))
	}
	if task.Ended() {
		b.WriteString("   ⏹ Повтор остановлен, осталось последнее выполнение\n")
	}
	if task.DetachedFromID != nil {
		b.WriteString(fmt.Sprintf("   ✂️ Вынесена из серии #%d\n", *task.DetachedFromID))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatRecurringTask(task model.Task, today time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", iconRecurring, task.ID, escape(normalizeTitle(task.Title))))

	if due := task.DueDate(); !due.IsZero() {
		b.WriteString(dueLine("Срок", due, today))
	}
	if state, err := task.Recurrence(); err == nil && state.Rule != nil {
		b.WriteString(fmt.Sprintf("   🔄 %s", service.DescribeRule(*state.Rule)))
		if task.RecurWindow > 0 {
			b.WriteString(fmt.Sprintf(" (напомнить за %d дн.)", task.RecurWindow))
		}
		b.WriteByte('\n')
		if n, ok := state.Rule.End().MaxCount(); ok {
			left, _ := recurrence.Remaining(*state.Rule, task.OccurrencesCompleted)
			b.WriteString(fmt.Sprintf("   📊 Выполнено %d из %d, осталось %d\n", task.OccurrencesCompleted, n, left))
		}
	}
	if next := service.UpcomingDates(task, 1); len(next) > 0 {
		b.WriteString(fmt.Sprintf("   ➡️ Следующий раз: %s\n", next[0].Format(dateLayout)))
	} else {
		b.WriteString("   🏁 Последнее повторение\n")
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatSaved(task model.Task) string {
	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Описание:</b> %s\n", escape(task.Description)))
	}
	if due := task.DueDate(); !due.IsZero() {
		label := "Дедлайн"
		if task.IsRecurring {
			label = "Первый раз"
		}
		summary.WriteString(fmt.Sprintf("• <b>%s:</b> %s\n", label, due.Format(dateLayout)))
	}
	if state, err := task.Recurrence(); err == nil && state.Rule != nil {
		summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s (окно %d дн.)\n", service.DescribeRule(*state.Rule), task.RecurWindow))
	}
	return strings.TrimSpace(summary.String())
}

func formatHistory(task model.Task, occs []model.Occurrence, detached []model.Task, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕘 <b>История</b> #%d «%s»\n", task.ID, escape(normalizeTitle(task.Title))))
	if len(occs) == 0 {
		b.WriteString("— пока пусто\n")
	}
	for _, occ := range occs {
		label, ok := actionLabels[occ.Action]
		if !ok {
			label = escape(occ.Action)
		}
		b.WriteString(fmt.Sprintf("• %s — %s", occ.DueDate.UTC().Format(dateLayout), label))
		if occ.Sequence > 0 && occ.Action != model.ActionDetach {
			b.WriteString(fmt.Sprintf(" (№%d)", occ.Sequence))
		}
		b.WriteString(fmt.Sprintf(" · %s\n", occ.RecordedAt.In(loc).Format("02.01 15:04")))
	}
	if len(detached) > 0 {
		b.WriteString("\n✂️ <b>Отдельные задачи из серии</b>\n")
		for _, d := range detached {
			status := "открыта"
			if d.IsCompleted {
				status = "выполнена"
			}
			line := fmt.Sprintf("• #%d %s", d.ID, escape(normalizeTitle(d.Title)))
			if due := d.DueDate(); !due.IsZero() {
				line += " · " + due.Format(dateLayout)
			}
			b.WriteString(line + " · " + status + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

type taskGroup struct {
	label string
	tasks []model.Task
}

// groupByCategory splits tasks by category. Groups are ordered by name with
// uncategorized tasks last; inside a group tasks go by due date, undated last.
func groupByCategory(tasks []model.Task, names map[uint]string) []taskGroup {
	index := make(map[string]int)
	keys := make([]string, 0)
	var groups []taskGroup
	for _, task := range tasks {
		key, label := normalizedCategory(task.CategoryID, names)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			keys = append(keys, key)
			groups = append(groups, taskGroup{label: label})
		}
		groups[i].tasks = append(groups[i].tasks, task)
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, c int) bool {
		ka, kc := keys[order[a]], keys[order[c]]
		if (ka == noCategoryKey) != (kc == noCategoryKey) {
			return kc == noCategoryKey
		}
		return ka < kc
	})

	out := make([]taskGroup, 0, len(groups))
	for _, i := range order {
		g := groups[i]
		sort.SliceStable(g.tasks, func(a, c int) bool { return dueBefore(g.tasks[a], g.tasks[c]) })
		out = append(out, g)
	}
	return out
}

func dueBefore(a, c model.Task) bool {
	da, dc := a.DueDate(), c.DueDate()
	switch {
	case da.IsZero() != dc.IsZero():
		return dc.IsZero()
	case !da.Equal(dc):
		return da.Before(dc)
	case a.IsRecurring != c.IsRecurring:
		return !a.IsRecurring
	}
	return a.ID < c.ID
}
