package service

import (
	"fmt"
	"strings"
	"time"

	"recurring-planner/internal/recurrence"
)

var shortWeekdays = map[time.Weekday]string{
	time.Monday:    "пн",
	time.Tuesday:   "вт",
	time.Wednesday: "ср",
	time.Thursday:  "чт",
	time.Friday:    "пт",
	time.Saturday:  "сб",
	time.Sunday:    "вс",
}

// DescribeRule renders a rule in Russian, e.g. "каждые 2 недели (пн, пт), до 2025-06-30".
func DescribeRule(rule recurrence.Rule) string {
	if rule.IsZero() {
		return "без повтора"
	}

	var sb strings.Builder
	n := rule.Interval()
	switch rule.Frequency() {
	case recurrence.Daily:
		sb.WriteString(every(n, "каждый день", "день", "дня", "дней"))
	case recurrence.Weekly:
		sb.WriteString(every(n, "каждую неделю", "неделю", "недели", "недель"))
	case recurrence.Monthly:
		sb.WriteString(every(n, "каждый месяц", "месяц", "месяца", "месяцев"))
	case recurrence.Yearly:
		sb.WriteString(every(n, "каждый год", "год", "года", "лет"))
	}

	if days := rule.Weekdays().Days(); len(days) > 0 {
		names := make([]string, 0, len(days))
		for _, d := range days {
			names = append(names, shortWeekdays[d])
		}
		sb.WriteString(" (" + strings.Join(names, ", ") + ")")
	}

	if until, ok := rule.End().UntilDate(); ok {
		sb.WriteString(", до " + until.Format(recurrence.DateLayout))
	}
	if count, ok := rule.End().MaxCount(); ok {
		sb.WriteString(fmt.Sprintf(", всего %d %s", count, plural(count, "раз", "раза", "раз")))
	}
	return sb.String()
}

func every(n int, single, one, few, many string) string {
	if n == 1 {
		return single
	}
	word := plural(n, one, few, many)
	prefix := "каждые"
	if n%10 == 1 && n%100 != 11 {
		prefix = "каждый"
		if one == "неделю" {
			prefix = "каждую"
		}
	}
	return fmt.Sprintf("%s %d %s", prefix, n, word)
}

// plural picks the Russian noun form for n.
func plural(n int, one, few, many string) string {
	n %= 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

// DaysUntil counts calendar days from today to due; negative when overdue.
func DaysUntil(today, due time.Time) int {
	return int(due.Sub(today).Round(time.Hour).Hours() / 24)
}
