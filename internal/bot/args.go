package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

const dateLayout = "2006-01-02"

var errNoTaskID = errors.New("task id is required")

var ruWeekdays = map[string]time.Weekday{
	"пн": time.Monday, "понедельник": time.Monday,
	"вт": time.Tuesday, "вторник": time.Tuesday,
	"ср": time.Wednesday, "среда": time.Wednesday,
	"чт": time.Thursday, "четверг": time.Thursday,
	"пт": time.Friday, "пятница": time.Friday,
	"сб": time.Saturday, "суббота": time.Saturday,
	"вс": time.Sunday, "воскресенье": time.Sunday,
}

func parseTaskID(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return 0, errNoTaskID
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(value), nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

// parseFrequency accepts the dialog buttons, Russian words and the English
// names understood by the engine.
func parseFrequency(raw string) (recurrence.Frequency, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(value, "день") || strings.Contains(value, "дневн"):
		return recurrence.Daily, nil
	case strings.Contains(value, "недел"):
		return recurrence.Weekly, nil
	case strings.Contains(value, "месяц") || strings.Contains(value, "месячн"):
		return recurrence.Monthly, nil
	case strings.Contains(value, "год") || strings.Contains(value, "годн"):
		return recurrence.Yearly, nil
	}
	return recurrence.ParseFrequency(value)
}

// parseWeekdays accepts Russian abbreviations ("пн,ср") as well as the
// English names.
func parseWeekdays(raw string) (recurrence.WeekdaySet, error) {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var set recurrence.WeekdaySet
	var rest []string
	for _, f := range fields {
		if d, ok := ruWeekdays[f]; ok {
			set = set.With(d)
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) > 0 {
		en, err := recurrence.ParseWeekdays(strings.Join(rest, ","))
		if err != nil {
			return 0, err
		}
		for _, d := range en.Days() {
			set = set.With(d)
		}
	}
	return set, nil
}

// endInput is an end condition typed by the user: a date, an occurrence
// count, or "never".
type endInput struct {
	until *time.Time
	count int
}

func parseEnd(raw string) (endInput, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", "-", "никогда", "без конца", "never", "forever", "0":
		return endInput{}, nil
	}
	if d, err := parseDate(value); err == nil {
		return endInput{until: &d}, nil
	}
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(value, "раз"), "раза"))
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return endInput{count: n}, nil
	}
	return endInput{}, fmt.Errorf("%w: cannot read end condition %q", recurrence.ErrInvalidRule, raw)
}

func (e endInput) apply(in *service.RecurrenceInput) {
	in.Until = e.until
	in.Count = e.count
}

// editArgs is a parsed "/edit <id> [this|all] key=value ..." command.
type editArgs struct {
	taskID   uint
	scope    recurrence.EditScope
	hasScope bool
	fields   map[string]string
}

var editKeys = map[string]string{
	"title":       "title",
	"name":        "title",
	"desc":        "description",
	"description": "description",
	"due":         "due",
	"deadline":    "due",
	"freq":        "freq",
	"every":       "freq",
	"interval":    "interval",
	"days":        "days",
	"until":       "until",
	"count":       "count",
	"end":         "end",
	"window":      "window",
	"repeat":      "repeat",
}

// parseEditArgs reads the arguments of /edit. A value runs until the next
// known key, so titles may contain spaces: "title=Buy milk due=2025-01-01".
func parseEditArgs(raw string) (editArgs, error) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return editArgs{}, errNoTaskID
	}
	id, err := parseTaskID(tokens[0])
	if err != nil {
		return editArgs{}, err
	}
	args := editArgs{taskID: id, fields: make(map[string]string)}
	tokens = tokens[1:]

	if len(tokens) > 0 && !strings.Contains(tokens[0], "=") {
		scope, err := recurrence.ParseEditScope(tokens[0])
		if err != nil {
			return editArgs{}, err
		}
		args.scope, args.hasScope = scope, true
		tokens = tokens[1:]
	}

	var current string
	for _, tok := range tokens {
		if key, value, ok := strings.Cut(tok, "="); ok {
			if name, known := editKeys[strings.ToLower(key)]; known {
				current = name
				args.fields[current] = value
				continue
			}
		}
		if current == "" {
			return editArgs{}, fmt.Errorf("%w: expected key=value, got %q", recurrence.ErrInvalidEdit, tok)
		}
		args.fields[current] += " " + tok
	}
	for k, v := range args.fields {
		args.fields[k] = strings.TrimSpace(v)
	}
	if len(args.fields) == 0 {
		return editArgs{}, service.ErrNothingToEdit
	}
	return args, nil
}

func (a editArgs) touchesRule() bool {
	for _, k := range []string{"freq", "interval", "days", "until", "count", "end"} {
		if _, ok := a.fields[k]; ok {
			return true
		}
	}
	return false
}

// buildEdit turns parsed arguments into a service edit. Rule fields that are
// not mentioned keep the task's current values.
func buildEdit(task model.Task, a editArgs) (service.TaskEdit, error) {
	edit := service.TaskEdit{Scope: a.scope}
	if !a.hasScope {
		if task.IsRecurring {
			return edit, fmt.Errorf("%w: choose this or all for a recurring task", recurrence.ErrInvalidEdit)
		}
		edit.Scope = recurrence.ScopeAllFuture
	}

	if v, ok := a.fields["title"]; ok {
		edit.Title = &v
	}
	if v, ok := a.fields["description"]; ok {
		edit.Description = &v
	}
	if v, ok := a.fields["due"]; ok {
		d, err := parseDate(v)
		if err != nil {
			return edit, fmt.Errorf("%w: due date must look like 2025-11-30", recurrence.ErrInvalidEdit)
		}
		edit.Deadline = &d
	}
	if v, ok := a.fields["window"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 14 {
			return edit, fmt.Errorf("%w: window must be 0..14 days", recurrence.ErrInvalidEdit)
		}
		edit.RecurWindow = &n
	}
	if v, ok := a.fields["repeat"]; ok {
		switch strings.ToLower(v) {
		case "off", "no", "нет", "false":
			edit.DropRecurrence = true
		default:
			return edit, fmt.Errorf("%w: repeat only accepts off", recurrence.ErrInvalidEdit)
		}
	}

	if a.touchesRule() {
		in, err := ruleInput(task, a.fields)
		if err != nil {
			return edit, err
		}
		edit.Recurrence = &in
	}
	return edit, nil
}

func ruleInput(task model.Task, fields map[string]string) (service.RecurrenceInput, error) {
	in := service.RecurrenceInput{Interval: 1}
	if task.IsRecurring {
		in.Frequency = recurrence.Frequency(task.RecurFrequency)
		in.Interval = task.RecurInterval
		days, err := recurrence.ParseWeekdays(task.RecurWeekdays)
		if err != nil {
			return in, err
		}
		in.Weekdays = days
		if task.RecurUntil != nil {
			u := model.CalendarDate(task.RecurUntil.UTC())
			in.Until = &u
		}
		in.Count = task.RecurCount
	}

	if v, ok := fields["freq"]; ok {
		freq, err := parseFrequency(v)
		if err != nil {
			return in, err
		}
		if freq != in.Frequency && freq != recurrence.Weekly {
			in.Weekdays = 0
		}
		in.Frequency = freq
	}
	if in.Frequency == "" {
		return in, fmt.Errorf("%w: set freq=daily|weekly|monthly|yearly", recurrence.ErrInvalidRule)
	}
	if v, ok := fields["interval"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > recurrence.MaxInterval {
			return in, fmt.Errorf("%w: interval must be a number in 1..%d", recurrence.ErrInvalidRule, recurrence.MaxInterval)
		}
		in.Interval = n
	}
	if v, ok := fields["days"]; ok {
		days, err := parseWeekdays(v)
		if err != nil {
			return in, err
		}
		in.Weekdays = days
	}
	if v, ok := fields["end"]; ok {
		end, err := parseEnd(v)
		if err != nil {
			return in, err
		}
		end.apply(&in)
	}
	if v, ok := fields["until"]; ok {
		end, err := parseEnd(v)
		if err != nil {
			return in, err
		}
		end.apply(&in)
	}
	if v, ok := fields["count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return in, fmt.Errorf("%w: count must be a positive number, use end=never to remove the limit", recurrence.ErrInvalidRule)
		}
		in.Until = nil
		in.Count = n
	}
	return in, nil
}
