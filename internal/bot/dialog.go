package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stageDeadline
	stageRecurring
	stageFrequency
	stageInterval
	stageWeekdays
	stageEnd
	stageWindow
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.log.Debug().Int64("from", msg.From.ID).Msg("start new task conversation")
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	b.log.Debug().Int64("from", msg.From.ID).Int("stage", int(state.stage)).Msg("conversation step")

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "Название не может быть пустым. Как назвать задачу?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ Добавь короткое описание (или нажми «Пропустить»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(chatID, "🏷 Выбери категорию или отправь свою (можно «Пропустить»).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageDeadline
		return b.sendWithReplyMarkup(chatID, "⏰ Укажи дедлайн в формате <code>2025-11-30</code> (или «Пропустить»). Для повторяющейся задачи это дата первого раза.", skipKeyboard())
	case stageDeadline:
		if !isSkipInput(text) {
			parsed, err := parseDate(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.Deadline = &parsed
		}
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(chatID, "🔁 Сделать задачу повторяющейся?", yesNoKeyboard())
	case stageRecurring:
		switch strings.ToLower(text) {
		case "да", "yes", "y":
			state.input.Recurrence = &service.RecurrenceInput{Interval: 1}
			state.stage = stageFrequency
			return b.sendWithReplyMarkup(chatID, "📆 Как часто повторять?", frequencyKeyboard())
		case "нет", "no", "n", "-":
			state.input.Recurrence = nil
			return b.finishTaskCreation(ctx, msg.From, state.input, chatID)
		}
		return b.sendWithReplyMarkup(chatID, "Нажми «Да» или «Нет».", yesNoKeyboard())
	case stageFrequency:
		freq, err := parseFrequency(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Выбери вариант на клавиатуре.", frequencyKeyboard())
		}
		state.input.Recurrence.Frequency = freq
		state.stage = stageInterval
		return b.sendWithReplyMarkup(chatID, "🔢 С каким шагом? 1 — каждый раз, 2 — через раз и т.д. (или «Пропустить»).", skipKeyboard())
	case stageInterval:
		if !isSkipInput(text) {
			n, err := strconv.Atoi(text)
			if err != nil || n < 1 || n > 365 {
				return b.sendWithReplyMarkup(chatID, "Шаг должен быть числом от 1 до 365.", skipKeyboard())
			}
			state.input.Recurrence.Interval = n
		}
		if state.input.Recurrence.Frequency == recurrence.Weekly {
			state.stage = stageWeekdays
			return b.sendWithReplyMarkup(chatID, "📅 В какие дни недели? Например: <code>пн, ср, пт</code> (или «Пропустить» — в тот же день недели).", skipKeyboard())
		}
		state.stage = stageEnd
		return b.sendWithReplyMarkup(chatID, "🏁 Когда закончить? Дата <code>2025-12-31</code>, число повторений (например <code>10</code>) или «Без конца».", endKeyboard())
	case stageWeekdays:
		if !isSkipInput(text) {
			days, err := parseWeekdays(text)
			if err != nil || days.Empty() {
				return b.sendWithReplyMarkup(chatID, "Не понял дни недели. Пример: <code>пн, ср, пт</code>.", skipKeyboard())
			}
			state.input.Recurrence.Weekdays = days
		}
		state.stage = stageEnd
		return b.sendWithReplyMarkup(chatID, "🏁 Когда закончить? Дата <code>2025-12-31</code>, число повторений (например <code>10</code>) или «Без конца».", endKeyboard())
	case stageEnd:
		if !isNoEndInput(text) {
			end, err := parseEnd(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Укажи дату, число повторений или нажми «Без конца».", endKeyboard())
			}
			end.apply(state.input.Recurrence)
		}
		state.stage = stageWindow
		return b.sendWithReplyMarkup(chatID, "⏳ За сколько дней до срока напоминать в отчёте? (0–14)", tgbotapi.NewRemoveKeyboard(true))
	case stageWindow:
		window, err := strconv.Atoi(text)
		if err != nil || window < 0 || window > 14 {
			return b.sendText(chatID, "Окно должно быть числом от 0 до 14.")
		}
		state.input.RecurWindow = window
		return b.finishTaskCreation(ctx, msg.From, state.input, chatID)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(chatID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	b.clearConversation(from.ID)
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendTextWithRemove(chatID, "Не удалось сохранить задачу. "+userError(err))
	}

	msg := tgbotapi.NewMessage(chatID, formatSaved(*task))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}
