package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recurring-planner/internal/model"
)

const (
	cbCompletePrefix = "complete:"
	cbSkipPrefix     = "skip:"
	cbDeletePrefix   = "delete:"
)

// historyLimit caps the records shown by /history.
const historyLimit = 15

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID uint
	action confirmationAction
}

const helpText = "ℹ️ <b>Подсказки</b>\n" +
	"• /newtask — добавить задачу пошагово (можно сделать повторяющейся)\n" +
	"• /tasks — показать активные задачи и отметить по кнопке\n" +
	"• /complete &lt;id&gt; — отметить задачу выполненной\n" +
	"• /skip &lt;id&gt; — пропустить текущее повторение\n" +
	"• /stop &lt;id&gt; — остановить повтор, оставив текущую задачу\n" +
	"• /edit &lt;id&gt; this|all ключ=значение — изменить задачу: " +
	"<code>title</code>, <code>desc</code>, <code>due</code>, <code>freq</code>, <code>interval</code>, " +
	"<code>days</code>, <code>until</code>, <code>count</code>, <code>window</code>, <code>repeat=off</code>.\n" +
	"   <i>this</i> — только текущий раз, <i>all</i> — все будущие. Пример: <code>/edit 3 this due=2025-05-02</code>\n" +
	"• /history &lt;id&gt; — история выполнений\n" +
	"• /delete &lt;id&gt; — удалить задачу полностью\n" +
	"• /categories — посмотреть доступные категории\n" +
	"• /interval &lt;часы&gt; — как часто присылать отчёт\n" +
	"• /report — прислать отчёт сейчас\n" +
	"• /cancel — отменить текущий ввод"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Диалог создания задачи отменён. Я здесь, чтобы начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.getConversation(msg.From.ID) != nil {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "report":
		return b.handleReport(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "complete":
		return b.withTaskID(ctx, msg, "/complete 12", b.completeTask)
	case "skip":
		return b.withTaskID(ctx, msg, "/skip 12", b.skipOccurrence)
	case "stop":
		return b.withTaskID(ctx, msg, "/stop 12", b.stopRecurrence)
	case "history":
		return b.withTaskID(ctx, msg, "/history 12", b.showHistory)
	case "delete":
		return b.withTaskID(ctx, msg, "/delete 12", b.deleteTask)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "interval":
		return b.handleInterval(msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Диалог создания задачи отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я ежедневный планировщик: помогу не забыть задачи, в том числе повторяющиеся.</b>\n\n%s",
		escape(name), helpText,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

// withTaskID parses the task id argument, resolves the user and runs fn.
func (b *Bot) withTaskID(ctx context.Context, msg *tgbotapi.Message, example string, fn func(ctx context.Context, chatID int64, user *model.User, taskID uint) error) error {
	taskID, err := parseTaskID(msg.CommandArguments())
	if err == errNoTaskID {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: "+example)
	}
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID задачи должен быть числом.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return fn(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.CompleteTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	return b.sendText(chatID, completedText(*task))
}

func completedText(task model.Task) string {
	title := escape(normalizeTitle(task.Title))
	switch {
	case task.IsRecurring && task.SeriesActive:
		return fmt.Sprintf("♻️ Задача «%s» выполнена. Следующий раз: %s.", title, task.DueDate().Format(dateLayout))
	case task.IsRecurring && task.IsCompleted:
		return fmt.Sprintf("🏁 Задача «%s» выполнена. Повторений больше не будет.", title)
	default:
		return fmt.Sprintf("✅ Задача «%s» выполнена.", title)
	}
}

func (b *Bot) skipOccurrence(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.SkipOccurrence(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	title := escape(normalizeTitle(task.Title))
	if !task.SeriesActive {
		return b.sendText(chatID, fmt.Sprintf("⏭ Повторение пропущено. Серия «%s» завершена.", title))
	}
	return b.sendText(chatID, fmt.Sprintf("⏭ Повторение «%s» пропущено. Следующий раз: %s.", title, task.DueDate().Format(dateLayout)))
}

func (b *Bot) stopRecurrence(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.StopRecurrence(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	text := fmt.Sprintf("⏹ Повтор задачи «%s» остановлен.", escape(normalizeTitle(task.Title)))
	if due := task.DueDate(); !due.IsZero() && !task.IsCompleted {
		text += fmt.Sprintf(" Текущий срок %s остаётся.", due.Format(dateLayout))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) showHistory(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	occs, err := b.taskSvc.History(ctx, user, taskID, historyLimit)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	detached, err := b.taskSvc.DetachedCopies(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	return b.sendText(chatID, formatHistory(*task, occs, detached, b.location()))
}

// deleteTask removes a task completely (recurring ones included).
func (b *Bot) deleteTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось удалить задачу. %s", userError(err)))
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Задача \"%s\" удалена.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	args, err := parseEditArgs(msg.CommandArguments())
	if err == errNoTaskID {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /edit 12 all title=Новое название")
	}
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, args.taskID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	edit, err := buildEdit(*task, args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}

	out, err := b.taskSvc.EditTask(ctx, user, task.ID, edit)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}

	today := b.clock.Today()
	var text strings.Builder
	text.WriteString("✏️ <b>Задача обновлена</b>\n\n")
	if out.Detached != nil {
		text.WriteString("Текущий раз вынесен в отдельную задачу:\n")
		text.WriteString(formatTask(*out.Detached, today))
		text.WriteString("Серия продолжается:\n")
	}
	if out.Task.IsRecurring && !out.Task.Ended() {
		text.WriteString(formatRecurringTask(*out.Task, today))
	} else {
		text.WriteString(formatTask(*out.Task, today))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(text.String()))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.categorySvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить категории: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категории пока пусты. Добавь их при создании задачи.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", categoryLabel(cat.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleInterval(msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		b.mu.Lock()
		current := b.config.ReportInterval
		b.mu.Unlock()
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Текущий интервал отчётов: %d ч. Укажи число часов, например: /interval 4", int(current.Hours())))
	}
	hours, err := strconv.Atoi(args)
	if err != nil || hours <= 0 || hours > 24*7 {
		return b.sendText(msg.Chat.ID, "Интервал должен быть положительным числом часов, например /interval 6")
	}
	interval := time.Duration(hours) * time.Hour

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scheduler != nil && b.reportEntry != 0 {
		next, err := b.scheduler.Reschedule(b.reportEntry, interval, b.reportJob)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось изменить расписание: %s", escape(err.Error())))
		}
		b.reportEntry = next
	}
	b.config.ReportInterval = interval
	b.log.Info().Dur("interval", interval).Msg("report interval changed")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Интервал уведомлений обновлён: каждые %d ч.", hours))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "У тебя нет активных задач. Добавь новую через /newtask.")
	}
	names, err := b.categorySvc.Names(ctx, user)
	if err != nil {
		b.log.Warn().Err(err).Uint("user_id", user.ID).Msg("load category names")
	}

	today := b.clock.Today()
	var text strings.Builder
	text.WriteString("📋 <b>Текущие задачи</b>\n")
	text.WriteString("Кнопки под списком: ✅ выполнить, ⏭ пропустить повторение, 🗑 удалить.\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range groupByCategory(tasks, names) {
		text.WriteString("<b>" + group.label + "</b>\n")
		for _, task := range group.tasks {
			if task.IsRecurring && task.SeriesActive {
				text.WriteString(formatRecurringTask(task, today))
			} else {
				text.WriteString(formatTask(task, today))
			}
			rows = append(rows, taskButtons(task))
		}
		text.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(text.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

// taskButtons is the inline keyboard row under one task of the list.
func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	id := strconv.FormatUint(uint64(task.ID), 10)
	if !task.IsRecurring || !task.SeriesActive {
		label := fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24))
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, cbCompletePrefix+id))
	}
	label := fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 16))
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(label, cbCompletePrefix+id),
		tgbotapi.NewInlineKeyboardButtonData("⏭", cbSkipPrefix+id),
		tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+id),
	)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	b.ack(cb)

	prefix, raw, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return nil
	}
	taskID, err := parseTaskID(raw)
	if err != nil {
		return nil
	}
	b.log.Debug().Int64("from", cb.From.ID).Str("action", prefix).Uint("task_id", taskID).Msg("callback")

	chatID := cb.Message.Chat.ID
	switch prefix + ":" {
	case cbCompletePrefix:
		return b.askConfirmation(ctx, chatID, cb.From, taskID, actionComplete)
	case cbDeletePrefix:
		return b.askConfirmation(ctx, chatID, cb.From, taskID, actionDelete)
	case cbSkipPrefix:
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		if err := b.skipOccurrence(ctx, chatID, user, taskID); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user)
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}

	var text string
	switch {
	case action == actionDelete:
		text = fmt.Sprintf("Удалить задачу \"%s\" (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	case task.IsCompleted:
		return b.sendText(chatID, "Задача уже выполнена.")
	case task.IsRecurring && task.SeriesActive:
		text = fmt.Sprintf("Отметить повторение «%s» (#%d) на %s как выполненное?",
			escape(normalizeTitle(task.Title)), task.ID, task.DueDate().Format(dateLayout))
	default:
		text = fmt.Sprintf("Отметить задачу «%s» (#%d) как выполненную?", escape(normalizeTitle(task.Title)), task.ID)
	}
	b.setConfirmation(from.ID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Подтверди или отмени выполнение задачи."
		if req.action == actionDelete {
			prompt = "Подтверди или отмени удаление задачи."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.CompleteTask(ctx, user, taskID)
	if err != nil {
		return b.sendTextWithRemove(chatID, userError(err))
	}
	if err := b.sendTextWithRemove(chatID, completedText(*task)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendTextWithRemove(chatID, userError(err))
	}
	if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
		return b.sendTextWithRemove(chatID, userError(err))
	}
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задача \"%s\" удалена.", escape(normalizeTitle(task.Title)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.sendText(msg.Chat.ID, helpText)
	default:
		return false, nil
	}
}

func (b *Bot) location() *time.Location {
	if b.clock.Location != nil {
		return b.clock.Location
	}
	return time.Local
}
