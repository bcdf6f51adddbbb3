package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"recurring-planner/internal/config"
	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
	"recurring-planner/internal/service"
)

// Services bundles what the bot talks to.
type Services struct {
	Users      *repository.UserRepository
	Categories *service.CategoryService
	Tasks      *service.TaskService
	Reminders  *service.ReminderService
	Scheduler  *service.SchedulerService
	Clock      service.Clock
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api         *tgbotapi.BotAPI
	userRepo    *repository.UserRepository
	categorySvc *service.CategoryService
	taskSvc     *service.TaskService
	reminderSvc *service.ReminderService
	scheduler   *service.SchedulerService
	clock       service.Clock
	config      *config.Config
	log         zerolog.Logger

	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	reportEntry   cron.EntryID
	mu            sync.Mutex
}

func New(token string, svc Services, cfg *config.Config, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log = log.With().Str("component", "bot").Logger()
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		userRepo:      svc.Users,
		categorySvc:   svc.Categories,
		taskSvc:       svc.Tasks,
		reminderSvc:   svc.Reminders,
		scheduler:     svc.Scheduler,
		clock:         svc.Clock,
		config:        cfg,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Int64("from", update.Message.Chat.ID).Msg("handle message")
			}
		}
	}

	return ctx.Err()
}

// ScheduleReports registers the periodic report and, when configured, the
// fixed-time daily report.
func (b *Bot) ScheduleReports() error {
	if b.scheduler == nil || b.config == nil {
		return nil
	}
	id, err := b.scheduler.ScheduleInterval(b.config.ReportInterval, b.reportJob)
	if err != nil {
		return fmt.Errorf("schedule reports: %w", err)
	}
	b.mu.Lock()
	b.reportEntry = id
	b.mu.Unlock()

	if b.config.DailyReportAt != "" {
		if _, err := b.scheduler.ScheduleDaily(b.config.DailyReportAt, b.reportJob); err != nil {
			return fmt.Errorf("schedule daily report: %w", err)
		}
	}
	return nil
}

func (b *Bot) reportJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.SendDailyReports(ctx); err != nil && !errors.Is(err, context.Canceled) {
		b.log.Error().Err(err).Msg("send reports")
	}
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminderSvc.DailySummary(ctx, user)
		if err != nil {
			b.log.Error().Err(err).Int64("telegram_id", user.TelegramID).Msg("build summary")
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Error().Err(err).Int64("telegram_id", user.TelegramID).Msg("send summary")
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// userError turns a service error into a message for the chat.
func userError(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return "Задача не найдена."
	case errors.Is(err, service.ErrAlreadyCompleted):
		return "Задача уже выполнена."
	case errors.Is(err, service.ErrTitleRequired):
		return "Название задачи не может быть пустым."
	case errors.Is(err, service.ErrNothingToEdit):
		return "Нечего менять. Пример: /edit 3 all title=Новое название"
	case errors.Is(err, recurrence.ErrSeriesEnded):
		return "Повторение этой задачи уже закончилось."
	case errors.Is(err, recurrence.ErrNotRecurring):
		return "Эта задача не повторяется."
	case errors.Is(err, recurrence.ErrInvalidRule):
		return fmt.Sprintf("Некорректное правило повтора: %s", escape(err.Error()))
	case errors.Is(err, recurrence.ErrInvalidEdit):
		return fmt.Sprintf("Такое изменение невозможно: %s", escape(err.Error()))
	case errors.Is(err, repository.ErrConflict):
		return "Задачу только что изменили. Попробуй ещё раз."
	default:
		return fmt.Sprintf("Ошибка: %s", escape(err.Error()))
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Главное меню")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
