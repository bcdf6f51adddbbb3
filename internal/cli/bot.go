package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recurring-planner/internal/bot"
	"recurring-planner/internal/config"
	"recurring-planner/internal/logging"
	"recurring-planner/internal/repository"
	"recurring-planner/internal/service"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot and the report scheduler",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: cfg.LogConsole})

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewStore(db)
	clock := service.SystemClock(cfg.Location)
	scheduler := service.NewSchedulerService(cfg.Location, log)

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		Users:      store.Users,
		Categories: service.NewCategoryService(store.Categories),
		Tasks:      service.NewTaskService(store, clock, log),
		Reminders:  service.NewReminderService(store, clock),
		Scheduler:  scheduler,
		Clock:      clock,
	}, &cfg, log)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	if err := telegramBot.ScheduleReports(); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().
		Str("db", cfg.DatabaseURL).
		Dur("report_interval", cfg.ReportInterval).
		Str("daily_report_at", cfg.DailyReportAt).
		Str("timezone", cfg.Location.String()).
		Msg("daily planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
