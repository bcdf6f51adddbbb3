package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recurring-planner/internal/config"
	"recurring-planner/internal/logging"
	"recurring-planner/internal/model"
	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/repository"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Print the occurrence log of a task",
	Long: `Reads the database configured through DATABASE_URL or the config file and
prints what happened to each occurrence of the task, oldest first.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "show only the last N records (0 shows all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || taskID == 0 {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	cfg, err := config.LoadFile()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: true, Out: cmd.ErrOrStderr()})
	if cfg.LogLevel == "" {
		log = log.Level(zerolog.WarnLevel)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewStore(db)
	occs, err := store.Occurrences.ListByTask(cmd.Context(), 0, uint(taskID), historyLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	printHistory(cmd.OutOrStdout(), uint(taskID), occs, cfg.Location)
	return nil
}

func printHistory(w io.Writer, taskID uint, occs []model.Occurrence, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	if len(occs) == 0 {
		fmt.Fprintf(w, "No history for task %d.\n", taskID)
		return
	}
	fmt.Fprintf(w, "%-10s  %-8s  %4s  %s\n", "DUE", "ACTION", "SEQ", "RECORDED")
	for _, occ := range occs {
		fmt.Fprintf(w, "%-10s  %-8s  %4d  %s\n",
			occ.DueDate.UTC().Format(recurrence.DateLayout),
			occ.Action,
			occ.Sequence,
			occ.RecordedAt.In(loc).Format("2006-01-02 15:04"),
		)
	}
}
