package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"recurring-planner/internal/recurrence"
	"recurring-planner/internal/service"
)

type previewOptions struct {
	freq     string
	interval int
	days     string
	until    string
	count    int
	from     string
	limit    int
}

var previewOpts previewOptions

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the upcoming occurrences of a recurrence rule",
	Long: `Builds a recurrence rule from flags and prints the due dates it produces,
starting with the first occurrence on --from.

Example:
  dailyplanner preview --freq monthly --from 2024-01-31 --count 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPreview(cmd.OutOrStdout(), previewOpts, time.Now())
	},
}

func init() {
	f := previewCmd.Flags()
	f.StringVar(&previewOpts.freq, "freq", "", "frequency: daily, weekly, monthly or yearly")
	f.IntVar(&previewOpts.interval, "interval", 1, "repeat every N units")
	f.StringVar(&previewOpts.days, "days", "", "weekdays for weekly rules, e.g. mon,wed,fri")
	f.StringVar(&previewOpts.until, "until", "", "last allowed date (YYYY-MM-DD)")
	f.IntVar(&previewOpts.count, "count", 0, "stop after N occurrences")
	f.StringVar(&previewOpts.from, "from", "", "first due date (YYYY-MM-DD), defaults to today")
	f.IntVar(&previewOpts.limit, "limit", 10, "how many dates to print")
	_ = previewCmd.MarkFlagRequired("freq")
	rootCmd.AddCommand(previewCmd)
}

func (o previewOptions) input() (service.RecurrenceInput, error) {
	freq, err := recurrence.ParseFrequency(o.freq)
	if err != nil {
		return service.RecurrenceInput{}, err
	}
	days, err := recurrence.ParseWeekdays(o.days)
	if err != nil {
		return service.RecurrenceInput{}, err
	}
	in := service.RecurrenceInput{Frequency: freq, Interval: o.interval, Weekdays: days, Count: o.count}
	if o.until != "" {
		until, err := time.Parse(recurrence.DateLayout, o.until)
		if err != nil {
			return in, fmt.Errorf("invalid --until: %w", err)
		}
		in.Until = &until
	}
	return in, nil
}

func runPreview(w io.Writer, o previewOptions, now time.Time) error {
	if o.limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", o.limit)
	}
	in, err := o.input()
	if err != nil {
		return err
	}
	rule, err := in.Rule()
	if err != nil {
		return err
	}

	first := recurrence.Day(now)
	if o.from != "" {
		if first, err = time.Parse(recurrence.DateLayout, o.from); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}

	state := recurrence.Start(rule, first)
	fmt.Fprintf(w, "Rule: %s\n", state.Rule.String())
	fmt.Fprintf(w, "Описание: %s\n\n", service.DescribeRule(*state.Rule))

	if recurrence.HasEnded(*state.Rule, 0, state.DueDate) {
		fmt.Fprintln(w, "No occurrences: the end date is before the first one.")
		return nil
	}

	dates := append([]time.Time{state.DueDate}, recurrence.Upcoming(*state.Rule, state.DueDate, 0, o.limit-1)...)
	for i, d := range dates {
		fmt.Fprintf(w, "%3d  %s  %s\n", i+1, d.Format(recurrence.DateLayout), d.Weekday().String()[:3])
	}
	if len(dates) < o.limit {
		fmt.Fprintln(w, "(series ends)")
	}
	return nil
}
