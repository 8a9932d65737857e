// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/service"
)

// nextOptions are the inputs of the next command.
type nextOptions struct {
	date         string
	frequency    string
	weekdays     []string
	monthlyMode  string
	weekInterval int
	count        int
}

// nextCmd previews the next occurrences of a recurrence without touching
// any store.
func nextCmd(app *App) *cobra.Command {
	opts := nextOptions{}
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next occurrences of a recurrence",
		Example: `  event-roster-admin next --date 2024-01-03 --frequency biweekly --weekdays wed,fri
  event-roster-admin next --date 2024-01-31 --frequency monthly --monthly-mode date --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := nextOccurrences(opts)
			if err != nil {
				return err
			}
			app.logger.Debug("next command", zap.String("frequency", opts.frequency), zap.Int("occurrences", len(dates)))
			if len(dates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no further occurrences")
				return nil
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), service.FormatDate(d))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "base date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.frequency, "frequency", string(models.FrequencyWeekly), "none, daily, weekly, biweekly or monthly")
	cmd.Flags().StringSliceVar(&opts.weekdays, "weekdays", nil, "weekdays for weekly and biweekly recurrences, e.g. mon,thu")
	cmd.Flags().StringVar(&opts.monthlyMode, "monthly-mode", string(models.MonthlyModeWeekday), "weekday or date")
	cmd.Flags().IntVar(&opts.weekInterval, "week-interval", 2, "minimum ISO week gap for biweekly recurrences")
	cmd.Flags().IntVar(&opts.count, "count", 1, "number of occurrences to print")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func nextOccurrences(opts nextOptions) ([]time.Time, error) {
	base, err := time.Parse(service.DateLayout, opts.date)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: %w", opts.date, err)
	}

	frequency := models.Frequency(strings.ToLower(opts.frequency))
	switch frequency {
	case models.FrequencyNone, models.FrequencyDaily, models.FrequencyWeekly,
		models.FrequencyBiweekly, models.FrequencyMonthly:
	default:
		return nil, fmt.Errorf("unknown --frequency %q", opts.frequency)
	}

	mode := models.MonthlyMode(strings.ToLower(opts.monthlyMode))
	if mode != models.MonthlyModeWeekday && mode != models.MonthlyModeDate {
		return nil, fmt.Errorf("unknown --monthly-mode %q", opts.monthlyMode)
	}

	weekdays, err := service.ParseWeekdays(opts.weekdays)
	if err != nil {
		return nil, err
	}
	if opts.count < 1 {
		return nil, fmt.Errorf("--count must be positive")
	}

	var dates []time.Time
	current := base
	for range opts.count {
		next, ok := service.NextOccurrence(current, weekdays, frequency, mode, opts.weekInterval)
		if !ok {
			break
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// purgeCmd hard deletes events that match a filter.
func purgeCmd(app *App) *cobra.Command {
	var (
		filter models.EventFilter
		all    bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Hard delete events and their registration records",
		Long: fmt.Sprintf(`Hard deletes the events matching the filter, deleted ones included.
One run removes at most %d events in batches of %d.`, service.PurgeLimit, service.PurgeBatchSize),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter == (models.EventFilter{}) && !all {
				return fmt.Errorf("refusing to purge every event: pass a filter or --all")
			}

			ctx := cmd.Context()
			application, err := app.connect(ctx)
			if err != nil {
				return err
			}

			if dryRun {
				filter.IncludeDeleted = true
				events, err := application.Events.FindMany(ctx, filter, service.PurgeLimit)
				if err != nil {
					return err
				}
				for _, event := range events {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tdeleted=%t\n", event.UID, event.CommunityID, event.Date, event.Deleted)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d events would be purged\n", len(events))
				return nil
			}

			app.logger.Info("purging events",
				zap.String("community_id", filter.CommunityID),
				zap.String("channel_id", filter.ChannelID),
				zap.String("owner_id", filter.OwnerID),
				zap.Bool("only_deleted", filter.OnlyDeleted),
			)
			n, err := application.EventService.PurgeEvents(ctx, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d events\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.CommunityID, "community", "", "only events of this community")
	cmd.Flags().StringVar(&filter.ChannelID, "channel", "", "only events announced in this channel")
	cmd.Flags().StringVar(&filter.OwnerID, "owner", "", "only events owned by this participant id")
	cmd.Flags().BoolVar(&filter.OnlyDeleted, "only-deleted", false, "only soft deleted events")
	cmd.Flags().BoolVar(&all, "all", false, "purge without a filter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the events instead of deleting them")

	return cmd
}

// sweepCmd runs one reschedule sweep.
func sweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reschedule every recurring event that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.connect(ctx)
			if err != nil {
				return err
			}

			start := time.Now()
			n, err := application.EventService.RescheduleDue(ctx)
			if err != nil {
				return err
			}
			app.logger.Info("sweep finished", zap.Int("rescheduled", n), zap.Duration("took", time.Since(start)))
			fmt.Fprintf(cmd.OutOrStdout(), "rescheduled %d events\n", n)
			return nil
		},
	}
}

// rosterCmd prints the reserved slots and the waitlist of an event.
func rosterCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "roster <event-uid>",
		Short: "Show the roster of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.connect(ctx)
			if err != nil {
				return err
			}

			roster, err := application.EventService.GetRoster(ctx, args[0])
			if err != nil {
				return err
			}
			printRoster(cmd, roster)
			return nil
		},
	}
}

func printRoster(cmd *cobra.Command, roster *models.RosterResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Event:     %s\n", roster.EventUID)
	fmt.Fprintf(out, "Capacity:  %d\n\n", roster.PlayerCap)

	fmt.Fprintf(out, "Reserved (%d):\n", len(roster.Reserved))
	for i, p := range roster.Reserved {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, participantLabel(p))
	}
	fmt.Fprintf(out, "Waitlist (%d):\n", len(roster.Waitlist))
	for i, p := range roster.Waitlist {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, participantLabel(p))
	}
}

func participantLabel(p models.Participant) string {
	if p.ID == "" {
		return "@" + p.Tag
	}
	return fmt.Sprintf("@%s (%s)", p.Tag, p.ID)
}
