package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hwells-dev/careplanner/internal/config"
	"github.com/hwells-dev/careplanner/pkg/clients/scheduleclient"
	"github.com/hwells-dev/careplanner/pkg/core/drag"
	"github.com/hwells-dev/careplanner/pkg/core/model"
	"github.com/hwells-dev/careplanner/pkg/core/planner"
	"github.com/hwells-dev/careplanner/pkg/core/render"
	"github.com/hwells-dev/careplanner/pkg/core/timeline"
	"github.com/hwells-dev/careplanner/pkg/history"
	"github.com/hwells-dev/careplanner/pkg/utils/logging"
)

// pixelsPerRem matches the rendering surface's rem size; the terminal
// view draws one column per rem.
const pixelsPerRem = 16.0

// App holds the application dependencies
type App struct {
	cfg     *config.Config
	client  *scheduleclient.Client
	planner *planner.Planner
	history *history.Store
	logger  *zap.Logger
	ctx     context.Context
}

var (
	env     string
	verbose bool
	app     *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "careplanner",
		Short: "Care planner CLI - view and reschedule care visits on the timeline",
		Long:  `A CLI front end for the care-agency planner: renders the scheduling timeline, reports day statistics, and reschedules or creates visits against the schedule backend.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.history != nil {
				app.history.Close()
			}
			if app != nil && app.logger != nil {
				app.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (test, prod, ...)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on the console")
	rootCmd.PersistentFlags().String("date", "", "Selected date (YYYY-MM-DD, default today)")
	rootCmd.PersistentFlags().Int("zoom", 0, "Zoom level (2-8)")
	rootCmd.PersistentFlags().String("user", "", "Scope to one service user id")
	rootCmd.PersistentFlags().String("filter", "all", "Status filter: all, allocated or unallocated")

	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(rescheduleCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, backend client, optional history store
// and the planner
func initApp(flags *pflag.FlagSet) error {
	var err error
	app = &App{ctx: context.Background()}

	app.logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.logger.Debug("Starting application", zap.String("environment", env))

	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.client, err = scheduleclient.NewClient(app.ctx, app.cfg.BackendBaseURL, app.cfg.APIToken, app.cfg.RequestTimeout())
	if err != nil {
		return fmt.Errorf("failed to create schedule client: %w", err)
	}

	var recorder planner.HistoryRecorder
	if app.cfg.HistoryDatabaseURL != "" {
		app.history, err = history.NewStore(app.ctx, app.cfg.HistoryDatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to history database: %w", err)
		}
		recorder = app.history
		app.logger.Debug("Reschedule history enabled")
	}

	closureRules, err := app.cfg.ParsedClosureRules()
	if err != nil {
		return fmt.Errorf("failed to parse closure rules: %w", err)
	}

	app.planner = planner.New(app.client, recorder, planner.Config{
		WindowRadiusDays: app.cfg.WindowRadiusDays,
		PageSize:         app.cfg.PageSize,
		ClosureRules:     closureRules,
	}, app.logger, printNotice)
	app.planner.SetZoom(app.cfg.DefaultZoom)

	return applyViewFlags(flags)
}

// applyViewFlags threads the shared --date/--zoom/--user/--filter flags
// into the planner
func applyViewFlags(flags *pflag.FlagSet) error {
	if date, _ := flags.GetString("date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
		app.planner.SetSelectedDate(parsed)
	}
	if zoom, _ := flags.GetInt("zoom"); zoom != 0 {
		app.planner.SetZoom(zoom)
	}
	if user, _ := flags.GetString("user"); user != "" {
		app.planner.SetServiceUser(user)
	}
	if filter, _ := flags.GetString("filter"); filter != "" {
		if err := app.planner.SetFilter(model.StatusFilter(filter)); err != nil {
			return err
		}
	}
	return nil
}

func printNotice(n planner.Notice) {
	prefix := "i"
	if n.Level == planner.NoticeError {
		prefix = "!"
	}
	fmt.Printf("[%s] %s\n", prefix, n.Message)
}

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Render the scheduling timeline for the visible window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.planner.Load(app.ctx); err != nil {
				return err
			}
			printTimeline(app.planner)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-day allocation statistics for the visible window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.planner.Load(app.ctx); err != nil {
				return err
			}

			fmt.Printf("\n%-12s %10s %12s %7s\n", "Day", "Allocated", "Unallocated", "Total")
			stats := app.planner.Stats()
			for _, row := range app.planner.DayRows() {
				day := stats[row.Key]
				fmt.Printf("%-12s %10d %12d %7d\n", row.Key, day.Allocated, day.Unallocated, day.Total)
			}
			if quarantined := app.planner.QuarantinedCount(); quarantined > 0 {
				fmt.Printf("\n%d schedule(s) excluded for malformed time data\n", quarantined)
			}
			fmt.Println()
			return nil
		},
	}
}

func rescheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <schedule_id> <new_start HH:MM>",
		Short: "Move a schedule to a new start time within its day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, newStart := args[0], args[1]

			if err := app.planner.Load(app.ctx); err != nil {
				return err
			}

			var target *model.Schedule
			for _, s := range app.planner.Schedules() {
				if s.ID == scheduleID {
					target = &s
					break
				}
			}
			if target == nil {
				return fmt.Errorf("schedule %s not found in the visible window", scheduleID)
			}

			// Drive the same gesture path the planner surface uses: the
			// requested start time becomes a synthetic pixel displacement
			// fed through the drag controller.
			currentStart, err := timeline.TimeToMinutes(target.StartTime)
			if err != nil {
				return fmt.Errorf("schedule %s has an invalid start time: %w", scheduleID, err)
			}
			targetStart, err := timeline.TimeToMinutes(newStart)
			if err != nil {
				return fmt.Errorf("invalid new start time: %w", err)
			}

			slotWidth := timeline.SlotWidth(app.planner.Zoom())
			pixelDelta := float64(targetStart-currentStart) / 60 * slotWidth * pixelsPerRem

			var commitErr error
			controller := drag.NewController(slotWidth, pixelsPerRem, func(intent drag.Reschedule) {
				commitErr = app.planner.Reschedule(app.ctx, intent)
			})
			controller.SetCanDrag(app.planner.CanDrag)

			if err := controller.Begin(drag.Payload{
				ScheduleID: target.ID,
				StartTime:  target.StartTime,
				EndTime:    target.EndTime,
				DayKey:     target.DayKey(),
			}); err != nil {
				return err
			}

			outcome, _, err := controller.Drop(target.DayKey(), pixelDelta)
			if err != nil {
				return err
			}
			if outcome != drag.OutcomeRescheduled {
				fmt.Printf("Schedule %s already starts at %s\n", scheduleID, newStart)
				return nil
			}
			if commitErr != nil {
				return commitErr
			}

			fmt.Printf("Schedule %s moved to %s\n", scheduleID, newStart)
			return nil
		},
	}
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ad-hoc extra call",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := model.Schedule{
				Date:        mustString(cmd, "visit-date"),
				StartTime:   mustString(cmd, "start"),
				EndTime:     mustString(cmd, "end"),
				ServiceType: mustString(cmd, "service-type"),
				Branch:      mustString(cmd, "branch"),
				Area:        mustString(cmd, "area"),
				Notes:       mustString(cmd, "notes"),
			}
			if serviceUser := mustString(cmd, "service-user"); serviceUser != "" {
				s.ServiceUser = &model.ServiceUser{ID: serviceUser}
			}

			id, err := app.planner.CreateExtraCall(app.ctx, s)
			if err != nil {
				return err
			}
			fmt.Printf("Extra call created: %s\n", id)
			return nil
		},
	}

	cmd.Flags().String("visit-date", "", "Visit date (YYYY-MM-DD)")
	cmd.Flags().String("start", "", "Start time (HH:MM)")
	cmd.Flags().String("end", "", "End time (HH:MM)")
	cmd.Flags().String("service-user", "", "Service user id")
	cmd.Flags().String("service-type", "Extra call", "Service type")
	cmd.Flags().String("branch", "", "Branch")
	cmd.Flags().String("area", "", "Area")
	cmd.Flags().String("notes", "", "Free-text notes")
	cmd.MarkFlagRequired("visit-date")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <schedule_id>",
		Short: "Show the reschedule audit trail for a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.history == nil {
				return fmt.Errorf("reschedule history is not configured (set historyDatabaseURL)")
			}

			entries, err := app.history.ListForSchedule(app.ctx, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No reschedule history for this schedule")
				return nil
			}

			fmt.Printf("\n%-20s %-12s %-13s %-13s %s\n", "Recorded", "Day", "From", "To", "Outcome")
			for _, e := range entries {
				fmt.Printf("%-20s %-12s %s-%s   %s-%s   %s\n",
					e.RecordedAt.Format("2006-01-02 15:04:05"),
					e.DayKey, e.OldStart, e.OldEnd, e.NewStart, e.NewEnd, e.Outcome)
			}
			fmt.Println()
			return nil
		},
	}
}

// printTimeline draws the visible window as one text lane per day,
// one column per rem of timeline width
func printTimeline(p *planner.Planner) {
	zoom := p.Zoom()
	width := int(24 * timeline.SlotWidth(zoom))

	fmt.Printf("\nZoom %d (%.1f rem/hour)\n\n", zoom, timeline.SlotWidth(zoom))

	for _, row := range p.DayRows() {
		marker := " "
		if row.IsToday {
			marker = "*"
		}
		suffix := ""
		if row.IsClosed {
			suffix = " (closed)"
		}
		fmt.Printf("%s %s%s\n", marker, row.Label, suffix)

		lane := []rune(strings.Repeat(".", width))
		for _, s := range row.Schedules {
			block, ok := render.BuildBlock(s, zoom, "")
			if !ok {
				continue
			}
			from, to := int(block.Left), int(block.Left+block.Width)
			if to > width {
				to = width
			}
			fill := blockRune(block.Status)
			for i := from; i < to; i++ {
				lane[i] = fill
			}
		}
		fmt.Printf("  |%s|\n", string(lane))

		for _, s := range row.Schedules {
			popover := render.BuildPopover(s)
			fmt.Printf("    %s  %-20s %-14s %s\n", popover.TimeRange, render.LabelFor(s), popover.ServiceType, popover.Location)
		}
		fmt.Println()
	}
}

func blockRune(status render.StatusClass) rune {
	switch status {
	case render.StatusCancelled:
		return 'x'
	case render.StatusAllocated:
		return '#'
	default:
		return 'o'
	}
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
