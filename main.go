package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adspower_sync/internal/app"
	"adspower_sync/internal/processing"
	"adspower_sync/internal/schedule"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath applies CONFIG_FILE once .env has been loaded; an
// explicit --config wins.
func resolveConfigPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	return app.GetEnvWithDefault("CONFIG_FILE", defaultConfigPath)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adspower_sync",
		Short: "Keep AdsPower browser profiles and Google Sheets in sync",
		Long: `adspower_sync balances AdsPower profiles across groups, pushes source sheet
data to profile remarks, mirrors profile status into output sheets and removes
stale output rows. Without a subcommand it runs on the configured schedule.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.SetupEnvironment()
			configPath = resolveConfigPath(cmd)
		},
		RunE: runScheduled,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the configuration file (default from CONFIG_FILE)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run now and then on every scheduled slot",
		RunE:  runScheduled,
	})
	rootCmd.AddCommand(stepsCmd("once", "Run every flow once", processing.AllSteps))
	rootCmd.AddCommand(stepsCmd("balance", "Create missing profiles up to each group's quota", processing.Steps{Balance: true}))
	rootCmd.AddCommand(stepsCmd("remarks", "Push source sheet rows to profile remarks", processing.Steps{Remarks: true}))
	rootCmd.AddCommand(stepsCmd("mirror", "Mirror profiles into the output sheets and clean them", processing.Steps{Mirror: true, Cleanup: true}))
	rootCmd.AddCommand(nextCmd())
	return rootCmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScheduled(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	settings, _, job, err := prepare(ctx, configPath, processing.AllSteps)
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	sched, err := settings.ParsedSchedule()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule")
	}

	log.Info().
		Str("start_time", settings.Schedule.StartTime).
		Int("runs_per_day", sched.RunsPerDay).
		Dur("interval", sched.Interval()).
		Msg("Starting AdsPower sync. Running immediately and then on schedule...")

	err = schedule.Loop(ctx, sched, schedule.RealClock, func(ctx context.Context) error {
		_, err := job.Run(ctx)
		return err
	})
	if ctx.Err() != nil {
		log.Info().Msg("Shutting down")
		return nil
	}
	return err
}

func stepsCmd(use, short string, steps processing.Steps) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, c, job, err := prepare(ctx, configPath, steps)
			if err != nil {
				log.Fatal().Err(err).Msg("Startup failed")
			}
			c.profiles.ResetAPICallCount()
			summary, err := job.Run(ctx)
			if err != nil {
				return err
			}
			sent, failed := c.notifier.GetMetrics()
			log.Info().
				Str("run_id", summary.RunID).
				Int64("adspower_calls", c.profiles.GetAPICallCount()).
				Int64("notifications_sent", sent).
				Int64("notifications_failed", failed).
				Msg("Done")
			return nil
		},
	}
}

func nextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the upcoming scheduled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(configPath)
			if err != nil {
				return err
			}
			sched, err := settings.ParsedSchedule()
			if err != nil {
				return err
			}
			now := time.Now()
			for _, slot := range sched.Upcoming(now, count) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  (in %s)\n", slot.Format("Mon 02 Jan 15:04"), schedule.FormatRemaining(slot.Sub(now)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of upcoming runs to print")
	return cmd
}
