package commands

import (
	"log/slog"

	"parkdata-backend/lib/serviceutil"
	"parkdata-backend/lib/timezone"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var scheduleCron *string

func init() {
	scheduleCron = scheduleCmd.Flags().String("cron", "", "Cron spec for the nightly run. Defaults to the configured cron_spec.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <spec>]",
	Short: "Runs ingestion on a cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		spec := *scheduleCron
		if spec == "" {
			spec = cfg.CronSpec
		}

		ctx := serviceutil.SignalContext()
		cronner := cron.New(
			cron.WithLocation(timezone.Location),
			cron.WithLogger(cronLogger{}),
		)
		_, err := cronner.AddFunc(spec, func() {
			if err := runIngest(ctx, cfg, cfg.Database); err != nil {
				// a failed run is logged and the schedule keeps going
				slog.Error("scheduled run failed", "err", err)
			}
		})
		if err != nil {
			serviceutil.Fatal("bad cron spec", err)
		}

		slog.Info("schedule started", "cron", spec, "tz", timezone.Location.String())
		cronner.Start()
		<-ctx.Done()

		slog.Info("shutting down, waiting for a running job to finish")
		<-cronner.Stop().Done()
	},
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Info("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"err", err}, keysAndValues...)
	slog.Error("cron: "+msg, args...)
}
