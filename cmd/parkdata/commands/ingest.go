package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/runtimelog"
	"parkdata-backend/internal/store"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/serviceutil"
	"parkdata-backend/lib/sqliteutil"
	"parkdata-backend/lib/timezone"

	"github.com/spf13/cobra"
)

var (
	ingestFrom             *string
	ingestDb               *string
	ingestSinceLastSuccess *bool
)

func init() {
	ingestFrom = ingestCmd.Flags().String("from", "", "Start of the ingestion window, 2006-01-02. Defaults to the configured from_date.")
	ingestDb = ingestCmd.Flags().String("db", "", "The database to ingest into. Defaults to the configured database.")
	ingestSinceLastSuccess = ingestCmd.Flags().Bool("since-last-success", false, "Start the window at the day of the last successful run.")
	rootCmd.AddCommand(ingestCmd)
}

// resolveRange builds the ingestion window: flag, runtime log, or the
// configured default start, always ending now.
func resolveRange(cfg Config) (daterange.Range, error) {
	end := timezone.Now()

	if *ingestFrom != "" {
		start, err := time.ParseInLocation("2006-01-02", *ingestFrom, timezone.Location)
		if err != nil {
			return daterange.Range{}, fmt.Errorf("bad --from date: %w", err)
		}
		return daterange.Range{Start: start, End: end}, nil
	}

	if *ingestSinceLastSuccess {
		last, ok, err := runtimelog.LastRun(cfg.RuntimeLog, ingest.StatusSuccess)
		if err != nil {
			return daterange.Range{}, fmt.Errorf("read runtime log: %w", err)
		}
		if ok {
			return daterange.Range{Start: last, End: end}, nil
		}
		slog.Warn("no successful run on record, using the configured from_date")
	}

	start, err := time.ParseInLocation("2006-01-02", cfg.FromDate, timezone.Location)
	if err != nil {
		return daterange.Range{}, fmt.Errorf("bad from_date in config: %w", err)
	}
	return daterange.Range{Start: start, End: end}, nil
}

func runIngest(ctx context.Context, cfg Config, dbPath string) error {
	dr, err := resolveRange(cfg)
	if err != nil {
		return err
	}

	db, err := sqliteutil.OpenDB(store.Schema, dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s := store.New(db)
	orchestrator := ingest.NewOrchestrator(s, buildSources(cfg)...)

	slog.Info("starting run", "from", dr.Start, "to", dr.End, "db", dbPath)
	report, runErr := orchestrator.Run(ctx, dr)

	if report != nil {
		logErr := runtimelog.Append(cfg.RuntimeLog, runtimelog.Entry{
			Start:  report.Log.RunTime,
			Status: report.Status,
		})
		if logErr != nil {
			slog.Warn("failed to append runtime log", "err", logErr)
		}
	}
	return runErr
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [--from <2006-01-02>] [--db <path/to/parkdata.db>] [--since-last-success]",
	Short: "Runs one ingestion pass over every operator portal.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		dbPath := *ingestDb
		if dbPath == "" {
			dbPath = cfg.Database
		}

		if err := runIngest(cmd.Context(), cfg, dbPath); err != nil {
			serviceutil.Fatal("ingestion run failed", err)
		}
	},
}
