package commands

import (
	"fmt"
	"os"

	"parkdata-backend/internal/store"
	"parkdata-backend/lib/serviceutil"
	"parkdata-backend/lib/sqliteutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runsLimit *int
	runsDb    *string
)

func init() {
	runsLimit = runsCmd.Flags().Int("limit", 20, "How many runs to show, newest first.")
	runsDb = runsCmd.Flags().String("db", "", "The database to read. Defaults to the configured database.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Prints the most recent ingestion runs.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		dbPath := *runsDb
		if dbPath == "" {
			dbPath = cfg.Database
		}

		db, err := sqliteutil.OpenDB(store.Schema, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer db.Close()

		runs, err := store.New(db).RecentRuns(cmd.Context(), *runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to read run log", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Run Time", "From", "To", "Status", "Records", "Seconds", "Message",
		})

		for _, run := range runs {
			total := run.ScanviewPayments + run.ScanviewLogs + run.SolvisionOrders +
				run.GiantleapOrders + run.ParkParkEntries + run.ParkOneEntries +
				run.EasyParkEntries
			t.AppendRow(table.Row{
				run.RunTime.Format("2006-01-02 15:04:05"),
				run.DateRangeFrom.Format("2006-01-02"),
				run.DateRangeTo.Format("2006-01-02"),
				run.Status,
				total,
				fmt.Sprintf("%.1f", run.RuntimeSeconds),
				run.Message,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
