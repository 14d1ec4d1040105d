package commands

import (
	"log/slog"

	"parkdata-backend/internal/export"
	"parkdata-backend/internal/store"
	"parkdata-backend/lib/serviceutil"
	"parkdata-backend/lib/sqliteutil"

	"github.com/spf13/cobra"
)

var (
	exportXlsx *string
	exportCsv  *string
	exportDb   *string
)

func init() {
	exportXlsx = exportCmd.Flags().String("xlsx", "", "Write every table into one xlsx workbook at this path.")
	exportCsv = exportCmd.Flags().String("csv", "", "Write every table as a csv file into this directory.")
	exportDb = exportCmd.Flags().String("db", "", "The database to export. Defaults to the configured database.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--xlsx <out.xlsx>] [--csv <dir>]",
	Short: "Dumps the database for inspection.",
	Run: func(cmd *cobra.Command, args []string) {
		if *exportXlsx == "" && *exportCsv == "" {
			cmd.Help()
			return
		}

		cfg := readConfig()
		dbPath := *exportDb
		if dbPath == "" {
			dbPath = cfg.Database
		}

		db, err := sqliteutil.OpenDB(store.Schema, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer db.Close()
		s := store.New(db)

		if *exportXlsx != "" {
			if err := export.WriteWorkbook(cmd.Context(), s, *exportXlsx); err != nil {
				serviceutil.Fatal("failed to write workbook", err)
			}
			slog.Info("wrote workbook", "path", *exportXlsx)
		}
		if *exportCsv != "" {
			if err := export.WriteCSVDir(cmd.Context(), s, *exportCsv); err != nil {
				serviceutil.Fatal("failed to write csv dir", err)
			}
			slog.Info("wrote csv dir", "dir", *exportCsv)
		}
	},
}
