// Package export writes diagnostic dumps of the store: one xlsx
// workbook with a sheet per table, or a directory of csv files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"parkdata-backend/internal/store"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("export")

// Dumper is the slice of the store the exporters read through.
type Dumper interface {
	Dump(ctx context.Context, table string) (columns []string, rows [][]any, err error)
}

// sheetName fits a table name into the 31-char limit xlsx imposes and
// keeps it unique against the sheets already taken.
func sheetName(table string, taken map[string]bool) string {
	name := table
	if len(name) > 31 {
		name = name[:31]
	}
	for i := 2; taken[name]; i++ {
		suffix := strconv.Itoa(i)
		base := table
		if len(base)+len(suffix) > 31 {
			base = base[:31-len(suffix)]
		}
		name = base + suffix
	}
	taken[name] = true
	return name
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		return t
	}
}

// WriteWorkbook dumps every table into one xlsx workbook at path.
func WriteWorkbook(ctx context.Context, dumper Dumper, path string) error {
	ctx, span := tracer.Start(ctx, "WriteWorkbook")
	defer span.End()

	book := excelize.NewFile()
	defer book.Close()

	taken := map[string]bool{}
	for i, table := range store.Tables() {
		columns, rows, err := dumper.Dump(ctx, table)
		if err != nil {
			return fmt.Errorf("dump %s: %w", table, err)
		}

		sheet := sheetName(table, taken)
		if i == 0 {
			// rename the default sheet instead of leaving it empty
			if err := book.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := book.NewSheet(sheet); err != nil {
			return err
		}

		header := make([]any, len(columns))
		for j, c := range columns {
			header[j] = c
		}
		if err := setRow(book, sheet, 1, header); err != nil {
			return err
		}
		for j, row := range rows {
			cells := make([]any, len(row))
			for k, v := range row {
				cells[k] = cellValue(v)
			}
			if err := setRow(book, sheet, j+2, cells); err != nil {
				return err
			}
		}
	}

	return book.SaveAs(path)
}

func setRow(book *excelize.File, sheet string, rowNum int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return book.SetSheetRow(sheet, cell, &cells)
}

// WriteCSVDir dumps every table into dir as <table>.csv.
func WriteCSVDir(ctx context.Context, dumper Dumper, dir string) error {
	ctx, span := tracer.Start(ctx, "WriteCSVDir")
	defer span.End()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, table := range store.Tables() {
		columns, rows, err := dumper.Dump(ctx, table)
		if err != nil {
			return fmt.Errorf("dump %s: %w", table, err)
		}
		if err := writeCSV(filepath.Join(dir, table+".csv"), columns, rows); err != nil {
			return fmt.Errorf("write %s: %w", table, err)
		}
	}
	return nil
}

func writeCSV(path string, columns []string, rows [][]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row {
			record[i] = csvValue(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvValue(v any) string {
	switch t := cellValue(v).(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
