// Package runtimelog keeps a small csv sidecar of run outcomes next
// to the database. It exists for quick shell inspection and to seed
// the next run's start date without opening the store.
package runtimelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

var header = []string{"Start", "Status"}

type Entry struct {
	Start  time.Time
	Status string
}

// Append adds one Start,Status line, writing the header first when
// the file is new.
func Append(path string, entry Entry) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write([]string{entry.Start.Format(timeLayout), entry.Status}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// LastRun returns the start of the most recent entry with the given
// status, truncated to its date. Status "" matches any entry. Returns
// false when the file does not exist or holds no matching entry.
func LastRun(path, status string) (time.Time, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return time.Time{}, false, err
	}

	for i := len(rows) - 1; i >= 1; i-- {
		if len(rows[i]) < 2 {
			continue
		}
		if status != "" && rows[i][1] != status {
			continue
		}
		start, err := time.Parse(timeLayout, rows[i][0])
		if err != nil {
			return time.Time{}, false, fmt.Errorf("bad entry %q: %w", rows[i][0], err)
		}
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		return day, true, nil
	}
	return time.Time{}, false, nil
}
