package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkdata-backend/internal/records"
)

// AppendRunLog records the outcome of one run. The insert runs in its
// own transaction so a rolled-back batch still leaves a durable run
// log row behind.
func (s *Store) AppendRunLog(ctx context.Context, log records.RunLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs
		(run_time, date_range_from, date_range_to,
		 scanview_payment_entries, scanview_log_entries, solvision_order_entries,
		 giantleap_order_entries, parkpark_entries, parkone_entries,
		 easypark_entries, status, message, runtime_seconds)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		formatTime(log.RunTime), formatTime(log.DateRangeFrom), formatTime(log.DateRangeTo),
		log.ScanviewPayments, log.ScanviewLogs, log.SolvisionOrders,
		log.GiantleapOrders, log.ParkParkEntries, log.ParkOneEntries,
		log.EasyParkEntries, log.Status, log.Message, log.RuntimeSeconds,
	)
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// RecentRuns returns the newest run log rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]records.RunLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_time, date_range_from, date_range_to,
		        scanview_payment_entries, scanview_log_entries, solvision_order_entries,
		        giantleap_order_entries, parkpark_entries, parkone_entries,
		        easypark_entries, status, message, runtime_seconds
		 FROM run_logs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []records.RunLog
	for rows.Next() {
		var log records.RunLog
		var runTime, from, to string
		err := rows.Scan(
			&runTime, &from, &to,
			&log.ScanviewPayments, &log.ScanviewLogs, &log.SolvisionOrders,
			&log.GiantleapOrders, &log.ParkParkEntries, &log.ParkOneEntries,
			&log.EasyParkEntries, &log.Status, &log.Message, &log.RuntimeSeconds,
		)
		if err != nil {
			return nil, err
		}
		if log.RunTime, err = time.Parse(time.RFC3339, runTime); err != nil {
			return nil, err
		}
		if log.DateRangeFrom, err = time.Parse(time.RFC3339, from); err != nil {
			return nil, err
		}
		if log.DateRangeTo, err = time.Parse(time.RFC3339, to); err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// LastRunWithStatus returns the run time of the newest run with the
// given status, or false when none exists. Used to seed the start of
// an incremental date range.
func (s *Store) LastRunWithStatus(ctx context.Context, status string) (time.Time, bool, error) {
	var runTime string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_time FROM run_logs WHERE status = ? ORDER BY id DESC LIMIT 1`,
		status,
	).Scan(&runTime)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339, runTime)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}
