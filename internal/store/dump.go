package store

import (
	"context"
	"fmt"

	"parkdata-backend/internal/records"
)

// Tables lists every persisted table in a stable order, for the
// diagnostic exports.
func Tables() []string {
	return []string{
		string(records.KindPaymentOrder),
		string(records.KindParkingLog),
		string(records.KindSolvisionOrder),
		string(records.KindGiantleapOrder),
		string(records.KindParkParkParking),
		string(records.KindParkOneParking),
		string(records.KindEasyParkParking),
		string(records.KindRunLog),
	}
}

var knownTables = func() map[string]bool {
	m := map[string]bool{}
	for _, t := range Tables() {
		m[t] = true
	}
	return m
}()

// Dump reads a whole table: ordered column names plus every row with
// cells as driver-native values. Read-only, diagnostic.
func (s *Store) Dump(ctx context.Context, table string) (columns []string, rowvals [][]any, err error) {
	// table names cannot be bound as parameters, so only dump tables
	// this store owns
	if !knownTables[table] {
		return nil, nil, fmt.Errorf("unknown table: %s", table)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	for rows.Next() {
		cells := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range cells {
			scan[i] = &cells[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, nil, err
		}
		rowvals = append(rowvals, cells)
	}
	return columns, rowvals, rows.Err()
}

// CountRows returns the row count of one table.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	if !knownTables[table] {
		return 0, fmt.Errorf("unknown table: %s", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	return n, err
}
