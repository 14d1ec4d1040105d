// Package rawrow holds the loosely-typed intermediate representation
// of one row fetched from an operator portal, plus the generic cell
// coercion the portals force on us: the tabular endpoints return every
// cell as a string or a json number, so typing is recovered from
// column-name heuristics before the per-source normalizers run.
package rawrow

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Row is one raw portal row keyed by column name.
type Row map[string]any

// wrappedEpoch matches the legacy ASP.NET "/Date(1758326400000)/"
// timestamp wrapper the Scanview endpoints emit.
var wrappedEpoch = regexp.MustCompile(`\((-?\d+)\)`)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// nullish reports whether a cell value is one of the "not available"
// markers seen across the portals. These must normalize to an absent
// value, never to a parseable one.
func nullish(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case string:
		switch strings.TrimSpace(strings.ToLower(t)) {
		case "", "null", "nan", "-", "n/a":
			return true
		}
	}
	return false
}

// ExtractEpochMillis pulls the millisecond epoch out of a wrapped
// "/Date(ms)/" cell. Returns false when the cell is not wrapped.
func ExtractEpochMillis(s string) (int64, bool) {
	groups := wrappedEpoch.FindStringSubmatch(s)
	if len(groups) < 2 {
		return 0, false
	}
	ms, err := strconv.ParseInt(groups[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// ParseTime parses the timestamp formats the portals emit: RFC3339
// with or without zone, bare dates, and wrapped millisecond epochs.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if ms, ok := ExtractEpochMillis(s); ok {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseDayFirst parses the "18-09-2025 14:03" day-first shape the
// Giantleap report uses, with or without seconds.
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02-01-2006 15:04:05", "02-01-2006 15:04", "02-01-2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseDanishNumber parses "1 234,56" style decimals (space as
// thousands separator, comma as decimal point).
func ParseDanishNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", ".", "", ",", ".").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(cleaned, 64)
}

// Coerce applies the column-name heuristics to every row in place:
// columns whose name contains "date" or "utc" become timestamps and
// columns whose name contains "id" become integers. Cells that fail to
// parse become absent, a bogus value must never survive coercion.
func Coerce(rows []Row) {
	for _, row := range rows {
		for col, v := range row {
			name := strings.ToLower(col)
			switch {
			case strings.Contains(name, "date") || strings.Contains(name, "utc"):
				row[col] = coerceTime(v)
			case strings.Contains(name, "id"):
				row[col] = coerceInt(v)
			}
		}
	}
}

func coerceTime(v any) any {
	if nullish(v) {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, ok := ParseTime(t); ok {
			return ts
		}
		return nil
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	}
	return nil
}

func coerceInt(v any) any {
	if nullish(v) {
		return nil
	}
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		return n
	}
	return nil
}

// String returns the cell as a trimmed string, "" when absent.
func (r Row) String(col string) string {
	v := r[col]
	if nullish(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Int64 returns the cell as an integer, 0 when absent or unparseable.
func (r Row) Int64(col string) int64 {
	v := coerceInt(r[col])
	if v == nil {
		return 0
	}
	return v.(int64)
}

// Float64 returns the cell as a float, 0 when absent or unparseable.
func (r Row) Float64(col string) float64 {
	v := r[col]
	if nullish(v) {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Bool returns the cell as a bool, false when absent.
func (r Row) Bool(col string) bool {
	v := r[col]
	if nullish(v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(t)))
		return err == nil && b
	case float64:
		return t != 0
	}
	return false
}

// Time returns the cell as a timestamp and whether one was present.
func (r Row) Time(col string) (time.Time, bool) {
	v := coerceTime(r[col])
	if v == nil {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// TimePtr returns the cell as a timestamp pointer, nil when absent.
// "not-a-time" markers land here as nil, never as a sentinel date.
func (r Row) TimePtr(col string) *time.Time {
	ts, ok := r.Time(col)
	if !ok {
		return nil
	}
	return &ts
}
