package rawrow

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCoerceHeuristics(t *testing.T) {
	rows := []Row{
		{"id": "5", "date": "2025-10-01"},
		{"AreaId": float64(12), "CreatedDateUtc": "/Date(1758326400000)/"},
	}
	Coerce(rows)

	require.Equal(t, int64(5), rows[0]["id"])
	ts, ok := rows[0]["date"].(time.Time)
	require.True(t, ok, "date column should coerce to a timestamp, not stay a string")
	require.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), ts)

	require.Equal(t, int64(12), rows[1]["AreaId"])
	created, ok := rows[1]["CreatedDateUtc"].(time.Time)
	require.True(t, ok)
	require.Equal(t, time.UnixMilli(1758326400000).UTC(), created)
}

func TestCoerceWholeRow(t *testing.T) {
	rows := []Row{{
		"OrderDate":     "2025-09-20T00:00:00",
		"LocationId":    "17",
		"EndDate":       nil,
		"LicensePlates": "AB12345",
		"Price":         25.5,
	}}
	Coerce(rows)

	want := Row{
		"OrderDate":     time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		"LocationId":    int64(17),
		"EndDate":       nil,
		"LicensePlates": "AB12345",
		"Price":         25.5,
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("coerced row mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerceNeverProducesBogusValues(t *testing.T) {
	rows := []Row{
		{"EndDateUtc": "null", "PaymentStartUtc": "", "LocationId": "abc", "OrderDate": "not a date"},
	}
	Coerce(rows)

	require.Nil(t, rows[0]["EndDateUtc"])
	require.Nil(t, rows[0]["PaymentStartUtc"])
	require.Nil(t, rows[0]["LocationId"])
	require.Nil(t, rows[0]["OrderDate"])
}

func TestNullSentinels(t *testing.T) {
	row := Row{
		"a": nil,
		"b": "",
		"c": "null",
		"d": math.NaN(),
		"e": "-",
		"f": "N/A",
	}
	for _, col := range []string{"a", "b", "c", "d", "e", "f"} {
		require.Nil(t, row.TimePtr(col), "column %s", col)
		require.Empty(t, row.String(col), "column %s", col)
		require.Zero(t, row.Int64(col), "column %s", col)
	}
}

func TestExtractEpochMillis(t *testing.T) {
	ms, ok := ExtractEpochMillis("/Date(1758326400000)/")
	require.True(t, ok)
	require.Equal(t, int64(1758326400000), ms)

	_, ok = ExtractEpochMillis("2025-09-20")
	require.False(t, ok)
}

func TestParseTimeFormats(t *testing.T) {
	for _, s := range []string{
		"2025-09-20T14:03:00Z",
		"2025-09-20T14:03:00",
		"2025-09-20 14:03:00",
		"2025-09-20T14:03:00.123",
	} {
		ts, ok := ParseTime(s)
		require.True(t, ok, s)
		require.Equal(t, 20, ts.Day())
	}

	_, ok := ParseTime("20/09/2025")
	require.False(t, ok)
}

func TestParseDayFirst(t *testing.T) {
	ts, ok := ParseDayFirst("18-09-2025 14:03")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 9, 18, 14, 3, 0, 0, time.UTC), ts)
}

func TestParseDanishNumber(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
	}{
		{"1 234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"12,00", 12},
		{"7", 7},
	}
	for _, tc := range testCases {
		got, err := ParseDanishNumber(tc.in)
		require.NoError(t, err, tc.in)
		require.InDelta(t, tc.want, got, 1e-9, tc.in)
	}

	_, err := ParseDanishNumber("")
	require.Error(t, err)
}

func TestRowAccessors(t *testing.T) {
	stop := "2025-09-21T10:00:00Z"
	row := Row{
		"plate":   " ab12345 ",
		"price":   "42.5",
		"stopped": true,
		"stopAt":  stop,
		"count":   float64(3),
	}

	require.Equal(t, "ab12345", row.String("plate"))
	require.InDelta(t, 42.5, row.Float64("price"), 1e-9)
	require.True(t, row.Bool("stopped"))
	require.Equal(t, int64(3), row.Int64("count"))

	ptr := row.TimePtr("stopAt")
	require.NotNil(t, ptr)
	require.Equal(t, time.Date(2025, 9, 21, 10, 0, 0, 0, time.UTC), *ptr)
}
