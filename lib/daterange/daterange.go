package daterange

import (
	"fmt"
	"time"
)

// Range is a half-open time interval [Start, End) bounding one fetch
// against an operator portal.
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) Range {
	return Range{Start: start, End: end}
}

func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

func (r Range) IsZero() bool {
	return !r.Start.Before(r.End)
}

// Split subdivides the range into ordered contiguous chunks of at most
// intervalDays each. Every chunk starts exactly where the previous one
// ends, so the concatenation covers [Start, End) with no gaps and no
// overlaps. Returns nil for an empty range or a non-positive interval.
func (r Range) Split(intervalDays int) []Range {
	if intervalDays <= 0 || r.IsZero() {
		return nil
	}

	var chunks []Range
	current := r.Start
	for current.Before(r.End) {
		end := current.AddDate(0, 0, intervalDays)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, Range{Start: current, End: end})
		current = end
	}
	return chunks
}

func (r Range) String() string {
	return fmt.Sprintf("%s - %s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// FormatISODate renders a bare portal date, ex. "2025-09-20".
func FormatISODate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FormatMillisUTC renders an RFC3339 UTC timestamp with millisecond
// precision and a literal Z suffix, the format the ParkOne api expects.
func FormatMillisUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatDateTime renders "2006-01-02 15:04:05", used by the ParkPark
// report endpoints.
func FormatDateTime(t time.Time) string {
	return t.Format(time.DateTime)
}
