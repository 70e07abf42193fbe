package record

import "time"

// TimeLayout is the canonical timestamp text form for valid_from and
// valid_to. Fixed width in UTC, so lexicographic order on the stored text
// equals chronological order.
const TimeLayout = "2006-01-02 15:04:05.000000000"

// SentinelTime is the "infinite future" valid_to of a current version row.
var SentinelTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// FormatTime renders a timestamp in the canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
