// Package dateutil provides month-granularity date helpers for working
// with historical return series.
package dateutil

import (
	"fmt"
	"time"
)

// MonthStart truncates a time to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole months from start to end.
// Same month yields 0; end before start yields a negative count.
func MonthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// AddMonths advances a month-start time by n months.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// ParseMonth parses YYYY-MM or YYYY-MM-DD into a month-start time.
func ParseMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM", s)
}

// FormatMonth renders a time as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}
