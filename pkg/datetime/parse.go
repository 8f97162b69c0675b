// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/data-dashboard/pkg/constants"
)

const (
	// DayLayout is the canonical calendar-day format.
	DayLayout = constants.DayLayout

	// MonthLayout is the calendar-month format.
	MonthLayout = constants.MonthLayout
)

// acceptedLayouts are tried in order by ParseDate. ISO forms come first so
// that ambiguous inputs resolve the way a year-first reader expects.
var acceptedLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01",
	"2006/01",
	"2006",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate parses a user or CSV supplied date in any of the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// Day truncates t to its calendar day, keeping the date as written rather
// than converting between zones.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey returns the YYYY-MM-DD grouping key for a raw date, or
// constants.InvalidDateKey when it does not parse.
func DayKey(value string) string {
	t, err := ParseDate(value)
	if err != nil {
		return constants.InvalidDateKey
	}
	return t.Format(DayLayout)
}

// MonthKey returns the YYYY-MM grouping key for a raw date, or
// constants.InvalidDateKey when it does not parse.
func MonthKey(value string) string {
	t, err := ParseDate(value)
	if err != nil {
		return constants.InvalidDateKey
	}
	return t.Format(MonthLayout)
}

// DayBefore returns true if first falls on a calendar day strictly before second.
func DayBefore(first, second time.Time) bool {
	return Day(first).Before(Day(second))
}

// DayAfter returns true if first falls on a calendar day strictly after second.
func DayAfter(first, second time.Time) bool {
	return Day(first).After(Day(second))
}
