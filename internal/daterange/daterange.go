// Package daterange resolves and validates the date windows a fetch
// operates on. All dates are day-granular in the local zone.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire format for dates, e.g. "2024-08-01".
const Layout = "2006-01-02"

var (
	// ErrFutureDate is returned when a requested date lies after today.
	ErrFutureDate = errors.New("cannot fetch data of future date")
	// ErrInvertedRange is returned when the range's start is after its end.
	ErrInvertedRange = errors.New("from date is after to date")
)

// Parse parses an ISO date string (YYYY-MM-DD) and truncates it to a day.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Validate checks that since <= before <= today. Only calendar dates are
// compared; the zones the inputs carry do not matter.
func Validate(since, before, today time.Time) error {
	since, before, today = day(since), day(before), day(today)
	if since.After(before) {
		return ErrInvertedRange
	}
	if since.After(today) || before.After(today) {
		return ErrFutureDate
	}
	return nil
}

// PreviousMonth returns the first and last day of the calendar month
// preceding the month of today. Used when the caller supplies no range.
func PreviousMonth(today time.Time) (since, before time.Time) {
	firstOfCurrent := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	before = firstOfCurrent.AddDate(0, 0, -1)
	since = time.Date(before.Year(), before.Month(), 1, 0, 0, 0, 0, before.Location())
	return since, before
}

// day reduces t to its calendar date, rebuilt in UTC so dates parsed in
// different zones compare by date alone.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
