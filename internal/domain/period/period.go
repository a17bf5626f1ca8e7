// Package period resolves named reporting periods into concrete date ranges.
package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for identifiers outside the supported set.
var ErrInvalidPeriod = errors.New("period: invalid period identifier")

// ID is a named reporting period.
type ID string

const (
	Last7Days  ID = "7d"
	Last30Days ID = "30d"
	ThisMonth  ID = "this_month"
	LastMonth  ID = "last_month"

	// Default is used when the caller supplies no identifier.
	Default = Last7Days
)

// DateLayout is the calendar date format used in results and cache keys.
const DateLayout = "2006-01-02"

// IDs returns all supported identifiers
func IDs() []ID {
	return []ID{Last7Days, Last30Days, ThisMonth, LastMonth}
}

// IsValid returns true if the identifier is supported
func (id ID) IsValid() bool {
	switch id {
	case Last7Days, Last30Days, ThisMonth, LastMonth:
		return true
	}
	return false
}

// String returns the string representation of the identifier
func (id ID) String() string {
	return string(id)
}

// Spec is a resolved period. Start is the first instant of the first day,
// End the last instant of the last day, both in the location of the reference time.
type Spec struct {
	ID    ID
	Label string
	Start time.Time
	End   time.Time
}

// StartDate returns the first day as YYYY-MM-DD
func (s Spec) StartDate() string {
	return s.Start.Format(DateLayout)
}

// EndDate returns the last day as YYYY-MM-DD
func (s Spec) EndDate() string {
	return s.End.Format(DateLayout)
}

// Days returns every calendar day in the period, in order.
func (s Spec) Days() []time.Time {
	return DaysBetween(s.Start, s.End)
}

// Parse validates a raw identifier. An empty string yields Default.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return Default, nil
	}
	id := ID(raw)
	if !id.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return id, nil
}

// Resolve computes the date range of id relative to now.
func Resolve(id ID, now time.Time) (Spec, error) {
	today := startOfDay(now)
	end := endOfDay(now)

	switch id {
	case Last7Days:
		return Spec{ID: id, Label: "last_7_days", Start: today.AddDate(0, 0, -6), End: end}, nil
	case Last30Days:
		return Spec{ID: id, Label: "last_30_days", Start: today.AddDate(0, 0, -29), End: end}, nil
	case ThisMonth:
		return Spec{ID: id, Label: "this_month", Start: startOfMonth(today), End: end}, nil
	case LastMonth:
		// Step back from the first of this month so that e.g. March 31 never overflows into March.
		first := startOfMonth(today).AddDate(0, -1, 0)
		last := startOfMonth(today).AddDate(0, 0, -1)
		return Spec{ID: id, Label: "last_month", Start: first, End: endOfDay(last)}, nil
	}
	return Spec{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, id)
}

// ParseAndResolve is Parse followed by Resolve.
func ParseAndResolve(raw string, now time.Time) (Spec, error) {
	id, err := Parse(raw)
	if err != nil {
		return Spec{}, err
	}
	return Resolve(id, now)
}

// DaysBetween lists the calendar days from start to end inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := startOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
