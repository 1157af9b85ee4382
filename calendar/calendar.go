/*
Package calendar provides the date arithmetic used by the schedule engine.

PURPOSE:
  Consortium contracts are month-based: installments fall on a fixed day of
  every month, corrections happen on 12-month anniversaries and index
  observations are keyed by the first day of a month. Everything here works
  on calendar dates (midnight UTC); times of day are discarded.

KEY FUNCTIONS:
  AddMonths:       month arithmetic that clamps the day (Jan 31 + 1 = Feb 28/29)
  NextBusinessDay: rolls Saturdays and Sundays forward to Monday
  WithDay:         pins a date to a day-of-month, clamped to the month length

HOLIDAYS:
  No holiday calendar is modeled. A due date on a bank holiday stays there.

SEE ALSO:
  - schedule/generator.go: due date computation
  - correction/credit.go: anniversary walk
*/
package calendar

import (
	"strings"
	"time"
)

// Layout is the wire and storage format for dates.
const Layout = "2006-01-02"

// MonthLayout is the format of month keys used in reports.
const MonthLayout = "2006-01"

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the calendar day as seen in t's location.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() time.Time {
	return Truncate(time.Now())
}

// ParseDate parses "YYYY-MM-DD". A trailing time part ("T...") is ignored so
// timestamps written by other tools are accepted too.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// MustParseDate is ParseDate for literals known to be valid (tests, seed data).
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Format renders a date as "YYYY-MM-DD", or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// AddMonths adds n months to t. When the day of t does not exist in the
// target month the result is the last day of that month, so Jan 31 + 1 month
// is Feb 28 (or 29), never Mar 3 as time.AddDate would give.
func AddMonths(t time.Time, n int) time.Time {
	first := Date(t.Year(), t.Month(), 1).AddDate(0, n, 0)
	day := t.Day()
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return Date(first.Year(), first.Month(), day)
}

// WithDay returns t moved to the given day of the same month, clamped to the
// month length. Non-positive days leave t unchanged.
func WithDay(t time.Time, day int) time.Time {
	if day <= 0 {
		return Truncate(t)
	}
	if last := DaysIn(t.Year(), t.Month()); day > last {
		day = last
	}
	return Date(t.Year(), t.Month(), day)
}

// MonthKey returns "YYYY-MM" for t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns t itself when it is a weekday, otherwise the
// following Monday.
func NextBusinessDay(t time.Time) time.Time {
	d := Truncate(t)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// =============================================================================
// COMPARISON
// =============================================================================

// OnOrBefore reports whether a is the same day as b or earlier.
func OnOrBefore(a, b time.Time) bool {
	return !Truncate(a).After(Truncate(b))
}
