/*
Package calendar provides the plain calendar-date type and billing-cycle
arithmetic used throughout the finance engine.

PURPOSE:
  Every field in the ledger that is conceptually a date (transaction date,
  purchase date, recurrence start/end, goal deadline) is a Date: a year,
  a month and a day with no time-of-day and no offset. Two values on the
  same calendar day always compare equal, no matter which timezone the
  input string was parsed in. Conversion to an instant happens only at the
  presentation boundary.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: year/month/day value type, ordered, JSON-friendly
  - Month arithmetic with native overflow (Jan 31 + 1 month = Mar 2/3),
    the documented behavior for closing/due days of 29-31

SEE ALSO:
  - invoice.go: Invoice assignment and recurrence occurrence arithmetic
  - ledger/types.go: The records that carry Dates
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Plain calendar date (no time-of-day, no offset)
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date. Out-of-range components roll over the way
// time.Date rolls them (day 32 becomes the 1st of the next month).
func NewDate(year int, month time.Month, day int) Date {
	return fromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime truncates an instant to its UTC calendar day.
func FromTime(t time.Time) Date {
	return fromTime(t.UTC())
}

func fromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads an ISO "2006-01-02" date.
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return fromTime(t), nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the UTC midnight instant for this date.
// Display/storage boundary only; ledger semantics never use it.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

func (d Date) IsZero() bool { return d == Date{} }

// Comparison
func (d Date) Before(other Date) bool        { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool         { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic. AddMonths/AddYears preserve day-of-month where the target
// month has it; otherwise time.AddDate overflow rolls into the next month.
func (d Date) AddDays(n int) Date   { return fromTime(d.Time().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return fromTime(d.Time().AddDate(0, n, 0)) }
func (d Date) AddYears(n int) Date  { return fromTime(d.Time().AddDate(n, 0, 0)) }

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}

// =============================================================================
// JSON / TEXT ENCODING
// =============================================================================

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// CONVENIENCE CONSTRUCTORS
// =============================================================================

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return fromTime(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
