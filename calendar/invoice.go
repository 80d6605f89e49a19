/*
invoice.go - Billing-cycle and recurrence occurrence arithmetic

PURPOSE:
  Pure functions mapping a purchase date and a card's billing cycle to the
  invoice the charge is billed under, and stepping recurrence occurrences
  forward by their interval.

BILLING RULE:
  A card closes its cycle on ClosingDay. Charges on or before the closing
  day bill to the current month's invoice; charges after it roll to the
  next month. The invoice date itself is the due day of the invoice month,
  wrapping December into January of the following year.

DAY-OVERFLOW NOTE:
  ClosingDay/DueDay are day-of-month values in [1,31] and are NOT validated
  against the target month's length. Constructing day 31 in a 30-day month
  rolls into the following month via native date arithmetic. Pinned by
  tests; confirm with stakeholders before tightening.

SEE ALSO:
  - date.go: Date type
  - ledger/assignment.go: Uses InvoiceDate per transaction
  - ledger/recurrence.go: Uses NextOccurrence to walk the horizon
*/
package calendar

import "time"

// =============================================================================
// INVOICE DATE
// =============================================================================

// InvoiceDate returns the ledger-effective date a card charge made on
// purchase is billed under: the due day of the invoice month.
func InvoiceDate(purchase Date, closingDay, dueDay int) Date {
	year, month := purchase.Year, purchase.Month
	if purchase.Day > closingDay {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return NewDate(year, month, dueDay)
}

// CurrentInvoiceDate identifies the invoice presently open as of today.
// Same rule as InvoiceDate applied to the current day; used by the
// used-amount aggregation for recurring charges.
func CurrentInvoiceDate(today Date, closingDay, dueDay int) Date {
	return InvoiceDate(today, closingDay, dueDay)
}

// =============================================================================
// RECURRENCE INTERVALS
// =============================================================================

// Interval is the unit a recurrence repeats on.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Valid reports whether the interval is one of the supported units.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// NextOccurrence advances a recurrence by count units of interval from
// last, or from anchor when last is the zero Date. Month and year steps
// preserve day-of-month (with native overflow on short months).
func NextOccurrence(anchor Date, interval Interval, count int, last Date) Date {
	base := last
	if base.IsZero() {
		base = anchor
	}
	if count < 1 {
		count = 1
	}
	switch interval {
	case IntervalDay:
		return base.AddDays(count)
	case IntervalWeek:
		return base.AddDays(7 * count)
	case IntervalMonth:
		return base.AddMonths(count)
	case IntervalYear:
		return base.AddYears(count)
	default:
		return base.AddMonths(count)
	}
}
