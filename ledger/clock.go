package ledger

import (
	"time"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// CLOCK - Injectable "now" source
// =============================================================================

// Clock supplies the current day to everything today-relative: the
// auto-pay rule, the open invoice window, the recurrence horizon. Tests
// inject a FixedClock for determinism.
type Clock interface {
	Today() calendar.Date
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Today() calendar.Date { return calendar.FromTime(time.Now()) }
func (SystemClock) Now() time.Time       { return time.Now().UTC() }

// FixedClock always reports the same day.
type FixedClock struct {
	Day calendar.Date
}

func (c FixedClock) Today() calendar.Date { return c.Day }
func (c FixedClock) Now() time.Time       { return c.Day.Time() }
