package ledger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
	"github.com/ledgerkit/finance-engine/logger"
)

func (e *testEnv) engine() *ledger.RecurrenceEngine {
	return ledger.NewRecurrenceEngine(e.store, e.clock, testLogger())
}

func (e *testEnv) engineAt(dayStr string) *ledger.RecurrenceEngine {
	clock := ledger.FixedClock{Day: day(dayStr)}
	return ledger.NewRecurrenceEngine(e.store, clock, testLogger())
}

func monthlyRent(env *testEnv) ledger.RecurringInput {
	return ledger.RecurringInput{
		Kind:          ledger.KindExpense,
		Amount:        amt("1200.00"),
		Description:   "Rent",
		Interval:      calendar.IntervalMonth,
		IntervalCount: 1,
		StartDate:     day("2024-01-15"),
		AccountID:     env.account.ID,
		CategoryID:    env.food.ID,
	}
}

// =============================================================================
// CREATION
// =============================================================================

func TestRecurrenceEngine_CreateMaterializesFullHorizon(t *testing.T) {
	// GIVEN: A monthly rule starting today (Jan 15 2024)
	// WHEN: Created with a 12-month horizon
	// THEN: 13 rows exist (Jan 15 2024 through Jan 15 2025) and the cursor
	//       sits on the first occurrence past the horizon

	env := newTestEnv(t)
	e := env.engine()

	rec, rows, err := e.CreateRecurring(context.Background(), testOwner, monthlyRent(env))
	require.NoError(t, err)

	require.Len(t, rows, 13)
	assert.Equal(t, day("2024-01-15"), rows[0].Date)
	assert.Equal(t, day("2025-01-15"), rows[12].Date)
	assert.Equal(t, day("2025-02-15"), rec.NextDueDate)

	for _, row := range rows {
		assert.True(t, row.IsRecurringCharge)
		require.NotNil(t, row.RecurrenceID)
		assert.Equal(t, rec.ID, *row.RecurrenceID)
		assert.True(t, row.Amount.Equal(amt("1200.00")))
		assert.False(t, row.Paid)
	}
}

func TestRecurrenceEngine_CreateClampsToEndDate(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()

	in := monthlyRent(env)
	in.EndDate = dayPtr("2024-03-31")

	rec, rows, err := e.CreateRecurring(context.Background(), testOwner, in)
	require.NoError(t, err)

	require.Len(t, rows, 3) // Jan 15, Feb 15, Mar 15
	assert.Equal(t, day("2024-03-15"), rows[2].Date)
	assert.Equal(t, day("2024-04-15"), rec.NextDueDate)
}

func TestRecurrenceEngine_CreateCardRuleBillsInvoiceDates(t *testing.T) {
	// GIVEN: A monthly card subscription purchased on the 3rd
	//        (card closes on the 5th, due on the 10th)
	// WHEN: Materialized
	// THEN: Every row carries its invoice date, purchase day preserved

	env := newTestEnv(t)
	e := env.engine()

	in := monthlyRent(env)
	in.Description = "Streaming"
	in.Amount = amt("19.90")
	in.StartDate = day("2024-01-03")
	in.EndDate = dayPtr("2024-02-29")
	in.CreditCardID = &env.card.ID

	_, rows, err := e.CreateRecurring(context.Background(), testOwner, in)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, day("2024-01-10"), rows[0].Date)
	assert.Equal(t, day("2024-01-03"), *rows[0].PurchaseDate)
	assert.Equal(t, day("2024-02-10"), rows[1].Date)
	assert.Equal(t, day("2024-02-03"), *rows[1].PurchaseDate)
}

func TestRecurrenceEngine_CreateRejectsEndBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()

	in := monthlyRent(env)
	in.EndDate = dayPtr("2023-12-31")

	_, _, err := e.CreateRecurring(context.Background(), testOwner, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// EXTENSION
// =============================================================================

func TestRecurrenceEngine_ExtendIsIdempotent(t *testing.T) {
	// GIVEN: A freshly materialized rule
	// WHEN: Extension runs repeatedly under the same clock
	// THEN: Nothing new is generated

	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()

	_, _, err := e.CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		n, err := e.Extend(ctx, testOwner)
		require.NoError(t, err)
		assert.Zero(t, n, "run %d", i+1)
	}
}

func TestRecurrenceEngine_ExtendTopsUpAsClockAdvances(t *testing.T) {
	// GIVEN: A rule materialized through Jan 15 2025
	// WHEN: A month passes and extension runs (today = Feb 15 2024)
	// THEN: Exactly the one newly-in-horizon occurrence is generated

	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.engine().CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	later := env.engineAt("2024-02-15")
	n, err := later.Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-running under the advanced clock generates nothing further.
	n, err = later.Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecurrenceEngine_ExtendBackfillsDeletedRows(t *testing.T) {
	// The occurrence-day existence check makes extension self-healing only
	// forward of the cursor: rows at or past NextDueDate regenerate, rows
	// behind it stay deleted.

	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()

	rec, rows, err := e.CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	// Delete a mid-horizon row, then rewind the cursor to its day.
	victim := rows[5]
	_, err = env.store.DeleteTransaction(ctx, testOwner, victim.ID)
	require.NoError(t, err)

	stored, err := env.store.GetRecurrence(ctx, testOwner, rec.ID)
	require.NoError(t, err)
	stored.NextDueDate = victim.Date
	require.NoError(t, env.store.UpdateRecurrence(ctx, *stored))

	n, err := e.Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the deleted occurrence regenerates")
}

func TestRecurrenceEngine_ExtendSkipsPaused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, _, err := env.engine().CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	_, err = env.engine().Pause(ctx, testOwner, rec.ID)
	require.NoError(t, err)

	n, err := env.engineAt("2024-06-15").Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecurrenceEngine_ExtendSkipsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := monthlyRent(env)
	in.EndDate = dayPtr("2024-03-31")
	_, _, err := env.engine().CreateRecurring(ctx, testOwner, in)
	require.NoError(t, err)

	// Well past the end date: nothing to generate, no error.
	n, err := env.engineAt("2024-06-15").Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecurrenceEngine_ExtendSkipsDefectiveRecurrence(t *testing.T) {
	// GIVEN: A stored rule missing its amount (a data defect)
	// WHEN: Extension runs
	// THEN: The rule is skipped with a warning, the batch still succeeds

	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.CreateRecurrence(ctx, ledger.Recurrence{
		ID:              "rec-defect",
		OwnerID:         testOwner,
		Kind:            ledger.RecurrencePeriodic,
		TransactionKind: ledger.KindExpense,
		Interval:        calendar.IntervalMonth,
		IntervalCount:   1,
		StartDate:       day("2024-01-01"),
		Description:     "Broken import",
		AccountID:       env.account.ID,
		CategoryID:      env.food.ID,
		Active:          true,
		NextDueDate:     day("2024-01-01"),
		CreatedAt:       env.clock.Now(),
	}))

	var buf bytes.Buffer
	e := ledger.NewRecurrenceEngine(env.store, env.clock, logger.NewWithWriter(&buf))

	n, err := e.Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, buf.String(), "skipping recurrence with incomplete data")
	assert.Contains(t, buf.String(), "rec-defect")
}

// =============================================================================
// PAUSE / RESUME
// =============================================================================

func TestRecurrenceEngine_PauseLeavesCursorInPlace(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()

	rec, _, err := e.CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	paused, err := e.Pause(ctx, testOwner, rec.ID)
	require.NoError(t, err)

	assert.False(t, paused.Active)
	assert.Equal(t, rec.NextDueDate, paused.NextDueDate)
}

func TestRecurrenceEngine_ResumeFastForwardsStaleCursor(t *testing.T) {
	// GIVEN: A paused rule whose cursor is months in the past
	// WHEN: Resumed today (Jun 20 2024, anchor Jan 15 monthly)
	// THEN: The cursor jumps to Jul 15 - no backfill of missed months

	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.CreateRecurrence(ctx, ledger.Recurrence{
		ID:              "rec-stale",
		OwnerID:         testOwner,
		Kind:            ledger.RecurrencePeriodic,
		TransactionKind: ledger.KindExpense,
		Interval:        calendar.IntervalMonth,
		IntervalCount:   1,
		StartDate:       day("2024-01-15"),
		Amount:          amt("50.00"),
		Description:     "Gym",
		AccountID:       env.account.ID,
		CategoryID:      env.food.ID,
		Active:          false,
		NextDueDate:     day("2024-02-15"),
		CreatedAt:       env.clock.Now(),
	}))

	resumed, err := env.engineAt("2024-06-20").Resume(ctx, testOwner, "rec-stale")
	require.NoError(t, err)

	assert.True(t, resumed.Active)
	assert.Equal(t, day("2024-07-15"), resumed.NextDueDate)
}

func TestRecurrenceEngine_PauseRejectsInstallmentGrouping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rows, err := env.manager().CreateInstallments(ctx, testOwner, ledger.InstallmentInput{
		Amount:            amt("50.00"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 2,
		Description:       "Chair",
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
	})
	require.NoError(t, err)

	_, err = env.engine().Pause(ctx, testOwner, *rows[0].RecurrenceID)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// DELETE
// =============================================================================

func TestRecurrenceEngine_DeleteLeavesGeneratedHistory(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine()
	ctx := context.Background()

	rec, rows, err := e.CreateRecurring(ctx, testOwner, monthlyRent(env))
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, testOwner, rec.ID))

	// The rule is gone; its generated rows remain.
	remaining, err := env.store.GetRecurrence(ctx, testOwner, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, remaining)

	tx, err := env.store.GetTransaction(ctx, testOwner, rows[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, tx)
}

func TestRecurrenceEngine_DeleteMissingNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine().Delete(context.Background(), testOwner, "rec-nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
