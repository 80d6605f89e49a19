package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// CARD INSTALLMENTS
// =============================================================================

func TestInstallments_CardPurchaseSpreadsAcrossInvoices(t *testing.T) {
	// GIVEN: A 3x card purchase of 333.33/month on Jan 15
	//        (card closes on the 5th, invoices due on the 10th)
	// WHEN: The installments are created
	// THEN: Three rows land on the Feb, Mar and Apr invoices, numbered and
	//       suffixed, each keeping its own calendar purchase day

	env := newTestEnv(t)
	m := env.manager()

	rows, err := m.CreateInstallments(context.Background(), testOwner, ledger.InstallmentInput{
		Amount:            amt("333.33"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 3,
		Description:       "Laptop",
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
		CreditCardID:      &env.card.ID,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	wantDates := []calendar.Date{day("2024-02-10"), day("2024-03-10"), day("2024-04-10")}
	wantPurchases := []calendar.Date{day("2024-01-15"), day("2024-02-15"), day("2024-03-15")}
	wantDescriptions := []string{"Laptop 1/3", "Laptop 2/3", "Laptop 3/3"}

	for i, row := range rows {
		assert.Equal(t, wantDates[i], row.Date, "installment %d ledger date", i+1)
		require.NotNil(t, row.PurchaseDate)
		assert.Equal(t, wantPurchases[i], *row.PurchaseDate, "installment %d purchase day", i+1)
		assert.Equal(t, wantDescriptions[i], row.Description)
		assert.True(t, row.Amount.Equal(amt("333.33")))
		assert.Equal(t, ledger.KindExpense, row.Kind)

		require.NotNil(t, row.InstallmentNumber)
		assert.Equal(t, i+1, *row.InstallmentNumber)
		require.NotNil(t, row.TotalInstallments)
		assert.Equal(t, 3, *row.TotalInstallments)
		assert.False(t, row.IsRecurringCharge)
	}

	// All rows share one grouping key.
	require.NotNil(t, rows[0].RecurrenceID)
	assert.Equal(t, *rows[0].RecurrenceID, *rows[1].RecurrenceID)
	assert.Equal(t, *rows[0].RecurrenceID, *rows[2].RecurrenceID)
}

func TestInstallments_GroupingRecurrenceIsInertInstallmentKind(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager()
	ctx := context.Background()

	rows, err := m.CreateInstallments(ctx, testOwner, ledger.InstallmentInput{
		Amount:            amt("50.00"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 2,
		Description:       "Headphones",
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
		CreditCardID:      &env.card.ID,
	})
	require.NoError(t, err)

	rec, err := env.store.GetRecurrence(ctx, testOwner, *rows[0].RecurrenceID)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, ledger.RecurrenceInstallment, rec.Kind)
	assert.False(t, rec.Active)
	require.NotNil(t, rec.TotalInstallments)
	assert.Equal(t, 2, *rec.TotalInstallments)

	// The extension run must never pick it up.
	engine := ledger.NewRecurrenceEngine(env.store, env.clock, testLogger())
	n, err := engine.Extend(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// CARDLESS INSTALLMENTS
// =============================================================================

func TestInstallments_WithoutCardKeepsPlainDates(t *testing.T) {
	// Cardless installments are pre-dated plain expenses: ledger date is
	// the stepped calendar day, no purchase date, no numbering suffix.

	env := newTestEnv(t)
	m := env.manager()

	rows, err := m.CreateInstallments(context.Background(), testOwner, ledger.InstallmentInput{
		Amount:            amt("100.00"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 3,
		Description:       "Dentist",
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	wantDates := []calendar.Date{day("2024-01-15"), day("2024-02-15"), day("2024-03-15")}
	for i, row := range rows {
		assert.Equal(t, wantDates[i], row.Date)
		assert.Nil(t, row.PurchaseDate)
		assert.Equal(t, "Dentist", row.Description)
	}
}

func TestInstallments_EndOfMonthPurchaseOverflows(t *testing.T) {
	// Jan 31 + 1 month rolls into March; the ledger pins native date
	// arithmetic rather than snapping to month-end.
	env := newTestEnv(t)
	m := env.manager()

	rows, err := m.CreateInstallments(context.Background(), testOwner, ledger.InstallmentInput{
		Amount:            amt("10.00"),
		PurchaseDate:      day("2024-01-31"),
		TotalInstallments: 2,
		Description:       "Gym",
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, day("2024-01-31"), rows[0].Date)
	assert.Equal(t, day("2024-03-02"), rows[1].Date)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestInstallments_RejectsFewerThanTwo(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager()

	_, err := m.CreateInstallments(context.Background(), testOwner, ledger.InstallmentInput{
		Amount:            amt("100.00"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 1,
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestInstallments_RejectsUnknownCard(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager()

	missing := ledger.CreditCardID("card-nope")
	_, err := m.CreateInstallments(context.Background(), testOwner, ledger.InstallmentInput{
		Amount:            amt("100.00"),
		PurchaseDate:      day("2024-01-15"),
		TotalInstallments: 2,
		AccountID:         env.account.ID,
		CategoryID:        env.food.ID,
		CreditCardID:      &missing,
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
