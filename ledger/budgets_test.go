package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// BUDGETS
// =============================================================================

func TestBudgetService_Create(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)

	b, err := s.Create(context.Background(), testOwner, ledger.CreateBudgetInput{
		CategoryID: env.food.ID,
		Month:      time.January,
		Year:       2024,
		Amount:     amt("500.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, env.food.ID, b.CategoryID)
	assert.Equal(t, time.January, b.Month)
	assert.True(t, b.Amount.Equal(amt("500.00")))
}

func TestBudgetService_DuplicateMonthConflicts(t *testing.T) {
	// GIVEN: A budget for (food, Jan 2024)
	// WHEN: A second budget for the same tuple is created
	// THEN: Conflict - one budget per category per month

	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)
	ctx := context.Background()

	in := ledger.CreateBudgetInput{
		CategoryID: env.food.ID,
		Month:      time.January,
		Year:       2024,
		Amount:     amt("500.00"),
	}
	_, err := s.Create(ctx, testOwner, in)
	require.NoError(t, err)

	_, err = s.Create(ctx, testOwner, in)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	// A different month is fine.
	in.Month = time.February
	_, err = s.Create(ctx, testOwner, in)
	assert.NoError(t, err)
}

func TestBudgetService_RejectsIncomeCategory(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)

	_, err := s.Create(context.Background(), testOwner, ledger.CreateBudgetInput{
		CategoryID: env.salary.ID,
		Month:      time.January,
		Year:       2024,
		Amount:     amt("500.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestBudgetService_Report(t *testing.T) {
	// GIVEN: A 500 food budget for January with 200 + 100 spent in-month
	//        and 50 spent in February
	// WHEN: The January report runs
	// THEN: Spent 300, remaining 200

	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)
	ctx := context.Background()

	_, err := s.Create(ctx, testOwner, ledger.CreateBudgetInput{
		CategoryID: env.food.ID,
		Month:      time.January,
		Year:       2024,
		Amount:     amt("500.00"),
	})
	require.NoError(t, err)

	env.rawTransaction(t, ledger.Transaction{
		ID: "tx-jan-a", Kind: ledger.KindExpense, Amount: amt("200.00"), Date: day("2024-01-08"),
	})
	env.rawTransaction(t, ledger.Transaction{
		ID: "tx-jan-b", Kind: ledger.KindExpense, Amount: amt("100.00"), Date: day("2024-01-20"),
	})
	env.rawTransaction(t, ledger.Transaction{
		ID: "tx-feb", Kind: ledger.KindExpense, Amount: amt("50.00"), Date: day("2024-02-02"),
	})

	reports, err := s.Report(ctx, testOwner, time.January, 2024)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Spent.Equal(amt("300.00")), "spent = %s", reports[0].Spent)
	assert.True(t, reports[0].Remaining.Equal(amt("200.00")), "remaining = %s", reports[0].Remaining)
}

func TestBudgetService_UpdateAmount(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)
	ctx := context.Background()

	b, err := s.Create(ctx, testOwner, ledger.CreateBudgetInput{
		CategoryID: env.food.ID,
		Month:      time.January,
		Year:       2024,
		Amount:     amt("500.00"),
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, testOwner, b.ID, amt("750.00"))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amt("750.00")))

	_, err = s.Update(ctx, testOwner, "budget-nope", amt("10.00"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestBudgetService_DeleteMissingNotFound(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewBudgetService(env.store, env.clock)

	err := s.Delete(context.Background(), testOwner, "budget-nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
