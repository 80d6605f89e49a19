package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
	"github.com/ledgerkit/finance-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testOwner  = ledger.UserID("user-1")
	otherOwner = ledger.UserID("user-2")
)

// testToday is the frozen clock date all engine tests run against.
var testToday = calendar.MustParse("2024-01-15")

// testEnv wires the in-memory store with one seeded owner: a checking
// account (initial 1000), a savings account (initial 0), an income and an
// expense category, and a card closing on the 5th / due on the 10th.
type testEnv struct {
	store *store.Memory
	clock ledger.FixedClock

	account ledger.Account
	savings ledger.Account
	salary  ledger.Category
	food    ledger.Category
	card    ledger.CreditCard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		store: store.NewMemory(),
		clock: ledger.FixedClock{Day: testToday},
	}

	env.account = ledger.Account{
		ID:             "acc-main",
		OwnerID:        testOwner,
		Name:           "Main Checking",
		Type:           ledger.AccountChecking,
		InitialBalance: amt("1000.00"),
		CreatedAt:      env.clock.Now(),
	}
	require.NoError(t, env.store.CreateAccount(ctx, env.account))

	env.savings = ledger.Account{
		ID:        "acc-savings",
		OwnerID:   testOwner,
		Name:      "Savings",
		Type:      ledger.AccountSavings,
		CreatedAt: env.clock.Now(),
	}
	require.NoError(t, env.store.CreateAccount(ctx, env.savings))

	env.salary = ledger.Category{
		ID:        "cat-salary",
		OwnerID:   testOwner,
		Name:      "Salary",
		Kind:      ledger.CategoryIncome,
		CreatedAt: env.clock.Now(),
	}
	require.NoError(t, env.store.CreateCategory(ctx, env.salary))

	env.food = ledger.Category{
		ID:        "cat-food",
		OwnerID:   testOwner,
		Name:      "Food",
		Kind:      ledger.CategoryExpense,
		CreatedAt: env.clock.Now(),
	}
	require.NoError(t, env.store.CreateCategory(ctx, env.food))

	limit := amt("5000.00")
	env.card = ledger.CreditCard{
		ID:         "card-1",
		OwnerID:    testOwner,
		AccountID:  env.account.ID,
		Name:       "Visa",
		ClosingDay: 5,
		DueDay:     10,
		Limit:      &limit,
		CreatedAt:  env.clock.Now(),
	}
	require.NoError(t, env.store.CreateCreditCard(ctx, env.card))

	return env
}

func (e *testEnv) manager() *ledger.TransactionManager {
	return ledger.NewTransactionManager(e.store, e.clock)
}

// =============================================================================
// FIXTURE HELPERS
// =============================================================================

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func day(s string) calendar.Date {
	return calendar.MustParse(s)
}

func dayPtr(s string) *calendar.Date {
	d := calendar.MustParse(s)
	return &d
}

// rawTransaction inserts a ledger row directly, bypassing the manager.
// Aggregation tests use it to pin exact store-level shapes.
func (e *testEnv) rawTransaction(t *testing.T, tx ledger.Transaction) ledger.Transaction {
	t.Helper()
	if tx.OwnerID == "" {
		tx.OwnerID = testOwner
	}
	if tx.AccountID == "" {
		tx.AccountID = e.account.ID
	}
	if tx.CategoryID == "" {
		tx.CategoryID = e.food.ID
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = e.clock.Now()
	}
	require.NoError(t, e.store.CreateTransaction(context.Background(), tx))
	return tx
}

// otherOwnerSeed adds a second user with their own account and category,
// for ownership-isolation tests.
func (e *testEnv) otherOwnerSeed(t *testing.T) (ledger.Account, ledger.Category) {
	t.Helper()
	ctx := context.Background()

	account := ledger.Account{
		ID:        "acc-other",
		OwnerID:   otherOwner,
		Name:      "Other Checking",
		Type:      ledger.AccountChecking,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateAccount(ctx, account))

	category := ledger.Category{
		ID:        "cat-other",
		OwnerID:   otherOwner,
		Name:      "Other Expenses",
		Kind:      ledger.CategoryExpense,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateCategory(ctx, category))

	return account, category
}
