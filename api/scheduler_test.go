package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/api"
	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
	"github.com/ledgerkit/finance-engine/ledger/store"
)

// =============================================================================
// EXTENSION SCHEDULER
// =============================================================================

func TestExtensionScheduler_RunNowTopsUpAllOwners(t *testing.T) {
	// GIVEN: A rule materialized through Jan 15 2025 (created Jan 15 2024)
	// WHEN: The scheduler runs a month later
	// THEN: The newly-in-horizon occurrence is generated for the owner

	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateAccount(ctx, ledger.Account{
		ID: "acc-1", OwnerID: "alice", Name: "Main", Type: ledger.AccountChecking,
	}))
	require.NoError(t, mem.CreateCategory(ctx, ledger.Category{
		ID: "cat-1", OwnerID: "alice", Name: "Housing", Kind: ledger.CategoryExpense,
	}))

	creation := ledger.NewRecurrenceEngine(mem, ledger.FixedClock{Day: calendar.MustParse("2024-01-15")}, testLogger())
	_, rows, err := creation.CreateRecurring(ctx, "alice", ledger.RecurringInput{
		Kind:          ledger.KindExpense,
		Amount:        amt("1200.00"),
		Description:   "Rent",
		Interval:      calendar.IntervalMonth,
		IntervalCount: 1,
		StartDate:     calendar.MustParse("2024-01-15"),
		AccountID:     "acc-1",
		CategoryID:    "cat-1",
	})
	require.NoError(t, err)
	before := len(rows)

	later := ledger.NewRecurrenceEngine(mem, ledger.FixedClock{Day: calendar.MustParse("2024-02-15")}, testLogger())
	scheduler := api.NewExtensionScheduler(mem, later, testLogger())
	scheduler.RunNow()

	all, err := mem.ListTransactions(ctx, "alice", ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, before+1)

	// A second pass is a no-op.
	scheduler.RunNow()
	all, err = mem.ListTransactions(ctx, "alice", ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, before+1)
}

func TestExtensionScheduler_DisabledDoesNotStart(t *testing.T) {
	mem := store.NewMemory()
	engine := ledger.NewRecurrenceEngine(mem, nil, testLogger())

	scheduler := api.NewExtensionScheduler(mem, engine, testLogger())
	scheduler.Enabled = false

	// Start is a no-op when disabled; Stop on a never-started scheduler
	// must not panic.
	scheduler.Start()
	scheduler.Stop()
}
