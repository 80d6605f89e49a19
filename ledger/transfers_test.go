package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransferService_Create(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewTransferService(env.store, env.clock)

	tr, err := s.Create(context.Background(), testOwner, ledger.CreateTransferInput{
		Amount:        amt("250.555"),
		Date:          day("2024-01-12"),
		Description:   "Savings top-up",
		FromAccountID: env.account.ID,
		ToAccountID:   env.savings.ID,
	})
	require.NoError(t, err)

	assert.True(t, tr.Amount.Equal(amt("250.56")), "rounded to cents, got %s", tr.Amount)
	assert.Equal(t, env.account.ID, tr.FromAccountID)
	assert.Equal(t, env.savings.ID, tr.ToAccountID)
}

func TestTransferService_RejectsSameAccount(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewTransferService(env.store, env.clock)

	_, err := s.Create(context.Background(), testOwner, ledger.CreateTransferInput{
		Amount:        amt("100.00"),
		Date:          day("2024-01-12"),
		FromAccountID: env.account.ID,
		ToAccountID:   env.account.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestTransferService_RejectsUnknownAccounts(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewTransferService(env.store, env.clock)
	ctx := context.Background()

	_, err := s.Create(ctx, testOwner, ledger.CreateTransferInput{
		Amount:        amt("100.00"),
		Date:          day("2024-01-12"),
		FromAccountID: "acc-nope",
		ToAccountID:   env.savings.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	// Another owner's account is equally invisible.
	account, _ := env.otherOwnerSeed(t)
	_, err = s.Create(ctx, testOwner, ledger.CreateTransferInput{
		Amount:        amt("100.00"),
		Date:          day("2024-01-12"),
		FromAccountID: env.account.ID,
		ToAccountID:   account.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestTransferService_DeleteMissingNotFound(t *testing.T) {
	env := newTestEnv(t)
	s := ledger.NewTransferService(env.store, env.clock)

	err := s.Delete(context.Background(), testOwner, "tr-nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
