/*
transfers.go - Two-sided account transfers

PURPOSE:
  A transfer decrements the source account and increments the destination
  as of its date; both legs enter the balance replay. The two accounts
  must differ and both must belong to the owner.
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// TRANSFER SERVICE
// =============================================================================

type TransferService struct {
	store TxStore
	clock Clock
}

func NewTransferService(store TxStore, clock Clock) *TransferService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TransferService{store: store, clock: clock}
}

type CreateTransferInput struct {
	Amount        decimal.Decimal
	Date          calendar.Date
	Description   string
	FromAccountID AccountID
	ToAccountID   AccountID
}

func (s *TransferService) Create(ctx context.Context, owner UserID, in CreateTransferInput) (*Transfer, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}
	if in.Date.IsZero() {
		return nil, invalid("date", "is required")
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, invalid("toAccountId", "must differ from fromAccountId")
	}

	for _, id := range []AccountID{in.FromAccountID, in.ToAccountID} {
		a, err := s.store.GetAccount(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, notFound("account", string(id))
		}
	}

	t := Transfer{
		ID:            TransferID(uuid.NewString()),
		OwnerID:       owner,
		Amount:        in.Amount.Round(2),
		Date:          in.Date,
		Description:   in.Description,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.CreateTransfer(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TransferService) List(ctx context.Context, owner UserID) ([]Transfer, error) {
	return s.store.ListTransfers(ctx, owner)
}

func (s *TransferService) Delete(ctx context.Context, owner UserID, id TransferID) error {
	deleted, err := s.store.DeleteTransfer(ctx, owner, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("transfer", string(id))
	}
	return nil
}
