/*
installments.go - Splitting one purchase into N dated transactions

PURPOSE:
  An installment purchase becomes N rows, one per future invoice.
  Installment i's calendar date is the purchase date advanced by (i-1)
  months with day-of-month preserved; with a card, the stored ledger date
  is that date's invoice date.

AMOUNT CONTRACT:
  The caller supplies the PER-INSTALLMENT amount, already divided. Exactly
  N rows are written, each with that amount - no remainder redistribution.
  Rounding to two decimals happens here, at the split point, never at
  aggregation time.

GROUPING:
  All N rows share one freshly created Recurrence of kind installment
  (interval month/1, totalInstallments=N) purely as a grouping key. The
  extension run never touches it.

SEE ALSO:
  - calendar/invoice.go: Invoice date per installment
  - recurrence.go: The periodic counterpart
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// INSTALLMENT GENERATOR
// =============================================================================

type InstallmentInput struct {
	// Amount is the per-installment figure, not a total to divide.
	Amount            decimal.Decimal
	PurchaseDate      calendar.Date
	TotalInstallments int
	Description       string
	AccountID         AccountID
	CategoryID        CategoryID
	CreditCardID      *CreditCardID
}

func (in InstallmentInput) validate() error {
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	if in.PurchaseDate.IsZero() {
		return invalid("purchaseDate", "is required")
	}
	if in.TotalInstallments < 2 {
		return invalid("totalInstallments", "must be at least 2")
	}
	if in.AccountID == "" {
		return invalid("accountId", "is required")
	}
	if in.CategoryID == "" {
		return invalid("categoryId", "is required")
	}
	return nil
}

// CreateInstallments writes the grouping recurrence and all N rows in one
// atomic unit.
func (m *TransactionManager) CreateInstallments(ctx context.Context, owner UserID, in InstallmentInput) ([]Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := m.checkRefs(ctx, m.store, owner, in.AccountID, in.CategoryID); err != nil {
		return nil, err
	}

	var card *CreditCard
	if in.CreditCardID != nil {
		c, err := m.store.GetCreditCard(ctx, owner, *in.CreditCardID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, notFound("credit card", string(*in.CreditCardID))
		}
		card = c
	}

	amount := in.Amount.Round(2)
	total := in.TotalInstallments
	now := m.clock.Now()

	rec := Recurrence{
		ID:                RecurrenceID(uuid.NewString()),
		OwnerID:           owner,
		Kind:              RecurrenceInstallment,
		TransactionKind:   KindExpense,
		Interval:          calendar.IntervalMonth,
		IntervalCount:     1,
		StartDate:         in.PurchaseDate,
		TotalInstallments: &total,
		Amount:            amount,
		Description:       in.Description,
		AccountID:         in.AccountID,
		CategoryID:        in.CategoryID,
		CreditCardID:      in.CreditCardID,
		Active:            false,
		NextDueDate:       in.PurchaseDate,
		CreatedAt:         now,
	}

	rows := make([]Transaction, 0, total)
	for i := 1; i <= total; i++ {
		number := i
		calDate := in.PurchaseDate.AddMonths(i - 1)

		tx := Transaction{
			ID:                TransactionID(uuid.NewString()),
			OwnerID:           owner,
			Kind:              KindExpense,
			Amount:            amount,
			Description:       in.Description,
			AccountID:         in.AccountID,
			CategoryID:        in.CategoryID,
			CreditCardID:      in.CreditCardID,
			InstallmentNumber: &number,
			TotalInstallments: &total,
			RecurrenceID:      &rec.ID,
			CreatedAt:         now,
		}

		if card != nil {
			purchase := calDate
			tx.Date = calendar.InvoiceDate(purchase, card.ClosingDay, card.DueDay)
			tx.PurchaseDate = &purchase
			tx.Description = fmt.Sprintf("%s %d/%d", in.Description, i, total)
		} else {
			// Cardless installments are pre-dated plain expenses, not
			// invoice-linked debt: no purchase date, no suffix.
			tx.Date = calDate
		}

		rows = append(rows, tx)
	}

	err := m.store.WithTx(ctx, func(s Store) error {
		if err := s.CreateRecurrence(ctx, rec); err != nil {
			return err
		}
		return s.CreateTransactions(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
