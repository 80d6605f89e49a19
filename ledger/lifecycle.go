/*
lifecycle.go - The write path for individual transactions

PURPOSE:
  TransactionManager is the only component that creates, mutates or
  deletes transaction rows on behalf of the rest of the engine. It
  composes invoice assignment, ownership validation and the auto-pay rule.

OWNERSHIP:
  Every operation checks ownership before any mutation. Absent and
  not-owned are both NotFound - except deletion, which answers Forbidden
  for rows that exist under another owner (the one deliberate asymmetry,
  kept for audit-correct HTTP semantics).

PAYING:
  Marking a transaction paid with an explicit paid-at date moves the
  ledger date to that day - paying crystallizes when the money actually
  left. The paying account can be redirected in the same call.

SEE ALSO:
  - assignment.go: Invoice assignment + auto-pay
  - installments.go: Batch creation for installment purchases
  - recurrence.go: Generated recurring rows
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// TRANSACTION MANAGER
// =============================================================================

type TransactionManager struct {
	store TxStore
	clock Clock
}

func NewTransactionManager(store TxStore, clock Clock) *TransactionManager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TransactionManager{store: store, clock: clock}
}

// =============================================================================
// CREATE
// =============================================================================

type CreateTransactionInput struct {
	Kind         TransactionKind
	Amount       decimal.Decimal
	Date         calendar.Date
	Description  string
	AccountID    AccountID
	CategoryID   CategoryID
	CreditCardID *CreditCardID
}

func (in CreateTransactionInput) validate() error {
	if !in.Kind.Valid() {
		return invalid("kind", "must be income or expense")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	if in.AccountID == "" {
		return invalid("accountId", "is required")
	}
	if in.CategoryID == "" {
		return invalid("categoryId", "is required")
	}
	return nil
}

// Create validates ownership of every referenced record, resolves invoice
// assignment, applies the auto-pay rule and persists one row.
func (m *TransactionManager) Create(ctx context.Context, owner UserID, in CreateTransactionInput) (*Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := m.checkRefs(ctx, m.store, owner, in.AccountID, in.CategoryID); err != nil {
		return nil, err
	}

	assigned, err := assignInvoice(ctx, m.store, owner, in.CreditCardID, in.Date)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		ID:           TransactionID(uuid.NewString()),
		OwnerID:      owner,
		Kind:         in.Kind,
		Amount:       in.Amount.Round(2),
		Date:         assigned.Date,
		PurchaseDate: assigned.PurchaseDate,
		Description:  in.Description,
		AccountID:    in.AccountID,
		CategoryID:   in.CategoryID,
		CreditCardID: in.CreditCardID,
		CreatedAt:    m.clock.Now(),
	}

	if autoPay(in.Kind, in.CreditCardID, assigned.Date, m.clock.Today()) {
		today := m.clock.Today()
		tx.Paid = true
		tx.PaidAt = &today
	}

	if err := m.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateTransactionInput is a patch; nil fields are left untouched.
// Changing Date or the card re-runs invoice assignment against the
// existing card when none is supplied.
type UpdateTransactionInput struct {
	Kind            *TransactionKind
	Amount          *decimal.Decimal
	Date            *calendar.Date
	Description     *string
	AccountID       *AccountID
	CategoryID      *CategoryID
	CreditCardID    *CreditCardID
	ClearCreditCard bool
}

func (m *TransactionManager) Update(ctx context.Context, owner UserID, id TransactionID, in UpdateTransactionInput) (*Transaction, error) {
	existing, err := m.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("transaction", string(id))
	}

	tx := *existing
	if in.Kind != nil {
		if !in.Kind.Valid() {
			return nil, invalid("kind", "must be income or expense")
		}
		tx.Kind = *in.Kind
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, invalid("amount", "must be positive")
		}
		tx.Amount = in.Amount.Round(2)
	}
	if in.Description != nil {
		tx.Description = *in.Description
	}
	if in.AccountID != nil {
		if err := m.checkAccount(ctx, m.store, owner, *in.AccountID); err != nil {
			return nil, err
		}
		tx.AccountID = *in.AccountID
	}
	if in.CategoryID != nil {
		if err := m.checkCategory(ctx, m.store, owner, *in.CategoryID); err != nil {
			return nil, err
		}
		tx.CategoryID = *in.CategoryID
	}

	// Re-run invoice assignment when the date or the card changed.
	if in.Date != nil || in.CreditCardID != nil || in.ClearCreditCard {
		card := tx.CreditCardID
		switch {
		case in.ClearCreditCard:
			card = nil
		case in.CreditCardID != nil:
			card = in.CreditCardID
		}

		inputDate := tx.Date
		if tx.PurchaseDate != nil {
			inputDate = *tx.PurchaseDate
		}
		if in.Date != nil {
			inputDate = *in.Date
		}

		assigned, err := assignInvoice(ctx, m.store, owner, card, inputDate)
		if err != nil {
			return nil, err
		}
		tx.CreditCardID = card
		tx.Date = assigned.Date
		tx.PurchaseDate = assigned.PurchaseDate
	}

	if err := m.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete fails NotFound when the row does not exist at all, and Forbidden
// when it exists but belongs to someone else.
func (m *TransactionManager) Delete(ctx context.Context, owner UserID, id TransactionID) error {
	existing, err := m.store.GetTransactionAny(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound("transaction", string(id))
	}
	if existing.OwnerID != owner {
		return fmt.Errorf("transaction %s belongs to another user: %w", id, ErrForbidden)
	}

	_, err = m.store.DeleteTransaction(ctx, owner, id)
	return err
}

// =============================================================================
// SET PAID
// =============================================================================

type SetPaidInput struct {
	Paid      bool
	PaidAt    *calendar.Date
	AccountID *AccountID
}

// SetPaid marks a transaction paid or unpaid. Paying with an explicit
// PaidAt moves the ledger date to that day; the paying account may be
// redirected at the same time.
func (m *TransactionManager) SetPaid(ctx context.Context, owner UserID, id TransactionID, in SetPaidInput) (*Transaction, error) {
	existing, err := m.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("transaction", string(id))
	}

	tx := *existing
	if in.Paid {
		paidAt := m.clock.Today()
		if in.PaidAt != nil {
			paidAt = *in.PaidAt
			tx.Date = paidAt
		}
		tx.Paid = true
		tx.PaidAt = &paidAt

		if in.AccountID != nil {
			if err := m.checkAccount(ctx, m.store, owner, *in.AccountID); err != nil {
				return nil, err
			}
			tx.AccountID = *in.AccountID
		}
	} else {
		tx.Paid = false
		tx.PaidAt = nil
	}

	if err := m.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// READS
// =============================================================================

func (m *TransactionManager) Get(ctx context.Context, owner UserID, id TransactionID) (*Transaction, error) {
	tx, err := m.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, notFound("transaction", string(id))
	}
	return tx, nil
}

func (m *TransactionManager) List(ctx context.Context, owner UserID, f TransactionFilter) ([]Transaction, error) {
	return m.store.ListTransactions(ctx, owner, f)
}

// Summary is the monthly income/expense roll-up.
type Summary struct {
	Month   time.Month
	Year    int
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// MonthSummary computes income/expense totals for one month with a single
// grouped query.
func (m *TransactionManager) MonthSummary(ctx context.Context, owner UserID, month time.Month, year int) (*Summary, error) {
	from := calendar.StartOfMonth(year, month)
	to := calendar.EndOfMonth(year, month)

	sums, err := m.store.SumTransactionsByKind(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}

	income := sums[KindIncome]
	expense := sums[KindExpense]
	return &Summary{
		Month:   month,
		Year:    year,
		Income:  income,
		Expense: expense,
		Net:     income.Sub(expense),
	}, nil
}

// =============================================================================
// REFERENCE CHECKS
// =============================================================================

func (m *TransactionManager) checkRefs(ctx context.Context, store Store, owner UserID, account AccountID, category CategoryID) error {
	if err := m.checkAccount(ctx, store, owner, account); err != nil {
		return err
	}
	return m.checkCategory(ctx, store, owner, category)
}

func (m *TransactionManager) checkAccount(ctx context.Context, store Store, owner UserID, id AccountID) error {
	a, err := store.GetAccount(ctx, owner, id)
	if err != nil {
		return err
	}
	if a == nil {
		return notFound("account", string(id))
	}
	return nil
}

func (m *TransactionManager) checkCategory(ctx context.Context, store Store, owner UserID, id CategoryID) error {
	c, err := store.GetCategory(ctx, owner, id)
	if err != nil {
		return err
	}
	if c == nil {
		return notFound("category", string(id))
	}
	return nil
}
