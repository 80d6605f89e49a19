/*
store.go - Ownership-scoped persistence interfaces

PURPOSE:
  Defines the boundary between the engine and the database. Every query is
  scoped by the owning user id; a record another user owns is invisible
  (the one exception is GetTransactionAny, which backs the deliberate
  NotFound/Forbidden split on transaction deletion).

KEY INTERFACES:
  Store:   Union of the per-entity stores
  TxStore: Store plus WithTx for atomic multi-write units

GROUPED SUMS:
  Balance and used-amount aggregation run as single set-oriented queries
  (SUM ... GROUP BY account/card), never one query per entity. This keeps
  "all accounts" listings at two queries total and gives snapshot
  consistency within each read.

MISSING RECORDS:
  Get* methods return (nil, nil) when the row is absent or not owned.
  Services translate that into the NotFound taxonomy.

ATOMIC UNITS:
  WithTx(ctx, fn) runs fn against a transactional Store view. Used for:
  - installment batches (recurrence + N rows)
  - recurrence extension (generated rows + NextDueDate advance)
  - goal contributions (insert + CurrentAmount increment)

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store: In-memory for tests

SEE ALSO:
  - store/sqlite/sqlite.go: Concrete implementation
  - balance.go: Consumer of the grouped-sum surface
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// GROUPED-SUM RESULT TYPES
// =============================================================================

// AccountFlow is the per-account transaction sums up to a cutoff.
type AccountFlow struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// TransferFlow is the per-account transfer-leg sums up to a cutoff.
type TransferFlow struct {
	Out decimal.Decimal
	In  decimal.Decimal
}

// =============================================================================
// FILTERS
// =============================================================================

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	AccountID    *AccountID
	CategoryID   *CategoryID
	CreditCardID *CreditCardID
	RecurrenceID *RecurrenceID
	Kind         *TransactionKind
	Paid         *bool
	From         *calendar.Date
	To           *calendar.Date
}

// =============================================================================
// PER-ENTITY STORES
// =============================================================================

type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, owner UserID, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context, owner UserID) ([]Account, error)
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, owner UserID, id AccountID) (bool, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c Category) error
	GetCategory(ctx context.Context, owner UserID, id CategoryID) (*Category, error)
	ListCategories(ctx context.Context, owner UserID) ([]Category, error)
	UpdateCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, owner UserID, id CategoryID) (bool, error)
}

type CreditCardStore interface {
	CreateCreditCard(ctx context.Context, c CreditCard) error
	GetCreditCard(ctx context.Context, owner UserID, id CreditCardID) (*CreditCard, error)
	ListCreditCards(ctx context.Context, owner UserID) ([]CreditCard, error)
	UpdateCreditCard(ctx context.Context, c CreditCard) error
	DeleteCreditCard(ctx context.Context, owner UserID, id CreditCardID) (bool, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t Transaction) error
	// CreateTransactions persists a batch. Callers wanting atomicity run it
	// inside WithTx.
	CreateTransactions(ctx context.Context, ts []Transaction) error
	GetTransaction(ctx context.Context, owner UserID, id TransactionID) (*Transaction, error)
	// GetTransactionAny looks a transaction up WITHOUT owner scoping.
	// Only the deletion path uses it, to tell NotFound from Forbidden.
	GetTransactionAny(ctx context.Context, id TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, owner UserID, f TransactionFilter) ([]Transaction, error)
	UpdateTransaction(ctx context.Context, t Transaction) error
	DeleteTransaction(ctx context.Context, owner UserID, id TransactionID) (bool, error)

	// SumTransactionsByAccount returns income/expense sums per account for
	// rows with date <= through. One grouped query.
	SumTransactionsByAccount(ctx context.Context, owner UserID, through calendar.Date) (map[AccountID]AccountFlow, error)

	// SumTransactionsByKind returns income/expense totals in [from, to].
	// Backs the monthly summary.
	SumTransactionsByKind(ctx context.Context, owner UserID, from, to calendar.Date) (map[TransactionKind]decimal.Decimal, error)

	// SumUnpaidCardCharges returns, per card, the sum of unpaid expense
	// rows that are NOT recurring charges - all-time installment/charge
	// debt that counts until paid.
	SumUnpaidCardCharges(ctx context.Context, owner UserID) (map[CreditCardID]decimal.Decimal, error)

	// SumUnpaidRecurringCharges returns the sum of unpaid recurring-charge
	// rows on a card with date <= through (the currently open invoice).
	SumUnpaidRecurringCharges(ctx context.Context, owner UserID, card CreditCardID, through calendar.Date) (decimal.Decimal, error)

	// HasRecurrenceTransaction reports whether a transaction generated
	// from the recurrence already exists on that calendar day. The
	// idempotence guard for extension runs.
	HasRecurrenceTransaction(ctx context.Context, owner UserID, rec RecurrenceID, day calendar.Date) (bool, error)
}

type TransferStore interface {
	CreateTransfer(ctx context.Context, t Transfer) error
	GetTransfer(ctx context.Context, owner UserID, id TransferID) (*Transfer, error)
	ListTransfers(ctx context.Context, owner UserID) ([]Transfer, error)
	DeleteTransfer(ctx context.Context, owner UserID, id TransferID) (bool, error)

	// SumTransfersByAccount returns outgoing and incoming leg sums per
	// account for transfers with date <= through. One grouped query.
	SumTransfersByAccount(ctx context.Context, owner UserID, through calendar.Date) (map[AccountID]TransferFlow, error)
}

type RecurrenceStore interface {
	CreateRecurrence(ctx context.Context, r Recurrence) error
	GetRecurrence(ctx context.Context, owner UserID, id RecurrenceID) (*Recurrence, error)
	ListRecurrences(ctx context.Context, owner UserID) ([]Recurrence, error)
	UpdateRecurrence(ctx context.Context, r Recurrence) error
	// DeleteRecurrence removes the rule only. Generated transactions keep
	// their recurrence_id as orphaned history - intentional.
	DeleteRecurrence(ctx context.Context, owner UserID, id RecurrenceID) (bool, error)

	// ListDueRecurrences returns active periodic recurrences whose
	// NextDueDate <= dueBy.
	ListDueRecurrences(ctx context.Context, owner UserID, dueBy calendar.Date) ([]Recurrence, error)

	// ListRecurrenceOwners returns the owners that have at least one
	// active periodic recurrence. Used by the extension scheduler.
	ListRecurrenceOwners(ctx context.Context) ([]UserID, error)
}

type BudgetStore interface {
	// CreateBudget fails with ErrConflict when a budget already exists for
	// (owner, category, month, year).
	CreateBudget(ctx context.Context, b Budget) error
	GetBudget(ctx context.Context, owner UserID, id BudgetID) (*Budget, error)
	ListBudgets(ctx context.Context, owner UserID, month time.Month, year int) ([]Budget, error)
	UpdateBudget(ctx context.Context, b Budget) error
	DeleteBudget(ctx context.Context, owner UserID, id BudgetID) (bool, error)
}

type GoalStore interface {
	CreateGoal(ctx context.Context, g Goal) error
	GetGoal(ctx context.Context, owner UserID, id GoalID) (*Goal, error)
	ListGoals(ctx context.Context, owner UserID) ([]Goal, error)
	UpdateGoal(ctx context.Context, g Goal) error
	DeleteGoal(ctx context.Context, owner UserID, id GoalID) (bool, error)

	CreateGoalContribution(ctx context.Context, c GoalContribution) error
	ListGoalContributions(ctx context.Context, goal GoalID) ([]GoalContribution, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is everything the engine needs from persistence.
type Store interface {
	AccountStore
	CategoryStore
	CreditCardStore
	TransactionStore
	TransferStore
	RecurrenceStore
	BudgetStore
	GoalStore
}

// TxStore adds atomic multi-write units.
type TxStore interface {
	Store

	// WithTx executes fn within one database transaction. fn returning an
	// error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
