/*
Package ledger provides the core personal-finance engine.

PURPOSE:
  This package contains the domain records and the engine logic for the
  ledger: which invoice a card charge bills under, how installment
  purchases split across future invoices, how recurring charges are
  materialized and kept in sync, and how balances and card used-amounts
  derive from replaying the ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account/Category/CreditCard: the reference records transactions link to
  - Transaction: one ledger row; Date is the invoice/ledger-effective date,
    PurchaseDate the real-world purchase day (card charges only)
  - Transfer: a two-sided movement between accounts
  - Recurrence: a repeating rule plus its generation cursor (NextDueDate)
  - Budget/Goal/GoalContribution: planning records

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every amount, no binary floats
  2. Dates are calendar.Date - time-of-day is irrelevant to ledger semantics
  3. Ownership: every record belongs to exactly one user; stores scope
     every query by owner id
  4. Balance is derived: replayed from transactions and transfers, never a
     stored field (goals' CurrentAmount is the one denormalized exception)

SEE ALSO:
  - store.go: Persistence interfaces
  - lifecycle.go: The write path for transactions
  - balance.go: Balance and used-amount aggregation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type CategoryID string
type CreditCardID string
type TransactionID string
type TransferID string
type RecurrenceID string
type BudgetID string
type GoalID string

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCash       AccountType = "cash"
	AccountInvestment AccountType = "investment"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCash, AccountInvestment:
		return true
	}
	return false
}

// Account is a money container. Balance at any date is InitialBalance plus
// the replayed transactions and transfer legs up to that date.
type Account struct {
	ID             AccountID
	OwnerID        UserID
	Name           string
	Type           AccountType
	InitialBalance decimal.Decimal
	CreatedAt      time.Time
}

// =============================================================================
// CATEGORY
// =============================================================================

type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

type Category struct {
	ID        CategoryID
	OwnerID   UserID
	Name      string
	Kind      CategoryKind
	Color     string
	Icon      string
	CreatedAt time.Time
}

// =============================================================================
// CREDIT CARD
// =============================================================================

// CreditCard carries the billing cycle. ClosingDay and DueDay are
// day-of-month values in [1,31], not validated against any particular
// month's length (see calendar.InvoiceDate).
type CreditCard struct {
	ID         CreditCardID
	OwnerID    UserID
	AccountID  AccountID
	Name       string
	ClosingDay int
	DueDay     int
	Limit      *decimal.Decimal
	CreatedAt  time.Time
}

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is one ledger row.
//
// Date is the ledger-effective date: the date the row counts toward a
// balance. For card charges it is the invoice date; PurchaseDate then holds
// the real purchase day. PurchaseDate is set iff CreditCardID is set.
//
// IsRecurringCharge marks rows generated from a periodic recurrence: their
// unpaid amount only counts against the currently open invoice, not all
// unpaid history, because they regenerate every cycle.
type Transaction struct {
	ID           TransactionID
	OwnerID      UserID
	Kind         TransactionKind
	Amount       decimal.Decimal
	Date         calendar.Date
	PurchaseDate *calendar.Date
	Description  string
	AccountID    AccountID
	CategoryID   CategoryID
	CreditCardID *CreditCardID

	InstallmentNumber *int
	TotalInstallments *int
	RecurrenceID      *RecurrenceID
	IsRecurringCharge bool

	Paid      bool
	PaidAt    *calendar.Date
	CreatedAt time.Time
}

// =============================================================================
// TRANSFER
// =============================================================================

// Transfer moves Amount from one account to another on Date.
// Two-sided: the aggregator subtracts it from FromAccountID and adds it to
// ToAccountID. The two accounts must differ.
type Transfer struct {
	ID            TransferID
	OwnerID       UserID
	Amount        decimal.Decimal
	Date          calendar.Date
	Description   string
	FromAccountID AccountID
	ToAccountID   AccountID
	CreatedAt     time.Time
}

// =============================================================================
// RECURRENCE
// =============================================================================

type RecurrenceKind string

const (
	// RecurrencePeriodic repeats until EndDate (or forever) and is
	// extended by the recurrence engine.
	RecurrencePeriodic RecurrenceKind = "periodic"

	// RecurrenceInstallment groups the N rows of an installment purchase.
	// Created once, never extended.
	RecurrenceInstallment RecurrenceKind = "installment"
)

// Recurrence is a repeating rule plus its generation cursor.
//
// NextDueDate is the first occurrence not yet materialized as a
// transaction. It is monotonically non-decreasing across generation runs
// and always >= StartDate.
type Recurrence struct {
	ID                RecurrenceID
	OwnerID           UserID
	Kind              RecurrenceKind
	TransactionKind   TransactionKind
	Interval          calendar.Interval
	IntervalCount     int
	StartDate         calendar.Date
	EndDate           *calendar.Date
	TotalInstallments *int
	Amount            decimal.Decimal
	Description       string
	AccountID         AccountID
	CategoryID        CategoryID
	CreditCardID      *CreditCardID
	Active            bool
	NextDueDate       calendar.Date
	CreatedAt         time.Time
}

// Expired reports whether the recurrence's end date has passed.
func (r Recurrence) Expired(today calendar.Date) bool {
	return r.EndDate != nil && r.EndDate.Before(today)
}

// =============================================================================
// BUDGET
// =============================================================================

// Budget caps spending for one expense category in one month.
// Unique per (owner, category, month, year).
type Budget struct {
	ID         BudgetID
	OwnerID    UserID
	CategoryID CategoryID
	Month      time.Month
	Year       int
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

// =============================================================================
// GOAL
// =============================================================================

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// Goal is a savings target. CurrentAmount is the denormalized running
// total of contributions, maintained transactionally with each insert.
type Goal struct {
	ID            GoalID
	OwnerID       UserID
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      *calendar.Date
	Status        GoalStatus
	CreatedAt     time.Time
}

// GoalContribution is append-only; creating one increments the goal's
// CurrentAmount in the same store transaction.
type GoalContribution struct {
	ID        string
	GoalID    GoalID
	Amount    decimal.Decimal
	Date      calendar.Date
	CreatedAt time.Time
}
