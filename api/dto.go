/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  All JSON shapes crossing the HTTP boundary live here, with converters
  from the domain records. Handlers never hand a domain struct straight to
  the encoder.

CONVENTIONS:
  - Dates are ISO "YYYY-MM-DD" strings (calendar.Date marshals as text)
  - Amounts are decimal strings, never floats
  - Optional references marshal as absent, not null-with-meaning

SEE ALSO:
  - handlers.go: Producers and consumers of these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type CreateAccountRequest struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

type UpdateAccountRequest struct {
	Name           *string          `json:"name"`
	Type           *string          `json:"type"`
	InitialBalance *decimal.Decimal `json:"initialBalance"`
}

type AccountDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CreatedAt      string          `json:"createdAt"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		Type:           string(a.Type),
		InitialBalance: a.InitialBalance,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

type BalanceDTO struct {
	AccountID string          `json:"accountId"`
	Name      string          `json:"name"`
	AsOf      calendar.Date   `json:"asOf"`
	Balance   decimal.Decimal `json:"balance"`
}

func toBalanceDTO(b ledger.AccountBalance) BalanceDTO {
	return BalanceDTO{
		AccountID: string(b.Account.ID),
		Name:      b.Account.Name,
		AsOf:      b.AsOf,
		Balance:   b.Balance,
	}
}

// =============================================================================
// CATEGORIES
// =============================================================================

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Color     string `json:"color,omitempty"`
	Icon      string `json:"icon,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Kind:      string(c.Kind),
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

type CreateCreditCardRequest struct {
	Name       string           `json:"name"`
	AccountID  string           `json:"accountId"`
	ClosingDay int              `json:"closingDay"`
	DueDay     int              `json:"dueDay"`
	Limit      *decimal.Decimal `json:"limit"`
}

type CreditCardDTO struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	AccountID  string           `json:"accountId"`
	ClosingDay int              `json:"closingDay"`
	DueDay     int              `json:"dueDay"`
	Limit      *decimal.Decimal `json:"limit,omitempty"`
	CreatedAt  string           `json:"createdAt"`
}

func toCreditCardDTO(c ledger.CreditCard) CreditCardDTO {
	return CreditCardDTO{
		ID:         string(c.ID),
		Name:       c.Name,
		AccountID:  string(c.AccountID),
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
		Limit:      c.Limit,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}

type CardUsageDTO struct {
	CardID     string           `json:"cardId"`
	Name       string           `json:"name"`
	UsedAmount decimal.Decimal  `json:"usedAmount"`
	Limit      *decimal.Decimal `json:"limit,omitempty"`
	Available  *decimal.Decimal `json:"available,omitempty"`
}

func toCardUsageDTO(u ledger.CardUsage) CardUsageDTO {
	return CardUsageDTO{
		CardID:     string(u.Card.ID),
		Name:       u.Card.Name,
		UsedAmount: u.UsedAmount,
		Limit:      u.Card.Limit,
		Available:  u.Available,
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type CreateTransactionRequest struct {
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Date         calendar.Date   `json:"date"`
	Description  string          `json:"description"`
	AccountID    string          `json:"accountId"`
	CategoryID   string          `json:"categoryId"`
	CreditCardID *string         `json:"creditCardId"`
}

type UpdateTransactionRequest struct {
	Kind            *string          `json:"kind"`
	Amount          *decimal.Decimal `json:"amount"`
	Date            *calendar.Date   `json:"date"`
	Description     *string          `json:"description"`
	AccountID       *string          `json:"accountId"`
	CategoryID      *string          `json:"categoryId"`
	CreditCardID    *string          `json:"creditCardId"`
	ClearCreditCard bool             `json:"clearCreditCard"`
}

type SetPaidRequest struct {
	Paid      bool           `json:"paid"`
	PaidAt    *calendar.Date `json:"paidAt"`
	AccountID *string        `json:"accountId"`
}

type CreateInstallmentsRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	PurchaseDate      calendar.Date   `json:"purchaseDate"`
	TotalInstallments int             `json:"totalInstallments"`
	Description       string          `json:"description"`
	AccountID         string          `json:"accountId"`
	CategoryID        string          `json:"categoryId"`
	CreditCardID      *string         `json:"creditCardId"`
}

type TransactionDTO struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	Date              calendar.Date   `json:"date"`
	PurchaseDate      *calendar.Date  `json:"purchaseDate,omitempty"`
	Description       string          `json:"description"`
	AccountID         string          `json:"accountId"`
	CategoryID        string          `json:"categoryId"`
	CreditCardID      *string         `json:"creditCardId,omitempty"`
	InstallmentNumber *int            `json:"installmentNumber,omitempty"`
	TotalInstallments *int            `json:"totalInstallments,omitempty"`
	RecurrenceID      *string         `json:"recurrenceId,omitempty"`
	IsRecurringCharge bool            `json:"isRecurringCharge"`
	Paid              bool            `json:"paid"`
	PaidAt            *calendar.Date  `json:"paidAt,omitempty"`
	CreatedAt         string          `json:"createdAt"`
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                string(t.ID),
		Kind:              string(t.Kind),
		Amount:            t.Amount,
		Date:              t.Date,
		PurchaseDate:      t.PurchaseDate,
		Description:       t.Description,
		AccountID:         string(t.AccountID),
		CategoryID:        string(t.CategoryID),
		InstallmentNumber: t.InstallmentNumber,
		TotalInstallments: t.TotalInstallments,
		IsRecurringCharge: t.IsRecurringCharge,
		Paid:              t.Paid,
		PaidAt:            t.PaidAt,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
	if t.CreditCardID != nil {
		id := string(*t.CreditCardID)
		dto.CreditCardID = &id
	}
	if t.RecurrenceID != nil {
		id := string(*t.RecurrenceID)
		dto.RecurrenceID = &id
	}
	return dto
}

func toTransactionDTOs(ts []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(ts))
	for i, t := range ts {
		dtos[i] = toTransactionDTO(t)
	}
	return dtos
}

type SummaryDTO struct {
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

type CreateTransferRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Date          calendar.Date   `json:"date"`
	Description   string          `json:"description"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
}

type TransferDTO struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          calendar.Date   `json:"date"`
	Description   string          `json:"description"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	CreatedAt     string          `json:"createdAt"`
}

func toTransferDTO(t ledger.Transfer) TransferDTO {
	return TransferDTO{
		ID:            string(t.ID),
		Amount:        t.Amount,
		Date:          t.Date,
		Description:   t.Description,
		FromAccountID: string(t.FromAccountID),
		ToAccountID:   string(t.ToAccountID),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// RECURRENCES
// =============================================================================

type CreateRecurringRequest struct {
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Interval      string          `json:"interval"`
	IntervalCount int             `json:"intervalCount"`
	StartDate     calendar.Date   `json:"startDate"`
	EndDate       *calendar.Date  `json:"endDate"`
	AccountID     string          `json:"accountId"`
	CategoryID    string          `json:"categoryId"`
	CreditCardID  *string         `json:"creditCardId"`
}

type RecurrenceDTO struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	TransactionKind   string          `json:"transactionKind"`
	Interval          string          `json:"interval"`
	IntervalCount     int             `json:"intervalCount"`
	StartDate         calendar.Date   `json:"startDate"`
	EndDate           *calendar.Date  `json:"endDate,omitempty"`
	TotalInstallments *int            `json:"totalInstallments,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	AccountID         string          `json:"accountId"`
	CategoryID        string          `json:"categoryId"`
	CreditCardID      *string         `json:"creditCardId,omitempty"`
	Active            bool            `json:"active"`
	NextDueDate       calendar.Date   `json:"nextDueDate"`
	CreatedAt         string          `json:"createdAt"`
}

func toRecurrenceDTO(r ledger.Recurrence) RecurrenceDTO {
	dto := RecurrenceDTO{
		ID:                string(r.ID),
		Kind:              string(r.Kind),
		TransactionKind:   string(r.TransactionKind),
		Interval:          string(r.Interval),
		IntervalCount:     r.IntervalCount,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		TotalInstallments: r.TotalInstallments,
		Amount:            r.Amount,
		Description:       r.Description,
		AccountID:         string(r.AccountID),
		CategoryID:        string(r.CategoryID),
		Active:            r.Active,
		NextDueDate:       r.NextDueDate,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
	}
	if r.CreditCardID != nil {
		id := string(*r.CreditCardID)
		dto.CreditCardID = &id
	}
	return dto
}

// =============================================================================
// BUDGETS
// =============================================================================

type CreateBudgetRequest struct {
	CategoryID string          `json:"categoryId"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
}

type UpdateBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type BudgetDTO struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  string          `json:"createdAt"`
}

func toBudgetDTO(b ledger.Budget) BudgetDTO {
	return BudgetDTO{
		ID:         string(b.ID),
		CategoryID: string(b.CategoryID),
		Month:      int(b.Month),
		Year:       b.Year,
		Amount:     b.Amount,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

type BudgetReportDTO struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
}

func toBudgetReportDTO(r ledger.BudgetReport) BudgetReportDTO {
	return BudgetReportDTO{
		ID:         string(r.Budget.ID),
		CategoryID: string(r.Budget.CategoryID),
		Month:      int(r.Budget.Month),
		Year:       r.Budget.Year,
		Amount:     r.Budget.Amount,
		Spent:      r.Spent,
		Remaining:  r.Remaining,
	}
}

// =============================================================================
// GOALS
// =============================================================================

type CreateGoalRequest struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	Deadline     *calendar.Date  `json:"deadline"`
}

type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   calendar.Date   `json:"date"`
}

type GoalDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      *calendar.Date  `json:"deadline,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

func toGoalDTO(g ledger.Goal) GoalDTO {
	return GoalDTO{
		ID:            string(g.ID),
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Deadline:      g.Deadline,
		Status:        string(g.Status),
		CreatedAt:     g.CreatedAt.Format(time.RFC3339),
	}
}

type ContributionDTO struct {
	ID        string          `json:"id"`
	GoalID    string          `json:"goalId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      calendar.Date   `json:"date"`
	CreatedAt string          `json:"createdAt"`
}

func toContributionDTO(c ledger.GoalContribution) ContributionDTO {
	return ContributionDTO{
		ID:        c.ID,
		GoalID:    string(c.GoalID),
		Amount:    c.Amount,
		Date:      c.Date,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
