/*
budgets.go - Monthly spending budgets

PURPOSE:
  A budget caps one expense category for one month. The category must be
  expense-kind, and only one budget may exist per (owner, category, month,
  year) - the store surfaces duplicates as Conflict.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// BUDGET SERVICE
// =============================================================================

type BudgetService struct {
	store TxStore
	clock Clock
}

func NewBudgetService(store TxStore, clock Clock) *BudgetService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BudgetService{store: store, clock: clock}
}

type CreateBudgetInput struct {
	CategoryID CategoryID
	Month      time.Month
	Year       int
	Amount     decimal.Decimal
}

func (s *BudgetService) Create(ctx context.Context, owner UserID, in CreateBudgetInput) (*Budget, error) {
	if in.Month < time.January || in.Month > time.December {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if in.Year < 1 {
		return nil, invalid("year", "is required")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}

	category, err := s.store.GetCategory(ctx, owner, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, notFound("category", string(in.CategoryID))
	}
	if category.Kind != CategoryExpense {
		return nil, invalid("categoryId", "budgets require an expense category")
	}

	b := Budget{
		ID:         BudgetID(uuid.NewString()),
		OwnerID:    owner,
		CategoryID: in.CategoryID,
		Month:      in.Month,
		Year:       in.Year,
		Amount:     in.Amount.Round(2),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BudgetReport is a budget with the month's actual spend beside it.
type BudgetReport struct {
	Budget    Budget
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// Report lists the month's budgets with actual spending per category.
func (s *BudgetService) Report(ctx context.Context, owner UserID, month time.Month, year int) ([]BudgetReport, error) {
	budgets, err := s.store.ListBudgets(ctx, owner, month, year)
	if err != nil {
		return nil, err
	}

	from := calendar.StartOfMonth(year, month)
	to := calendar.EndOfMonth(year, month)
	kind := KindExpense

	reports := make([]BudgetReport, 0, len(budgets))
	for _, b := range budgets {
		categoryID := b.CategoryID
		rows, err := s.store.ListTransactions(ctx, owner, TransactionFilter{
			CategoryID: &categoryID,
			Kind:       &kind,
			From:       &from,
			To:         &to,
		})
		if err != nil {
			return nil, err
		}

		spent := decimal.Zero
		for _, tx := range rows {
			spent = spent.Add(tx.Amount)
		}
		reports = append(reports, BudgetReport{
			Budget:    b,
			Spent:     spent,
			Remaining: b.Amount.Sub(spent),
		})
	}
	return reports, nil
}

func (s *BudgetService) Update(ctx context.Context, owner UserID, id BudgetID, amount decimal.Decimal) (*Budget, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}
	b, err := s.store.GetBudget(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, notFound("budget", string(id))
	}
	b.Amount = amount.Round(2)
	if err := s.store.UpdateBudget(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, owner UserID, id BudgetID) error {
	deleted, err := s.store.DeleteBudget(ctx, owner, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("budget", string(id))
	}
	return nil
}
