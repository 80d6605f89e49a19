/*
Package store provides an in-memory ledger.TxStore for tests and dev.

PURPOSE:
  Mirrors the SQLite store's observable behavior: owner scoping, grouped
  sums, budget uniqueness, and WithTx via snapshot + restore. Not intended
  for production use.

SEE ALSO:
  - ledger/store.go: Interface contracts
  - store/sqlite/sqlite.go: Production implementation
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	accounts      map[ledger.AccountID]ledger.Account
	categories    map[ledger.CategoryID]ledger.Category
	cards         map[ledger.CreditCardID]ledger.CreditCard
	transactions  map[ledger.TransactionID]ledger.Transaction
	transfers     map[ledger.TransferID]ledger.Transfer
	recurrences   map[ledger.RecurrenceID]ledger.Recurrence
	budgets       map[ledger.BudgetID]ledger.Budget
	goals         map[ledger.GoalID]ledger.Goal
	contributions map[string]ledger.GoalContribution
}

func NewMemory() *Memory {
	return &Memory{
		accounts:      make(map[ledger.AccountID]ledger.Account),
		categories:    make(map[ledger.CategoryID]ledger.Category),
		cards:         make(map[ledger.CreditCardID]ledger.CreditCard),
		transactions:  make(map[ledger.TransactionID]ledger.Transaction),
		transfers:     make(map[ledger.TransferID]ledger.Transfer),
		recurrences:   make(map[ledger.RecurrenceID]ledger.Recurrence),
		budgets:       make(map[ledger.BudgetID]ledger.Budget),
		goals:         make(map[ledger.GoalID]ledger.Goal),
		contributions: make(map[string]ledger.GoalContribution),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, owner ledger.UserID, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok || a.OwnerID != owner {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context, owner ledger.UserID) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Account
	for _, a := range m.accounts {
		if a.OwnerID == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, owner ledger.UserID, id ledger.AccountID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.OwnerID != owner {
		return false, nil
	}
	delete(m.accounts, id)
	return true, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (m *Memory) CreateCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) GetCategory(_ context.Context, owner ledger.UserID, id ledger.CategoryID) (*ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok || c.OwnerID != owner {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCategories(_ context.Context, owner ledger.UserID) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Category
	for _, c := range m.categories {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) DeleteCategory(_ context.Context, owner ledger.UserID, id ledger.CategoryID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.OwnerID != owner {
		return false, nil
	}
	delete(m.categories, id)
	return true, nil
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (m *Memory) CreateCreditCard(_ context.Context, c ledger.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) GetCreditCard(_ context.Context, owner ledger.UserID, id ledger.CreditCardID) (*ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok || c.OwnerID != owner {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCreditCards(_ context.Context, owner ledger.UserID) ([]ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.CreditCard
	for _, c := range m.cards {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateCreditCard(_ context.Context, c ledger.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) DeleteCreditCard(_ context.Context, owner ledger.UserID, id ledger.CreditCardID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok || c.OwnerID != owner {
		return false, nil
	}
	delete(m.cards, id)
	return true, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) CreateTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *Memory) CreateTransactions(ctx context.Context, ts []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range ts {
		m.transactions[t.ID] = t
	}
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, owner ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	if !ok || t.OwnerID != owner {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) GetTransactionAny(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) ListTransactions(_ context.Context, owner ledger.UserID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transaction
	for _, t := range m.transactions {
		if t.OwnerID != owner || !matches(t, f) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(t ledger.Transaction, f ledger.TransactionFilter) bool {
	if f.AccountID != nil && t.AccountID != *f.AccountID {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.CreditCardID != nil && (t.CreditCardID == nil || *t.CreditCardID != *f.CreditCardID) {
		return false
	}
	if f.RecurrenceID != nil && (t.RecurrenceID == nil || *t.RecurrenceID != *f.RecurrenceID) {
		return false
	}
	if f.Kind != nil && t.Kind != *f.Kind {
		return false
	}
	if f.Paid != nil && t.Paid != *f.Paid {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}

func (m *Memory) UpdateTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, owner ledger.UserID, id ledger.TransactionID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.OwnerID != owner {
		return false, nil
	}
	delete(m.transactions, id)
	return true, nil
}

func (m *Memory) SumTransactionsByAccount(_ context.Context, owner ledger.UserID, through calendar.Date) (map[ledger.AccountID]ledger.AccountFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[ledger.AccountID]ledger.AccountFlow)
	for _, t := range m.transactions {
		if t.OwnerID != owner || t.Date.After(through) {
			continue
		}
		flow := out[t.AccountID]
		switch t.Kind {
		case ledger.KindIncome:
			flow.Income = flow.Income.Add(t.Amount)
		case ledger.KindExpense:
			flow.Expense = flow.Expense.Add(t.Amount)
		}
		out[t.AccountID] = flow
	}
	return out, nil
}

func (m *Memory) SumTransactionsByKind(_ context.Context, owner ledger.UserID, from, to calendar.Date) (map[ledger.TransactionKind]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[ledger.TransactionKind]decimal.Decimal)
	for _, t := range m.transactions {
		if t.OwnerID != owner || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out[t.Kind] = out[t.Kind].Add(t.Amount)
	}
	return out, nil
}

func (m *Memory) SumUnpaidCardCharges(_ context.Context, owner ledger.UserID) (map[ledger.CreditCardID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[ledger.CreditCardID]decimal.Decimal)
	for _, t := range m.transactions {
		if t.OwnerID != owner || t.CreditCardID == nil || t.Paid {
			continue
		}
		if t.Kind != ledger.KindExpense || t.IsRecurringCharge {
			continue
		}
		out[*t.CreditCardID] = out[*t.CreditCardID].Add(t.Amount)
	}
	return out, nil
}

func (m *Memory) SumUnpaidRecurringCharges(_ context.Context, owner ledger.UserID, card ledger.CreditCardID, through calendar.Date) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range m.transactions {
		if t.OwnerID != owner || t.CreditCardID == nil || *t.CreditCardID != card {
			continue
		}
		if t.Paid || !t.IsRecurringCharge || t.Date.After(through) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (m *Memory) HasRecurrenceTransaction(_ context.Context, owner ledger.UserID, rec ledger.RecurrenceID, day calendar.Date) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transactions {
		if t.OwnerID != owner || t.RecurrenceID == nil || *t.RecurrenceID != rec {
			continue
		}
		occurrence := t.Date
		if t.PurchaseDate != nil {
			occurrence = *t.PurchaseDate
		}
		if occurrence.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (m *Memory) CreateTransfer(_ context.Context, t ledger.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	return nil
}

func (m *Memory) GetTransfer(_ context.Context, owner ledger.UserID, id ledger.TransferID) (*ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[id]
	if !ok || t.OwnerID != owner {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) ListTransfers(_ context.Context, owner ledger.UserID) ([]ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transfer
	for _, t := range m.transfers {
		if t.OwnerID == owner {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) DeleteTransfer(_ context.Context, owner ledger.UserID, id ledger.TransferID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.OwnerID != owner {
		return false, nil
	}
	delete(m.transfers, id)
	return true, nil
}

func (m *Memory) SumTransfersByAccount(_ context.Context, owner ledger.UserID, through calendar.Date) (map[ledger.AccountID]ledger.TransferFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[ledger.AccountID]ledger.TransferFlow)
	for _, t := range m.transfers {
		if t.OwnerID != owner || t.Date.After(through) {
			continue
		}
		from := out[t.FromAccountID]
		from.Out = from.Out.Add(t.Amount)
		out[t.FromAccountID] = from

		to := out[t.ToAccountID]
		to.In = to.In.Add(t.Amount)
		out[t.ToAccountID] = to
	}
	return out, nil
}

// =============================================================================
// RECURRENCES
// =============================================================================

func (m *Memory) CreateRecurrence(_ context.Context, r ledger.Recurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recurrences[r.ID] = r
	return nil
}

func (m *Memory) GetRecurrence(_ context.Context, owner ledger.UserID, id ledger.RecurrenceID) (*ledger.Recurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recurrences[id]
	if !ok || r.OwnerID != owner {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) ListRecurrences(_ context.Context, owner ledger.UserID) ([]ledger.Recurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Recurrence
	for _, r := range m.recurrences {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateRecurrence(_ context.Context, r ledger.Recurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recurrences[r.ID] = r
	return nil
}

func (m *Memory) DeleteRecurrence(_ context.Context, owner ledger.UserID, id ledger.RecurrenceID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recurrences[id]
	if !ok || r.OwnerID != owner {
		return false, nil
	}
	delete(m.recurrences, id)
	return true, nil
}

func (m *Memory) ListDueRecurrences(_ context.Context, owner ledger.UserID, dueBy calendar.Date) ([]ledger.Recurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Recurrence
	for _, r := range m.recurrences {
		if r.OwnerID != owner || !r.Active || r.Kind != ledger.RecurrencePeriodic {
			continue
		}
		if r.NextDueDate.BeforeOrEqual(dueBy) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListRecurrenceOwners(_ context.Context) ([]ledger.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[ledger.UserID]bool)
	var out []ledger.UserID
	for _, r := range m.recurrences {
		if r.Active && r.Kind == ledger.RecurrencePeriodic && !seen[r.OwnerID] {
			seen[r.OwnerID] = true
			out = append(out, r.OwnerID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

func (m *Memory) CreateBudget(_ context.Context, b ledger.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.budgets {
		if existing.OwnerID == b.OwnerID && existing.CategoryID == b.CategoryID &&
			existing.Month == b.Month && existing.Year == b.Year {
			return &ledger.ConflictError{Entity: "budget", Message: "budget already exists for this category and month"}
		}
	}
	m.budgets[b.ID] = b
	return nil
}

func (m *Memory) GetBudget(_ context.Context, owner ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[id]
	if !ok || b.OwnerID != owner {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListBudgets(_ context.Context, owner ledger.UserID, month time.Month, year int) ([]ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Budget
	for _, b := range m.budgets {
		if b.OwnerID == owner && b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateBudget(_ context.Context, b ledger.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ID] = b
	return nil
}

func (m *Memory) DeleteBudget(_ context.Context, owner ledger.UserID, id ledger.BudgetID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok || b.OwnerID != owner {
		return false, nil
	}
	delete(m.budgets, id)
	return true, nil
}

// =============================================================================
// GOALS
// =============================================================================

func (m *Memory) CreateGoal(_ context.Context, g ledger.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
	return nil
}

func (m *Memory) GetGoal(_ context.Context, owner ledger.UserID, id ledger.GoalID) (*ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok || g.OwnerID != owner {
		return nil, nil
	}
	return &g, nil
}

func (m *Memory) ListGoals(_ context.Context, owner ledger.UserID) ([]ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Goal
	for _, g := range m.goals {
		if g.OwnerID == owner {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateGoal(_ context.Context, g ledger.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
	return nil
}

func (m *Memory) DeleteGoal(_ context.Context, owner ledger.UserID, id ledger.GoalID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.OwnerID != owner {
		return false, nil
	}
	delete(m.goals, id)
	return true, nil
}

func (m *Memory) CreateGoalContribution(_ context.Context, c ledger.GoalContribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributions[c.ID] = c
	return nil
}

func (m *Memory) ListGoalContributions(_ context.Context, goal ledger.GoalID) ([]ledger.GoalContribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.GoalContribution
	for _, c := range m.contributions {
		if c.GoalID == goal {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// TRANSACTIONAL VIEW - Snapshot + restore
// =============================================================================

// WithTx simulates a database transaction: state is snapshotted up front
// and restored when fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restoreLocked(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts      map[ledger.AccountID]ledger.Account
	categories    map[ledger.CategoryID]ledger.Category
	cards         map[ledger.CreditCardID]ledger.CreditCard
	transactions  map[ledger.TransactionID]ledger.Transaction
	transfers     map[ledger.TransferID]ledger.Transfer
	recurrences   map[ledger.RecurrenceID]ledger.Recurrence
	budgets       map[ledger.BudgetID]ledger.Budget
	goals         map[ledger.GoalID]ledger.Goal
	contributions map[string]ledger.GoalContribution
}

func (m *Memory) snapshotLocked() memorySnapshot {
	return memorySnapshot{
		accounts:      copyMap(m.accounts),
		categories:    copyMap(m.categories),
		cards:         copyMap(m.cards),
		transactions:  copyMap(m.transactions),
		transfers:     copyMap(m.transfers),
		recurrences:   copyMap(m.recurrences),
		budgets:       copyMap(m.budgets),
		goals:         copyMap(m.goals),
		contributions: copyMap(m.contributions),
	}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.accounts = s.accounts
	m.categories = s.categories
	m.cards = s.cards
	m.transactions = s.transactions
	m.transfers = s.transfers
	m.recurrences = s.recurrences
	m.budgets = s.budgets
	m.goals = s.goals
	m.contributions = s.contributions
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
