/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Implements every persistence interface the engine needs (accounts,
  categories, credit cards, transactions, transfers, recurrences, budgets,
  goals) on a single SQLite file. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

STORAGE CONVENTIONS:
  - Calendar dates are TEXT "YYYY-MM-DD". Lexicographic order equals
    calendar order, so range predicates work directly in SQL.
  - Amounts are TEXT decimal strings (shopspring/decimal round-trips
    exactly). Aggregations fetch the grouped rows in one query and sum in
    Go, because SQL SUM over TEXT would degrade to binary floats.
  - Timestamps are TEXT RFC3339.

OWNERSHIP:
  Every read and delete carries "owner_id = ?". A row owned by another
  user scans as absent - (nil, nil) from Get, false from Delete. The one
  exception is GetTransactionAny, which the deletion path uses to tell a
  missing row from a foreign one.

KEY INDEXES:
  - idx_transactions_owner_date: Balance replay and range listings
  - idx_transactions_card_unpaid: Used-amount aggregation
  - idx_transactions_recurrence: Extension idempotence checks
  - idx_budgets_unique: One budget per (owner, category, month, year)

CONCURRENCY:
  The pool is capped at one connection. SQLite allows a single writer;
  serializing through the pool avoids SQLITE_BUSY without sprinkling
  mutexes over every method.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
)

// Store implements ledger.TxStore on SQLite.
type Store struct {
	runner
	db *sql.DB
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, runner: runner{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		initial_balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_categories_owner ON categories(owner_id);

	CREATE TABLE IF NOT EXISTS credit_cards (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		name TEXT NOT NULL,
		closing_day INTEGER NOT NULL,
		due_day INTEGER NOT NULL,
		credit_limit TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_credit_cards_owner ON credit_cards(owner_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		purchase_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		account_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		credit_card_id TEXT,
		installment_number INTEGER,
		total_installments INTEGER,
		recurrence_id TEXT,
		is_recurring_charge BOOLEAN NOT NULL DEFAULT FALSE,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance replay and date-range listings (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_owner_date
		ON transactions(owner_id, date);

	-- Used-amount aggregation over unpaid card charges
	CREATE INDEX IF NOT EXISTS idx_transactions_card_unpaid
		ON transactions(owner_id, credit_card_id, paid)
		WHERE credit_card_id IS NOT NULL;

	-- Extension idempotence checks
	CREATE INDEX IF NOT EXISTS idx_transactions_recurrence
		ON transactions(recurrence_id) WHERE recurrence_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_owner_date
		ON transfers(owner_id, date);

	CREATE TABLE IF NOT EXISTS recurrences (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		transaction_kind TEXT NOT NULL,
		interval_unit TEXT NOT NULL,
		interval_count INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		total_installments INTEGER,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		account_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		credit_card_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		next_due_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recurrences_owner ON recurrences(owner_id);
	CREATE INDEX IF NOT EXISTS idx_recurrences_due
		ON recurrences(owner_id, active, next_due_date);

	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_budgets_unique
		ON budgets(owner_id, category_id, month, year);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT NOT NULL,
		deadline TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id);

	CREATE TABLE IF NOT EXISTS goal_contributions (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goal_contributions_goal
		ON goal_contributions(goal_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL UNIT
// =============================================================================

// WithTx executes fn within one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&runner{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// querier is the intersection of *sql.DB and *sql.Tx the runner needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner implements ledger.Store against either the pool or an open
// transaction. All the SQL lives here.
type runner struct {
	q querier
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (r *runner) CreateAccount(ctx context.Context, a ledger.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, type, initial_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Type, a.InitialBalance.String(), rfc3339(a.CreatedAt),
	)
	return err
}

func (r *runner) GetAccount(ctx context.Context, owner ledger.UserID, id ledger.AccountID) (*ledger.Account, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, type, initial_balance, created_at
		FROM accounts WHERE id = ? AND owner_id = ?`, id, owner)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *runner) ListAccounts(ctx context.Context, owner ledger.UserID) ([]ledger.Account, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, name, type, initial_balance, created_at
		FROM accounts WHERE owner_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *runner) UpdateAccount(ctx context.Context, a ledger.Account) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, initial_balance = ?
		WHERE id = ? AND owner_id = ?`,
		a.Name, a.Type, a.InitialBalance.String(), a.ID, a.OwnerID,
	)
	return err
}

func (r *runner) DeleteAccount(ctx context.Context, owner ledger.UserID, id ledger.AccountID) (bool, error) {
	return r.deleteOwned(ctx, "accounts", string(id), owner)
}

func scanAccount(row scannable) (*ledger.Account, error) {
	var (
		a              ledger.Account
		initialBalance string
		createdAt      string
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &initialBalance, &createdAt); err != nil {
		return nil, err
	}
	a.InitialBalance = dec(initialBalance)
	a.CreatedAt = parseRFC3339(createdAt)
	return &a, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (r *runner) CreateCategory(ctx context.Context, c ledger.Category) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, owner_id, name, kind, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Kind, c.Color, c.Icon, rfc3339(c.CreatedAt),
	)
	return err
}

func (r *runner) GetCategory(ctx context.Context, owner ledger.UserID, id ledger.CategoryID) (*ledger.Category, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, kind, color, icon, created_at
		FROM categories WHERE id = ? AND owner_id = ?`, id, owner)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *runner) ListCategories(ctx context.Context, owner ledger.UserID) ([]ledger.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, name, kind, color, icon, created_at
		FROM categories WHERE owner_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *runner) UpdateCategory(ctx context.Context, c ledger.Category) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, kind = ?, color = ?, icon = ?
		WHERE id = ? AND owner_id = ?`,
		c.Name, c.Kind, c.Color, c.Icon, c.ID, c.OwnerID,
	)
	return err
}

func (r *runner) DeleteCategory(ctx context.Context, owner ledger.UserID, id ledger.CategoryID) (bool, error) {
	return r.deleteOwned(ctx, "categories", string(id), owner)
}

func scanCategory(row scannable) (*ledger.Category, error) {
	var (
		c         ledger.Category
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind, &c.Color, &c.Icon, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = parseRFC3339(createdAt)
	return &c, nil
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (r *runner) CreateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO credit_cards (id, owner_id, account_id, name, closing_day, due_day, credit_limit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.AccountID, c.Name, c.ClosingDay, c.DueDay,
		nullDecimal(c.Limit), rfc3339(c.CreatedAt),
	)
	return err
}

func (r *runner) GetCreditCard(ctx context.Context, owner ledger.UserID, id ledger.CreditCardID) (*ledger.CreditCard, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, account_id, name, closing_day, due_day, credit_limit, created_at
		FROM credit_cards WHERE id = ? AND owner_id = ?`, id, owner)
	c, err := scanCreditCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *runner) ListCreditCards(ctx context.Context, owner ledger.UserID) ([]ledger.CreditCard, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, account_id, name, closing_day, due_day, credit_limit, created_at
		FROM credit_cards WHERE owner_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []ledger.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (r *runner) UpdateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE credit_cards SET account_id = ?, name = ?, closing_day = ?, due_day = ?, credit_limit = ?
		WHERE id = ? AND owner_id = ?`,
		c.AccountID, c.Name, c.ClosingDay, c.DueDay, nullDecimal(c.Limit), c.ID, c.OwnerID,
	)
	return err
}

func (r *runner) DeleteCreditCard(ctx context.Context, owner ledger.UserID, id ledger.CreditCardID) (bool, error) {
	return r.deleteOwned(ctx, "credit_cards", string(id), owner)
}

func scanCreditCard(row scannable) (*ledger.CreditCard, error) {
	var (
		c         ledger.CreditCard
		limit     sql.NullString
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.AccountID, &c.Name, &c.ClosingDay, &c.DueDay, &limit, &createdAt); err != nil {
		return nil, err
	}
	if limit.Valid {
		d := dec(limit.String)
		c.Limit = &d
	}
	c.CreatedAt = parseRFC3339(createdAt)
	return &c, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, owner_id, kind, amount, date, purchase_date, description,
	account_id, category_id, credit_card_id, installment_number, total_installments,
	recurrence_id, is_recurring_charge, paid, paid_at, created_at`

func (r *runner) CreateTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Kind, t.Amount.String(), t.Date.String(), nullDate(t.PurchaseDate),
		t.Description, t.AccountID, t.CategoryID, nullCardID(t.CreditCardID),
		nullInt(t.InstallmentNumber), nullInt(t.TotalInstallments),
		nullRecurrenceID(t.RecurrenceID), t.IsRecurringCharge, t.Paid,
		nullDate(t.PaidAt), rfc3339(t.CreatedAt),
	)
	return err
}

func (r *runner) CreateTransactions(ctx context.Context, ts []ledger.Transaction) error {
	for _, t := range ts {
		if err := r.CreateTransaction(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) GetTransaction(ctx context.Context, owner ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE id = ? AND owner_id = ?`, id, owner)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *runner) GetTransactionAny(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *runner) ListTransactions(ctx context.Context, owner ledger.UserID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	where := []string{"owner_id = ?"}
	args := []any{owner}

	if f.AccountID != nil {
		where = append(where, "account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.CreditCardID != nil {
		where = append(where, "credit_card_id = ?")
		args = append(args, *f.CreditCardID)
	}
	if f.RecurrenceID != nil {
		where = append(where, "recurrence_id = ?")
		args = append(args, *f.RecurrenceID)
	}
	if f.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, *f.Kind)
	}
	if f.Paid != nil {
		where = append(where, "paid = ?")
		args = append(args, *f.Paid)
	}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date ASC, id ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (r *runner) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE transactions SET
			kind = ?, amount = ?, date = ?, purchase_date = ?, description = ?,
			account_id = ?, category_id = ?, credit_card_id = ?,
			paid = ?, paid_at = ?
		WHERE id = ? AND owner_id = ?`,
		t.Kind, t.Amount.String(), t.Date.String(), nullDate(t.PurchaseDate), t.Description,
		t.AccountID, t.CategoryID, nullCardID(t.CreditCardID),
		t.Paid, nullDate(t.PaidAt), t.ID, t.OwnerID,
	)
	return err
}

func (r *runner) DeleteTransaction(ctx context.Context, owner ledger.UserID, id ledger.TransactionID) (bool, error) {
	return r.deleteOwned(ctx, "transactions", string(id), owner)
}

func (r *runner) SumTransactionsByAccount(ctx context.Context, owner ledger.UserID, through calendar.Date) (map[ledger.AccountID]ledger.AccountFlow, error) {
	// One query for every account; decimal summation stays in Go so TEXT
	// amounts never pass through float arithmetic.
	rows, err := r.q.QueryContext(ctx, `
		SELECT account_id, kind, amount FROM transactions
		WHERE owner_id = ? AND date <= ?`, owner, through.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.AccountID]ledger.AccountFlow)
	for rows.Next() {
		var (
			accountID ledger.AccountID
			kind      ledger.TransactionKind
			amount    string
		)
		if err := rows.Scan(&accountID, &kind, &amount); err != nil {
			return nil, err
		}
		flow := out[accountID]
		switch kind {
		case ledger.KindIncome:
			flow.Income = flow.Income.Add(dec(amount))
		case ledger.KindExpense:
			flow.Expense = flow.Expense.Add(dec(amount))
		}
		out[accountID] = flow
	}
	return out, rows.Err()
}

func (r *runner) SumTransactionsByKind(ctx context.Context, owner ledger.UserID, from, to calendar.Date) (map[ledger.TransactionKind]decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT kind, amount FROM transactions
		WHERE owner_id = ? AND date >= ? AND date <= ?`,
		owner, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.TransactionKind]decimal.Decimal)
	for rows.Next() {
		var (
			kind   ledger.TransactionKind
			amount string
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, err
		}
		out[kind] = out[kind].Add(dec(amount))
	}
	return out, rows.Err()
}

func (r *runner) SumUnpaidCardCharges(ctx context.Context, owner ledger.UserID) (map[ledger.CreditCardID]decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT credit_card_id, amount FROM transactions
		WHERE owner_id = ? AND credit_card_id IS NOT NULL
		  AND paid = FALSE AND kind = ? AND is_recurring_charge = FALSE`,
		owner, ledger.KindExpense)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.CreditCardID]decimal.Decimal)
	for rows.Next() {
		var (
			cardID ledger.CreditCardID
			amount string
		)
		if err := rows.Scan(&cardID, &amount); err != nil {
			return nil, err
		}
		out[cardID] = out[cardID].Add(dec(amount))
	}
	return out, rows.Err()
}

func (r *runner) SumUnpaidRecurringCharges(ctx context.Context, owner ledger.UserID, card ledger.CreditCardID, through calendar.Date) (decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT amount FROM transactions
		WHERE owner_id = ? AND credit_card_id = ?
		  AND paid = FALSE AND is_recurring_charge = TRUE AND date <= ?`,
		owner, card, through.String())
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(dec(amount))
	}
	return sum, rows.Err()
}

func (r *runner) HasRecurrenceTransaction(ctx context.Context, owner ledger.UserID, rec ledger.RecurrenceID, day calendar.Date) (bool, error) {
	// The occurrence day of a card charge lives in purchase_date; for
	// everything else it is the ledger date itself.
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE owner_id = ? AND recurrence_id = ?
		  AND COALESCE(purchase_date, date) = ?`,
		owner, rec, day.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTransaction(row scannable) (*ledger.Transaction, error) {
	var (
		t                 ledger.Transaction
		amount            string
		date              string
		purchaseDate      sql.NullString
		cardID            sql.NullString
		installmentNumber sql.NullInt64
		totalInstallments sql.NullInt64
		recurrenceID      sql.NullString
		paidAt            sql.NullString
		createdAt         string
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Kind, &amount, &date, &purchaseDate, &t.Description,
		&t.AccountID, &t.CategoryID, &cardID, &installmentNumber, &totalInstallments,
		&recurrenceID, &t.IsRecurringCharge, &t.Paid, &paidAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount = dec(amount)
	t.Date = parseDay(date)
	t.PurchaseDate = parseNullDay(purchaseDate)
	t.PaidAt = parseNullDay(paidAt)
	t.CreatedAt = parseRFC3339(createdAt)
	if cardID.Valid {
		id := ledger.CreditCardID(cardID.String)
		t.CreditCardID = &id
	}
	if installmentNumber.Valid {
		n := int(installmentNumber.Int64)
		t.InstallmentNumber = &n
	}
	if totalInstallments.Valid {
		n := int(totalInstallments.Int64)
		t.TotalInstallments = &n
	}
	if recurrenceID.Valid {
		id := ledger.RecurrenceID(recurrenceID.String)
		t.RecurrenceID = &id
	}
	return &t, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (r *runner) CreateTransfer(ctx context.Context, t ledger.Transfer) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transfers (id, owner_id, amount, date, description, from_account_id, to_account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount.String(), t.Date.String(), t.Description,
		t.FromAccountID, t.ToAccountID, rfc3339(t.CreatedAt),
	)
	return err
}

func (r *runner) GetTransfer(ctx context.Context, owner ledger.UserID, id ledger.TransferID) (*ledger.Transfer, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, amount, date, description, from_account_id, to_account_id, created_at
		FROM transfers WHERE id = ? AND owner_id = ?`, id, owner)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *runner) ListTransfers(ctx context.Context, owner ledger.UserID) ([]ledger.Transfer, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, amount, date, description, from_account_id, to_account_id, created_at
		FROM transfers WHERE owner_id = ? ORDER BY date ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []ledger.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

func (r *runner) DeleteTransfer(ctx context.Context, owner ledger.UserID, id ledger.TransferID) (bool, error) {
	return r.deleteOwned(ctx, "transfers", string(id), owner)
}

func (r *runner) SumTransfersByAccount(ctx context.Context, owner ledger.UserID, through calendar.Date) (map[ledger.AccountID]ledger.TransferFlow, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT from_account_id, to_account_id, amount FROM transfers
		WHERE owner_id = ? AND date <= ?`, owner, through.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.AccountID]ledger.TransferFlow)
	for rows.Next() {
		var (
			fromID ledger.AccountID
			toID   ledger.AccountID
			amount string
		)
		if err := rows.Scan(&fromID, &toID, &amount); err != nil {
			return nil, err
		}
		d := dec(amount)

		from := out[fromID]
		from.Out = from.Out.Add(d)
		out[fromID] = from

		to := out[toID]
		to.In = to.In.Add(d)
		out[toID] = to
	}
	return out, rows.Err()
}

func scanTransfer(row scannable) (*ledger.Transfer, error) {
	var (
		t         ledger.Transfer
		amount    string
		date      string
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &amount, &date, &t.Description,
		&t.FromAccountID, &t.ToAccountID, &createdAt); err != nil {
		return nil, err
	}
	t.Amount = dec(amount)
	t.Date = parseDay(date)
	t.CreatedAt = parseRFC3339(createdAt)
	return &t, nil
}

// =============================================================================
// RECURRENCES
// =============================================================================

const recurrenceColumns = `id, owner_id, kind, transaction_kind, interval_unit, interval_count,
	start_date, end_date, total_installments, amount, description,
	account_id, category_id, credit_card_id, active, next_due_date, created_at`

func (r *runner) CreateRecurrence(ctx context.Context, rec ledger.Recurrence) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO recurrences (`+recurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Kind, rec.TransactionKind, rec.Interval, rec.IntervalCount,
		rec.StartDate.String(), nullDate(rec.EndDate), nullInt(rec.TotalInstallments),
		rec.Amount.String(), rec.Description, rec.AccountID, rec.CategoryID,
		nullCardID(rec.CreditCardID), rec.Active, rec.NextDueDate.String(), rfc3339(rec.CreatedAt),
	)
	return err
}

func (r *runner) GetRecurrence(ctx context.Context, owner ledger.UserID, id ledger.RecurrenceID) (*ledger.Recurrence, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+recurrenceColumns+` FROM recurrences
		WHERE id = ? AND owner_id = ?`, id, owner)
	rec, err := scanRecurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *runner) ListRecurrences(ctx context.Context, owner ledger.UserID) ([]ledger.Recurrence, error) {
	return r.queryRecurrences(ctx, `
		SELECT `+recurrenceColumns+` FROM recurrences
		WHERE owner_id = ? ORDER BY id`, owner)
}

func (r *runner) UpdateRecurrence(ctx context.Context, rec ledger.Recurrence) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE recurrences SET
			interval_unit = ?, interval_count = ?, start_date = ?, end_date = ?,
			amount = ?, description = ?, account_id = ?, category_id = ?,
			credit_card_id = ?, active = ?, next_due_date = ?
		WHERE id = ? AND owner_id = ?`,
		rec.Interval, rec.IntervalCount, rec.StartDate.String(), nullDate(rec.EndDate),
		rec.Amount.String(), rec.Description, rec.AccountID, rec.CategoryID,
		nullCardID(rec.CreditCardID), rec.Active, rec.NextDueDate.String(),
		rec.ID, rec.OwnerID,
	)
	return err
}

func (r *runner) DeleteRecurrence(ctx context.Context, owner ledger.UserID, id ledger.RecurrenceID) (bool, error) {
	return r.deleteOwned(ctx, "recurrences", string(id), owner)
}

func (r *runner) ListDueRecurrences(ctx context.Context, owner ledger.UserID, dueBy calendar.Date) ([]ledger.Recurrence, error) {
	return r.queryRecurrences(ctx, `
		SELECT `+recurrenceColumns+` FROM recurrences
		WHERE owner_id = ? AND active = TRUE AND kind = ? AND next_due_date <= ?
		ORDER BY id`, owner, ledger.RecurrencePeriodic, dueBy.String())
}

func (r *runner) ListRecurrenceOwners(ctx context.Context) ([]ledger.UserID, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM recurrences
		WHERE active = TRUE AND kind = ? ORDER BY owner_id`, ledger.RecurrencePeriodic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []ledger.UserID
	for rows.Next() {
		var owner ledger.UserID
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *runner) queryRecurrences(ctx context.Context, query string, args ...any) ([]ledger.Recurrence, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recurrences []ledger.Recurrence
	for rows.Next() {
		rec, err := scanRecurrence(rows)
		if err != nil {
			return nil, err
		}
		recurrences = append(recurrences, *rec)
	}
	return recurrences, rows.Err()
}

func scanRecurrence(row scannable) (*ledger.Recurrence, error) {
	var (
		rec               ledger.Recurrence
		startDate         string
		endDate           sql.NullString
		totalInstallments sql.NullInt64
		amount            string
		cardID            sql.NullString
		nextDueDate       string
		createdAt         string
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Kind, &rec.TransactionKind, &rec.Interval, &rec.IntervalCount,
		&startDate, &endDate, &totalInstallments, &amount, &rec.Description,
		&rec.AccountID, &rec.CategoryID, &cardID, &rec.Active, &nextDueDate, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.StartDate = parseDay(startDate)
	rec.EndDate = parseNullDay(endDate)
	rec.Amount = dec(amount)
	rec.NextDueDate = parseDay(nextDueDate)
	rec.CreatedAt = parseRFC3339(createdAt)
	if totalInstallments.Valid {
		n := int(totalInstallments.Int64)
		rec.TotalInstallments = &n
	}
	if cardID.Valid {
		id := ledger.CreditCardID(cardID.String)
		rec.CreditCardID = &id
	}
	return &rec, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

func (r *runner) CreateBudget(ctx context.Context, b ledger.Budget) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category_id, month, year, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.CategoryID, int(b.Month), b.Year, b.Amount.String(), rfc3339(b.CreatedAt),
	)
	if err != nil && isUniqueConstraintError(err) {
		return &ledger.ConflictError{Entity: "budget", Message: "budget already exists for this category and month"}
	}
	return err
}

func (r *runner) GetBudget(ctx context.Context, owner ledger.UserID, id ledger.BudgetID) (*ledger.Budget, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, category_id, month, year, amount, created_at
		FROM budgets WHERE id = ? AND owner_id = ?`, id, owner)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *runner) ListBudgets(ctx context.Context, owner ledger.UserID, month time.Month, year int) ([]ledger.Budget, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, category_id, month, year, amount, created_at
		FROM budgets WHERE owner_id = ? AND month = ? AND year = ?
		ORDER BY id`, owner, int(month), year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []ledger.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (r *runner) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE budgets SET amount = ? WHERE id = ? AND owner_id = ?`,
		b.Amount.String(), b.ID, b.OwnerID,
	)
	return err
}

func (r *runner) DeleteBudget(ctx context.Context, owner ledger.UserID, id ledger.BudgetID) (bool, error) {
	return r.deleteOwned(ctx, "budgets", string(id), owner)
}

func scanBudget(row scannable) (*ledger.Budget, error) {
	var (
		b         ledger.Budget
		month     int
		amount    string
		createdAt string
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &month, &b.Year, &amount, &createdAt); err != nil {
		return nil, err
	}
	b.Month = time.Month(month)
	b.Amount = dec(amount)
	b.CreatedAt = parseRFC3339(createdAt)
	return &b, nil
}

// =============================================================================
// GOALS
// =============================================================================

func (r *runner) CreateGoal(ctx context.Context, g ledger.Goal) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO goals (id, owner_id, name, target_amount, current_amount, deadline, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
		nullDate(g.Deadline), g.Status, rfc3339(g.CreatedAt),
	)
	return err
}

func (r *runner) GetGoal(ctx context.Context, owner ledger.UserID, id ledger.GoalID) (*ledger.Goal, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, target_amount, current_amount, deadline, status, created_at
		FROM goals WHERE id = ? AND owner_id = ?`, id, owner)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *runner) ListGoals(ctx context.Context, owner ledger.UserID) ([]ledger.Goal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, name, target_amount, current_amount, deadline, status, created_at
		FROM goals WHERE owner_id = ? ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []ledger.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (r *runner) UpdateGoal(ctx context.Context, g ledger.Goal) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, deadline = ?, status = ?
		WHERE id = ? AND owner_id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
		nullDate(g.Deadline), g.Status, g.ID, g.OwnerID,
	)
	return err
}

func (r *runner) DeleteGoal(ctx context.Context, owner ledger.UserID, id ledger.GoalID) (bool, error) {
	return r.deleteOwned(ctx, "goals", string(id), owner)
}

func (r *runner) CreateGoalContribution(ctx context.Context, c ledger.GoalContribution) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO goal_contributions (id, goal_id, amount, date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.Amount.String(), c.Date.String(), rfc3339(c.CreatedAt),
	)
	return err
}

func (r *runner) ListGoalContributions(ctx context.Context, goal ledger.GoalID) ([]ledger.GoalContribution, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, goal_id, amount, date, created_at
		FROM goal_contributions WHERE goal_id = ? ORDER BY date ASC, id ASC`, goal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []ledger.GoalContribution
	for rows.Next() {
		var (
			c         ledger.GoalContribution
			amount    string
			date      string
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.GoalID, &amount, &date, &createdAt); err != nil {
			return nil, err
		}
		c.Amount = dec(amount)
		c.Date = parseDay(date)
		c.CreatedAt = parseRFC3339(createdAt)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func scanGoal(row scannable) (*ledger.Goal, error) {
	var (
		g             ledger.Goal
		targetAmount  string
		currentAmount string
		deadline      sql.NullString
		createdAt     string
	)
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &targetAmount, &currentAmount,
		&deadline, &g.Status, &createdAt); err != nil {
		return nil, err
	}
	g.TargetAmount = dec(targetAmount)
	g.CurrentAmount = dec(currentAmount)
	g.Deadline = parseNullDay(deadline)
	g.CreatedAt = parseRFC3339(createdAt)
	return &g, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scannable interface {
	Scan(dest ...any) error
}

func (r *runner) deleteOwned(ctx context.Context, table, id string, owner ledger.UserID) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE id = ? AND owner_id = ?", id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseRFC3339(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDay(s string) calendar.Date {
	d, _ := calendar.Parse(s)
	return d
}

func parseNullDay(s sql.NullString) *calendar.Date {
	if !s.Valid {
		return nil
	}
	d := parseDay(s.String)
	return &d
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func nullDate(d *calendar.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullCardID(id *ledger.CreditCardID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func nullRecurrenceID(id *ledger.RecurrenceID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
