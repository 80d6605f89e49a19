package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finance-engine/api"
	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
	"github.com/ledgerkit/finance-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	userAlice = "alice"
	userBob   = "bob"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// newTestServer runs the full router over the in-memory store with a
// frozen clock (Jan 15 2024).
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	clock := ledger.FixedClock{Day: calendar.MustParse("2024-01-15")}
	h := api.NewHandler(store.NewMemory(), clock, testLogger())
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

// do sends a JSON request with the X-User-ID header and decodes the
// response body into out (when out is non-nil).
func do(t *testing.T, srv *httptest.Server, user, method, path string, body, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// seedAccount creates an account for the user and returns its id.
func seedAccount(t *testing.T, srv *httptest.Server, user, name string) string {
	t.Helper()
	var account api.AccountDTO
	resp := do(t, srv, user, http.MethodPost, "/api/accounts", api.CreateAccountRequest{
		Name:           name,
		Type:           "checking",
		InitialBalance: amt("1000.00"),
	}, &account)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return account.ID
}

func seedCategory(t *testing.T, srv *httptest.Server, user, name, kind string) string {
	t.Helper()
	var category api.CategoryDTO
	resp := do(t, srv, user, http.MethodPost, "/api/categories", api.CreateCategoryRequest{
		Name: name,
		Kind: kind,
	}, &category)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return category.ID
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestAPI_MissingUserHeaderUnauthorized(t *testing.T) {
	srv := newTestServer(t)

	var body api.ErrorResponse
	resp := do(t, srv, "", http.MethodGet, "/api/accounts", nil, &body)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body.Error, "X-User-ID")
}

func TestAPI_OwnershipIsolation(t *testing.T) {
	// GIVEN: Alice's account
	// WHEN: Bob lists and fetches
	// THEN: He sees nothing - another owner's records read as absent

	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Alice Checking")

	var bobAccounts []api.AccountDTO
	resp := do(t, srv, userBob, http.MethodGet, "/api/accounts", nil, &bobAccounts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, bobAccounts)

	resp = do(t, srv, userBob, http.MethodGet, "/api/accounts/"+accountID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ACCOUNTS AND BALANCES
// =============================================================================

func TestAPI_AccountLifecycle(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")

	var fetched api.AccountDTO
	resp := do(t, srv, userAlice, http.MethodGet, "/api/accounts/"+accountID, nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Main", fetched.Name)
	assert.Equal(t, "checking", fetched.Type)

	resp = do(t, srv, userAlice, http.MethodDelete, "/api/accounts/"+accountID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodGet, "/api/accounts/"+accountID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateAccountRejectsBadType(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, userAlice, http.MethodPost, "/api/accounts", api.CreateAccountRequest{
		Name: "Weird",
		Type: "offshore",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_BalancesReplayTransactions(t *testing.T) {
	// GIVEN: Initial 1000, income 500, expense 200 (all through the API)
	// WHEN: Balances are read
	// THEN: 1300

	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	incomeCat := seedCategory(t, srv, userAlice, "Salary", "income")
	expenseCat := seedCategory(t, srv, userAlice, "Food", "expense")

	resp := do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "income", Amount: amt("500.00"), Date: calendar.MustParse("2024-01-05"),
		AccountID: accountID, CategoryID: incomeCat,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "expense", Amount: amt("200.00"), Date: calendar.MustParse("2024-01-10"),
		AccountID: accountID, CategoryID: expenseCat,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var balances []api.BalanceDTO
	resp = do(t, srv, userAlice, http.MethodGet, "/api/accounts/balances", nil, &balances)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Balance.Equal(amt("1300.00")), "balance = %s", balances[0].Balance)
}

// =============================================================================
// CARDS AND TRANSACTIONS
// =============================================================================

func TestAPI_CardChargeGetsInvoiceDate(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Shopping", "expense")

	var card api.CreditCardDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/cards", api.CreateCreditCardRequest{
		Name: "Visa", AccountID: accountID, ClosingDay: 5, DueDay: 10,
	}, &card)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tx api.TransactionDTO
	resp = do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "expense", Amount: amt("99.90"), Date: calendar.MustParse("2024-01-06"),
		AccountID: accountID, CategoryID: expenseCat, CreditCardID: &card.ID,
	}, &tx)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, calendar.MustParse("2024-02-10"), tx.Date)
	require.NotNil(t, tx.PurchaseDate)
	assert.Equal(t, calendar.MustParse("2024-01-06"), *tx.PurchaseDate)
}

func TestAPI_CreateCardRejectsBadCycleDays(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")

	resp := do(t, srv, userAlice, http.MethodPost, "/api/cards", api.CreateCreditCardRequest{
		Name: "Broken", AccountID: accountID, ClosingDay: 0, DueDay: 32,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DeleteTransactionStatusTaxonomy(t *testing.T) {
	// Missing row: 404. Someone else's row: 403.

	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Food", "expense")

	var tx api.TransactionDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "expense", Amount: amt("10.00"), Date: calendar.MustParse("2024-01-10"),
		AccountID: accountID, CategoryID: expenseCat,
	}, &tx)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodDelete, "/api/transactions/tx-nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, userBob, http.MethodDelete, "/api/transactions/"+tx.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodDelete, "/api/transactions/"+tx.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_PayTransaction(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Food", "expense")

	var tx api.TransactionDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "expense", Amount: amt("10.00"), Date: calendar.MustParse("2024-01-20"),
		AccountID: accountID, CategoryID: expenseCat,
	}, &tx)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.False(t, tx.Paid)

	paidAt := calendar.MustParse("2024-01-22")
	var paid api.TransactionDTO
	resp = do(t, srv, userAlice, http.MethodPost, "/api/transactions/"+tx.ID+"/pay", api.SetPaidRequest{
		Paid:   true,
		PaidAt: &paidAt,
	}, &paid)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, paid.Paid)
	assert.Equal(t, paidAt, paid.Date)
}

// =============================================================================
// INSTALLMENTS AND RECURRENCES
// =============================================================================

func TestAPI_CreateInstallments(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Electronics", "expense")

	var card api.CreditCardDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/cards", api.CreateCreditCardRequest{
		Name: "Visa", AccountID: accountID, ClosingDay: 5, DueDay: 10,
	}, &card)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rows []api.TransactionDTO
	resp = do(t, srv, userAlice, http.MethodPost, "/api/transactions/installments", api.CreateInstallmentsRequest{
		Amount:            amt("333.33"),
		PurchaseDate:      calendar.MustParse("2024-01-15"),
		TotalInstallments: 3,
		Description:       "Laptop",
		AccountID:         accountID,
		CategoryID:        expenseCat,
		CreditCardID:      &card.ID,
	}, &rows)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, rows, 3)
	assert.Equal(t, "Laptop 1/3", rows[0].Description)
	assert.Equal(t, calendar.MustParse("2024-02-10"), rows[0].Date)
	assert.Equal(t, calendar.MustParse("2024-04-10"), rows[2].Date)
}

func TestAPI_RecurrenceExtendEndpoint(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Housing", "expense")

	var rec api.RecurrenceDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/recurrences", api.CreateRecurringRequest{
		Kind: "expense", Amount: amt("1200.00"), Description: "Rent",
		Interval: "month", IntervalCount: 1,
		StartDate: calendar.MustParse("2024-01-15"),
		AccountID: accountID, CategoryID: expenseCat,
	}, &rec)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, rec.Active)

	// Freshly materialized: extension has nothing to add.
	var result map[string]int
	resp = do(t, srv, userAlice, http.MethodPost, "/api/recurrences/extend", nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, result["generated"])

	var rows []api.TransactionDTO
	resp = do(t, srv, userAlice, http.MethodGet, "/api/transactions?recurrenceId="+rec.ID, nil, &rows)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, rows, 13)
}

// =============================================================================
// BUDGETS AND GOALS
// =============================================================================

func TestAPI_BudgetConflictOnDuplicateMonth(t *testing.T) {
	srv := newTestServer(t)
	seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Food", "expense")

	req := api.CreateBudgetRequest{
		CategoryID: expenseCat, Month: 1, Year: 2024, Amount: amt("500.00"),
	}
	resp := do(t, srv, userAlice, http.MethodPost, "/api/budgets", req, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodPost, "/api/budgets", req, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_BudgetReport(t *testing.T) {
	srv := newTestServer(t)
	accountID := seedAccount(t, srv, userAlice, "Main")
	expenseCat := seedCategory(t, srv, userAlice, "Food", "expense")

	resp := do(t, srv, userAlice, http.MethodPost, "/api/budgets", api.CreateBudgetRequest{
		CategoryID: expenseCat, Month: 1, Year: 2024, Amount: amt("500.00"),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, userAlice, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Kind: "expense", Amount: amt("200.00"), Date: calendar.MustParse("2024-01-08"),
		AccountID: accountID, CategoryID: expenseCat,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reports []api.BudgetReportDTO
	resp = do(t, srv, userAlice, http.MethodGet, "/api/budgets?month=1&year=2024", nil, &reports)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Spent.Equal(amt("200.00")))
	assert.True(t, reports[0].Remaining.Equal(amt("300.00")))
}

func TestAPI_GoalContributionCompletes(t *testing.T) {
	srv := newTestServer(t)

	var goal api.GoalDTO
	resp := do(t, srv, userAlice, http.MethodPost, "/api/goals", api.CreateGoalRequest{
		Name: "Vacation", TargetAmount: amt("1000.00"),
	}, &goal)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "active", goal.Status)

	var updated api.GoalDTO
	resp = do(t, srv, userAlice, http.MethodPost,
		fmt.Sprintf("/api/goals/%s/contributions", goal.ID),
		api.ContributeRequest{Amount: amt("1000.00"), Date: calendar.MustParse("2024-01-10")},
		&updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "completed", updated.Status)
	assert.True(t, updated.CurrentAmount.Equal(amt("1000.00")))
}
