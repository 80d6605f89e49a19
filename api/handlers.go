/*
handlers.go - HTTP API handlers for the finance engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

IDENTITY:
  Every /api route requires an X-User-ID header. The value scopes every
  query; there is no cross-user visibility. This is an identity header,
  not authentication - front it with a real auth proxy in production.

ERROR HANDLING:
  Domain errors map to HTTP status by taxonomy:
  - 400: Validation errors, invalid input
  - 403: Forbidden (deleting another user's transaction)
  - 404: Record absent or not owned
  - 409: Conflict (duplicate budget month)
  - 500: Internal errors, logged with detail, surfaced generically

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve owner from context
  3. Call domain logic
  4. Serialize response via dto.go converters

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background recurrence extension
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerkit/finance-engine/calendar"
	"github.com/ledgerkit/finance-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        ledger.TxStore
	Transactions *ledger.TransactionManager
	Recurrences  *ledger.RecurrenceEngine
	Transfers    *ledger.TransferService
	Budgets      *ledger.BudgetService
	Goals        *ledger.GoalService
	Aggregator   *ledger.Aggregator

	clock ledger.Clock
	log   zerolog.Logger
}

// NewHandler wires the engine services over one store.
func NewHandler(store ledger.TxStore, clock ledger.Clock, log zerolog.Logger) *Handler {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	return &Handler{
		Store:        store,
		Transactions: ledger.NewTransactionManager(store, clock),
		Recurrences:  ledger.NewRecurrenceEngine(store, clock, log.With().Str("component", "recurrence").Logger()),
		Transfers:    ledger.NewTransferService(store, clock),
		Budgets:      ledger.NewBudgetService(store, clock),
		Goals:        ledger.NewGoalService(store, clock),
		Aggregator:   ledger.NewAggregator(store, clock),
		clock:        clock,
		log:          log,
	}
}

// =============================================================================
// IDENTITY
// =============================================================================

type ownerKey struct{}

// RequireUser rejects requests without an X-User-ID header and stores the
// owner id in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-User-ID")
		if user == "" {
			writeError(w, http.StatusUnauthorized, "X-User-ID header is required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, ledger.UserID(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func owner(r *http.Request) ledger.UserID {
	user, _ := r.Context().Value(ownerKey{}).(ledger.UserID)
	return user
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	accountType := ledger.AccountType(req.Type)
	if !accountType.Valid() {
		writeError(w, http.StatusBadRequest, "type must be checking, savings, cash or investment", nil)
		return
	}

	account := ledger.Account{
		ID:             ledger.AccountID(uuid.NewString()),
		OwnerID:        owner(r),
		Name:           req.Name,
		Type:           accountType,
		InitialBalance: req.InitialBalance.Round(2),
		CreatedAt:      h.clock.Now(),
	}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	account, err := h.Store.GetAccount(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	account, err := h.Store.GetAccount(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Type != nil {
		accountType := ledger.AccountType(*req.Type)
		if !accountType.Valid() {
			writeError(w, http.StatusBadRequest, "type must be checking, savings, cash or investment", nil)
			return
		}
		account.Type = accountType
	}
	if req.InitialBalance != nil {
		account.InitialBalance = req.InitialBalance.Round(2)
	}

	if err := h.Store.UpdateAccount(r.Context(), *account); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	deleted, err := h.Store.DeleteAccount(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances returns replayed balances for one account (?accountId=) or
// all accounts, as of ?asOf= (default today).
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	asOf := h.clock.Today()
	if s := r.URL.Query().Get("asOf"); s != "" {
		parsed, err := calendar.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid asOf date (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	var accountID *ledger.AccountID
	if s := r.URL.Query().Get("accountId"); s != "" {
		id := ledger.AccountID(s)
		accountID = &id
	}

	balances, err := h.Aggregator.BalanceAsOf(r.Context(), owner(r), accountID, asOf)
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	kind := ledger.CategoryKind(req.Kind)
	if kind != ledger.CategoryIncome && kind != ledger.CategoryExpense {
		writeError(w, http.StatusBadRequest, "kind must be income or expense", nil)
		return
	}

	category := ledger.Category{
		ID:        ledger.CategoryID(uuid.NewString()),
		OwnerID:   owner(r),
		Name:      req.Name,
		Kind:      kind,
		Color:     req.Color,
		Icon:      req.Icon,
		CreatedAt: h.clock.Now(),
	}
	if err := h.Store.CreateCategory(r.Context(), category); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))
	deleted, err := h.Store.DeleteCategory(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Category not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CREDIT CARD HANDLERS
// =============================================================================

func (h *Handler) CreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ClosingDay < 1 || req.ClosingDay > 31 {
		writeError(w, http.StatusBadRequest, "closingDay must be between 1 and 31", nil)
		return
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		writeError(w, http.StatusBadRequest, "dueDay must be between 1 and 31", nil)
		return
	}

	account, err := h.Store.GetAccount(r.Context(), owner(r), ledger.AccountID(req.AccountID))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	card := ledger.CreditCard{
		ID:         ledger.CreditCardID(uuid.NewString()),
		OwnerID:    owner(r),
		AccountID:  account.ID,
		Name:       req.Name,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		Limit:      req.Limit,
		CreatedAt:  h.clock.Now(),
	}
	if err := h.Store.CreateCreditCard(r.Context(), card); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditCardDTO(card))
}

func (h *Handler) ListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Store.ListCreditCards(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]CreditCardDTO, len(cards))
	for i, c := range cards {
		dtos[i] = toCreditCardDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	id := ledger.CreditCardID(chi.URLParam(r, "id"))
	deleted, err := h.Store.DeleteCreditCard(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Credit card not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCardUsage returns used amounts for one card (?cardId=) or all cards.
func (h *Handler) GetCardUsage(w http.ResponseWriter, r *http.Request) {
	var cardID *ledger.CreditCardID
	if s := r.URL.Query().Get("cardId"); s != "" {
		id := ledger.CreditCardID(s)
		cardID = &id
	}

	usages, err := h.Aggregator.UsedAmount(r.Context(), owner(r), cardID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]CardUsageDTO, len(usages))
	for i, u := range usages {
		dtos[i] = toCardUsageDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Transactions.Create(r.Context(), owner(r), ledger.CreateTransactionInput{
		Kind:         ledger.TransactionKind(req.Kind),
		Amount:       req.Amount,
		Date:         req.Date,
		Description:  req.Description,
		AccountID:    ledger.AccountID(req.AccountID),
		CategoryID:   ledger.CategoryID(req.CategoryID),
		CreditCardID: cardIDPtr(req.CreditCardID),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	txs, err := h.Transactions.List(r.Context(), owner(r), filter)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	tx, err := h.Transactions.Get(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := ledger.UpdateTransactionInput{
		Amount:          req.Amount,
		Date:            req.Date,
		Description:     req.Description,
		CreditCardID:    cardIDPtr(req.CreditCardID),
		ClearCreditCard: req.ClearCreditCard,
	}
	if req.Kind != nil {
		kind := ledger.TransactionKind(*req.Kind)
		input.Kind = &kind
	}
	if req.AccountID != nil {
		accountID := ledger.AccountID(*req.AccountID)
		input.AccountID = &accountID
	}
	if req.CategoryID != nil {
		categoryID := ledger.CategoryID(*req.CategoryID)
		input.CategoryID = &categoryID
	}

	tx, err := h.Transactions.Update(r.Context(), owner(r), id, input)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	if err := h.Transactions.Delete(r.Context(), owner(r), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetTransactionPaid(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	var req SetPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := ledger.SetPaidInput{Paid: req.Paid, PaidAt: req.PaidAt}
	if req.AccountID != nil {
		accountID := ledger.AccountID(*req.AccountID)
		input.AccountID = &accountID
	}

	tx, err := h.Transactions.SetPaid(r.Context(), owner(r), id, input)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) CreateInstallments(w http.ResponseWriter, r *http.Request) {
	var req CreateInstallmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows, err := h.Transactions.CreateInstallments(r.Context(), owner(r), ledger.InstallmentInput{
		Amount:            req.Amount,
		PurchaseDate:      req.PurchaseDate,
		TotalInstallments: req.TotalInstallments,
		Description:       req.Description,
		AccountID:         ledger.AccountID(req.AccountID),
		CategoryID:        ledger.CategoryID(req.CategoryID),
		CreditCardID:      cardIDPtr(req.CreditCardID),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(rows))
}

// GetMonthSummary returns income/expense totals for ?month=&year=.
func (h *Handler) GetMonthSummary(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	summary, err := h.Transactions.MonthSummary(r.Context(), owner(r), month, year)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		Month:   int(summary.Month),
		Year:    summary.Year,
		Income:  summary.Income,
		Expense: summary.Expense,
		Net:     summary.Net,
	})
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	transfer, err := h.Transfers.Create(r.Context(), owner(r), ledger.CreateTransferInput{
		Amount:        req.Amount,
		Date:          req.Date,
		Description:   req.Description,
		FromAccountID: ledger.AccountID(req.FromAccountID),
		ToAccountID:   ledger.AccountID(req.ToAccountID),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*transfer))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Transfers.List(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransferID(chi.URLParam(r, "id"))
	if err := h.Transfers.Delete(r.Context(), owner(r), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECURRENCE HANDLERS
// =============================================================================

func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req CreateRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, _, err := h.Recurrences.CreateRecurring(r.Context(), owner(r), ledger.RecurringInput{
		Kind:          ledger.TransactionKind(req.Kind),
		Amount:        req.Amount,
		Description:   req.Description,
		Interval:      calendar.Interval(req.Interval),
		IntervalCount: req.IntervalCount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		AccountID:     ledger.AccountID(req.AccountID),
		CategoryID:    ledger.CategoryID(req.CategoryID),
		CreditCardID:  cardIDPtr(req.CreditCardID),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurrenceDTO(*rec))
}

func (h *Handler) ListRecurrences(w http.ResponseWriter, r *http.Request) {
	recurrences, err := h.Recurrences.List(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]RecurrenceDTO, len(recurrences))
	for i, rec := range recurrences {
		dtos[i] = toRecurrenceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) PauseRecurrence(w http.ResponseWriter, r *http.Request) {
	id := ledger.RecurrenceID(chi.URLParam(r, "id"))
	rec, err := h.Recurrences.Pause(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurrenceDTO(*rec))
}

func (h *Handler) ResumeRecurrence(w http.ResponseWriter, r *http.Request) {
	id := ledger.RecurrenceID(chi.URLParam(r, "id"))
	rec, err := h.Recurrences.Resume(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurrenceDTO(*rec))
}

func (h *Handler) DeleteRecurrence(w http.ResponseWriter, r *http.Request) {
	id := ledger.RecurrenceID(chi.URLParam(r, "id"))
	if err := h.Recurrences.Delete(r.Context(), owner(r), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExtendRecurrences triggers an extension run for the caller.
func (h *Handler) ExtendRecurrences(w http.ResponseWriter, r *http.Request) {
	generated, err := h.Recurrences.Extend(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"generated": generated})
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	budget, err := h.Budgets.Create(r.Context(), owner(r), ledger.CreateBudgetInput{
		CategoryID: ledger.CategoryID(req.CategoryID),
		Month:      time.Month(req.Month),
		Year:       req.Year,
		Amount:     req.Amount,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(*budget))
}

// GetBudgetReport lists the month's budgets with actual spend.
func (h *Handler) GetBudgetReport(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	reports, err := h.Budgets.Report(r.Context(), owner(r), month, year)
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]BudgetReportDTO, len(reports))
	for i, report := range reports {
		dtos[i] = toBudgetReportDTO(report)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "id"))
	var req UpdateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	budget, err := h.Budgets.Update(r.Context(), owner(r), id, req.Amount)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(*budget))
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "id"))
	if err := h.Budgets.Delete(r.Context(), owner(r), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	goal, err := h.Goals.Create(r.Context(), owner(r), ledger.CreateGoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(*goal))
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Goals.List(r.Context(), owner(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]GoalDTO, len(goals))
	for i, g := range goals {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	goal, err := h.Goals.Get(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(*goal))
}

func (h *Handler) CancelGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	goal, err := h.Goals.Cancel(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(*goal))
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	if err := h.Goals.Delete(r.Context(), owner(r), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	goal, err := h.Goals.Contribute(r.Context(), owner(r), id, req.Amount, req.Date)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(*goal))
}

func (h *Handler) ListContributions(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	contributions, err := h.Goals.Contributions(r.Context(), owner(r), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	dtos := make([]ContributionDTO, len(contributions))
	for i, c := range contributions {
		dtos[i] = toContributionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func cardIDPtr(s *string) *ledger.CreditCardID {
	if s == nil || *s == "" {
		return nil
	}
	id := ledger.CreditCardID(*s)
	return &id
}

func transactionFilter(r *http.Request) (ledger.TransactionFilter, error) {
	var f ledger.TransactionFilter
	q := r.URL.Query()

	if s := q.Get("accountId"); s != "" {
		id := ledger.AccountID(s)
		f.AccountID = &id
	}
	if s := q.Get("categoryId"); s != "" {
		id := ledger.CategoryID(s)
		f.CategoryID = &id
	}
	if s := q.Get("creditCardId"); s != "" {
		id := ledger.CreditCardID(s)
		f.CreditCardID = &id
	}
	if s := q.Get("recurrenceId"); s != "" {
		id := ledger.RecurrenceID(s)
		f.RecurrenceID = &id
	}
	if s := q.Get("kind"); s != "" {
		kind := ledger.TransactionKind(s)
		if !kind.Valid() {
			return f, errors.New("kind must be income or expense")
		}
		f.Kind = &kind
	}
	if s := q.Get("paid"); s != "" {
		paid, err := strconv.ParseBool(s)
		if err != nil {
			return f, errors.New("paid must be true or false")
		}
		f.Paid = &paid
	}
	if s := q.Get("from"); s != "" {
		d, err := calendar.Parse(s)
		if err != nil {
			return f, errors.New("invalid from date (use YYYY-MM-DD)")
		}
		f.From = &d
	}
	if s := q.Get("to"); s != "" {
		d, err := calendar.Parse(s)
		if err != nil {
			return f, errors.New("invalid to date (use YYYY-MM-DD)")
		}
		f.To = &d
	}
	return f, nil
}

func monthYear(r *http.Request) (time.Month, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("month must be between 1 and 12")
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		return 0, 0, errors.New("year is required")
	}
	return time.Month(month), year, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// handleError maps the domain error taxonomy to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
