/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend
  5. RequireUser: X-User-ID identity header (all /api routes)

ROUTE GROUPS:
  /api/accounts/*       Accounts and replayed balances
  /api/categories/*     Income/expense categories
  /api/cards/*          Credit cards and used amounts
  /api/transactions/*   Ledger rows, installments, pay, summary
  /api/transfers/*      Two-sided account transfers
  /api/recurrences/*    Recurring rules, pause/resume, extension
  /api/budgets/*        Monthly category budgets
  /api/goals/*          Savings goals and contributions

SECURITY NOTE:
  X-User-ID is identity, not authentication. Front this service with an
  auth proxy before exposing it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/balances", h.GetBalances)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCreditCards)
			r.Post("/", h.CreateCreditCard)
			r.Get("/usage", h.GetCardUsage)
			r.Delete("/{id}", h.DeleteCreditCard)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Post("/installments", h.CreateInstallments)
			r.Get("/summary", h.GetMonthSummary)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/pay", h.SetTransactionPaid)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Delete("/{id}", h.DeleteTransfer)
		})

		r.Route("/recurrences", func(r chi.Router) {
			r.Get("/", h.ListRecurrences)
			r.Post("/", h.CreateRecurring)
			r.Post("/extend", h.ExtendRecurrences)
			r.Post("/{id}/pause", h.PauseRecurrence)
			r.Post("/{id}/resume", h.ResumeRecurrence)
			r.Delete("/{id}", h.DeleteRecurrence)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.GetBudgetReport)
			r.Post("/", h.CreateBudget)
			r.Put("/{id}", h.UpdateBudget)
			r.Delete("/{id}", h.DeleteBudget)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.ListGoals)
			r.Post("/", h.CreateGoal)
			r.Get("/{id}", h.GetGoal)
			r.Delete("/{id}", h.DeleteGoal)
			r.Post("/{id}/cancel", h.CancelGoal)
			r.Get("/{id}/contributions", h.ListContributions)
			r.Post("/{id}/contributions", h.Contribute)
		})
	})

	return r
}
