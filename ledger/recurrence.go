/*
recurrence.go - The recurrence engine

PURPOSE:
  Maintains a rolling horizon of materialized transactions for each active
  periodic recurrence. Creation generates occurrences from the start date
  up to 12 months out; extension re-walks from NextDueDate on every run.

IDEMPOTENCE:
  Extension is re-entrant. Before inserting, each occurrence is checked
  against existing rows for the same recurrence on the same calendar day.
  Each recurrence's generated batch commits atomically with its
  NextDueDate advance, so a crash mid-run can never move the cursor past
  occurrences that were not actually written.

STATES:
  active   generating
  paused   extension skips it entirely, NextDueDate left stale
  expired  end date has passed; skipped

FAILURE SEMANTICS:
  A recurrence missing its amount, account or category is a data defect:
  logged and skipped, never fatal to the batch. One bad recurrence cannot
  block extension for the rest of a user's recurrences.

SEE ALSO:
  - calendar/invoice.go: NextOccurrence
  - api/scheduler.go: The periodic trigger
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// HorizonMonths is the fixed lookahead up to which future occurrences are
// pre-materialized as transactions.
const HorizonMonths = 12

// =============================================================================
// RECURRENCE ENGINE
// =============================================================================

type RecurrenceEngine struct {
	store TxStore
	clock Clock
	log   zerolog.Logger
}

func NewRecurrenceEngine(store TxStore, clock Clock, log zerolog.Logger) *RecurrenceEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RecurrenceEngine{store: store, clock: clock, log: log}
}

// =============================================================================
// CREATION
// =============================================================================

type RecurringInput struct {
	Kind          TransactionKind
	Amount        decimal.Decimal
	Description   string
	Interval      calendar.Interval
	IntervalCount int
	StartDate     calendar.Date
	EndDate       *calendar.Date
	AccountID     AccountID
	CategoryID    CategoryID
	CreditCardID  *CreditCardID
}

func (in RecurringInput) validate() error {
	if !in.Kind.Valid() {
		return invalid("kind", "must be income or expense")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	if !in.Interval.Valid() {
		return invalid("interval", "must be day, week, month or year")
	}
	if in.IntervalCount < 1 {
		return invalid("intervalCount", "must be at least 1")
	}
	if in.StartDate.IsZero() {
		return invalid("startDate", "is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return invalid("endDate", "must not be before startDate")
	}
	if in.AccountID == "" {
		return invalid("accountId", "is required")
	}
	if in.CategoryID == "" {
		return invalid("categoryId", "is required")
	}
	return nil
}

// CreateRecurring creates the recurrence and materializes every
// occurrence from the start date through the horizon in one atomic unit.
// NextDueDate lands on the first occurrence past the horizon.
func (e *RecurrenceEngine) CreateRecurring(ctx context.Context, owner UserID, in RecurringInput) (*Recurrence, []Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	if a, err := e.store.GetAccount(ctx, owner, in.AccountID); err != nil {
		return nil, nil, err
	} else if a == nil {
		return nil, nil, notFound("account", string(in.AccountID))
	}
	if c, err := e.store.GetCategory(ctx, owner, in.CategoryID); err != nil {
		return nil, nil, err
	} else if c == nil {
		return nil, nil, notFound("category", string(in.CategoryID))
	}

	var card *CreditCard
	if in.CreditCardID != nil {
		c, err := e.store.GetCreditCard(ctx, owner, *in.CreditCardID)
		if err != nil {
			return nil, nil, err
		}
		if c == nil {
			return nil, nil, notFound("credit card", string(*in.CreditCardID))
		}
		card = c
	}

	rec := Recurrence{
		ID:              RecurrenceID(uuid.NewString()),
		OwnerID:         owner,
		Kind:            RecurrencePeriodic,
		TransactionKind: in.Kind,
		Interval:        in.Interval,
		IntervalCount:   in.IntervalCount,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Amount:          in.Amount.Round(2),
		Description:     in.Description,
		AccountID:       in.AccountID,
		CategoryID:      in.CategoryID,
		CreditCardID:    in.CreditCardID,
		Active:          true,
		CreatedAt:       e.clock.Now(),
	}

	horizonEnd := e.clock.Today().AddMonths(HorizonMonths)
	limit := horizonEnd
	if rec.EndDate != nil && rec.EndDate.Before(limit) {
		limit = *rec.EndDate
	}

	var rows []Transaction
	occ := rec.StartDate
	for occ.BeforeOrEqual(limit) {
		rows = append(rows, e.materialize(rec, card, occ))
		occ = calendar.NextOccurrence(rec.StartDate, rec.Interval, rec.IntervalCount, occ)
	}
	rec.NextDueDate = occ

	err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.CreateRecurrence(ctx, rec); err != nil {
			return err
		}
		return s.CreateTransactions(ctx, rows)
	})
	if err != nil {
		return nil, nil, err
	}
	return &rec, rows, nil
}

// materialize builds one generated transaction for an occurrence day.
func (e *RecurrenceEngine) materialize(rec Recurrence, card *CreditCard, occ calendar.Date) Transaction {
	tx := Transaction{
		ID:                TransactionID(uuid.NewString()),
		OwnerID:           rec.OwnerID,
		Kind:              rec.TransactionKind,
		Amount:            rec.Amount,
		Description:       rec.Description,
		AccountID:         rec.AccountID,
		CategoryID:        rec.CategoryID,
		CreditCardID:      rec.CreditCardID,
		RecurrenceID:      &rec.ID,
		IsRecurringCharge: true,
		CreatedAt:         e.clock.Now(),
	}
	if card != nil {
		purchase := occ
		tx.Date = calendar.InvoiceDate(purchase, card.ClosingDay, card.DueDay)
		tx.PurchaseDate = &purchase
	} else {
		tx.Date = occ
	}
	return tx
}

// =============================================================================
// EXTENSION
// =============================================================================

// Extend walks every active, non-expired recurrence of the owner whose
// NextDueDate falls within the horizon and materializes the missing
// occurrences. Returns the number of transactions generated. Re-entrant:
// running it twice back to back generates nothing the second time.
func (e *RecurrenceEngine) Extend(ctx context.Context, owner UserID) (int, error) {
	today := e.clock.Today()
	horizonEnd := today.AddMonths(HorizonMonths)

	due, err := e.store.ListDueRecurrences(ctx, owner, horizonEnd)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, rec := range due {
		if rec.Expired(today) {
			continue
		}
		if defect := recurrenceDefect(rec); defect != "" {
			e.log.Warn().
				Str("recurrence_id", string(rec.ID)).
				Str("defect", defect).
				Msg("skipping recurrence with incomplete data")
			continue
		}

		n, err := e.extendOne(ctx, rec, horizonEnd)
		if err != nil {
			e.log.Error().
				Err(err).
				Str("recurrence_id", string(rec.ID)).
				Msg("recurrence extension failed, continuing with remaining")
			continue
		}
		generated += n
	}
	return generated, nil
}

// extendOne generates one recurrence's missing occurrences and advances
// NextDueDate in the same store transaction.
func (e *RecurrenceEngine) extendOne(ctx context.Context, rec Recurrence, horizonEnd calendar.Date) (int, error) {
	limit := horizonEnd
	if rec.EndDate != nil && rec.EndDate.Before(limit) {
		limit = *rec.EndDate
	}

	generated := 0
	err := e.store.WithTx(ctx, func(s Store) error {
		var card *CreditCard
		if rec.CreditCardID != nil {
			c, err := s.GetCreditCard(ctx, rec.OwnerID, *rec.CreditCardID)
			if err != nil {
				return err
			}
			if c == nil {
				return notFound("credit card", string(*rec.CreditCardID))
			}
			card = c
		}

		occ := rec.NextDueDate
		if occ.IsZero() || occ.Before(rec.StartDate) {
			occ = rec.StartDate
		}

		for occ.BeforeOrEqual(limit) {
			exists, err := s.HasRecurrenceTransaction(ctx, rec.OwnerID, rec.ID, occ)
			if err != nil {
				return err
			}
			if !exists {
				if err := s.CreateTransaction(ctx, e.materialize(rec, card, occ)); err != nil {
					return err
				}
				generated++
			}
			occ = calendar.NextOccurrence(rec.StartDate, rec.Interval, rec.IntervalCount, occ)
		}

		rec.NextDueDate = occ
		return s.UpdateRecurrence(ctx, rec)
	})
	if err != nil {
		return 0, err
	}
	return generated, nil
}

// recurrenceDefect names the first missing field, or "" when the
// recurrence is generable.
func recurrenceDefect(rec Recurrence) string {
	switch {
	case !rec.Amount.IsPositive():
		return "amount"
	case rec.AccountID == "":
		return "account"
	case rec.CategoryID == "":
		return "category"
	}
	return ""
}

// =============================================================================
// PAUSE / RESUME
// =============================================================================

// Pause stops generation. NextDueDate is left where it is.
func (e *RecurrenceEngine) Pause(ctx context.Context, owner UserID, id RecurrenceID) (*Recurrence, error) {
	rec, err := e.getPeriodic(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	rec.Active = false
	if err := e.store.UpdateRecurrence(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Resume reactivates and fast-forwards NextDueDate to the first
// occurrence on or after today, so resuming does not backfill months of
// missed occurrences.
func (e *RecurrenceEngine) Resume(ctx context.Context, owner UserID, id RecurrenceID) (*Recurrence, error) {
	rec, err := e.getPeriodic(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	today := e.clock.Today()
	next := rec.NextDueDate
	if next.IsZero() {
		next = rec.StartDate
	}
	for next.Before(today) {
		next = calendar.NextOccurrence(rec.StartDate, rec.Interval, rec.IntervalCount, next)
	}

	rec.Active = true
	rec.NextDueDate = next
	if err := e.store.UpdateRecurrence(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the rule. Generated transactions remain as orphaned
// history, on purpose.
func (e *RecurrenceEngine) Delete(ctx context.Context, owner UserID, id RecurrenceID) error {
	deleted, err := e.store.DeleteRecurrence(ctx, owner, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("recurrence", string(id))
	}
	return nil
}

func (e *RecurrenceEngine) List(ctx context.Context, owner UserID) ([]Recurrence, error) {
	return e.store.ListRecurrences(ctx, owner)
}

func (e *RecurrenceEngine) getPeriodic(ctx context.Context, owner UserID, id RecurrenceID) (*Recurrence, error) {
	rec, err := e.store.GetRecurrence(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound("recurrence", string(id))
	}
	if rec.Kind != RecurrencePeriodic {
		return nil, invalid("recurrence", "installment groupings cannot be paused or resumed")
	}
	return rec, nil
}
