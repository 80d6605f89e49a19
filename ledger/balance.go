/*
balance.go - Point-in-time balance and used-amount aggregation

PURPOSE:
  Computes, as of an arbitrary cutoff date, either an account balance or a
  card's used amount, by replaying the ledger.

ACCOUNT BALANCE:
  balance(asOf) = initial
                + income(date <= asOf) - expense(date <= asOf)
                - transfersOut(date <= asOf) + transfersIn(date <= asOf)

  Computed from two grouped queries regardless of how many accounts are
  listed - never one round trip per account.

CARD USED AMOUNT:
  used = unpaid non-recurring expense charges, all-time
       + unpaid recurring charges with ledger date inside the currently
         open invoice window

  Recurring charges regenerate every cycle, so only the open invoice's
  slice counts; installment/one-off charges are real debt until paid.

PRECISION:
  decimal all the way down. No float summation, no rounding here - any
  rounding happened when amounts entered the ledger.

SEE ALSO:
  - store.go: The grouped-sum query surface
  - calendar/invoice.go: CurrentInvoiceDate
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	store Store
	clock Clock
}

func NewAggregator(store Store, clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Aggregator{store: store, clock: clock}
}

// AccountBalance is one account's replayed state as of a date.
type AccountBalance struct {
	Account Account
	AsOf    calendar.Date
	Balance decimal.Decimal
}

// BalanceAsOf computes balances for one account (accountID set) or every
// account of the owner (accountID nil) as of the cutoff.
func (g *Aggregator) BalanceAsOf(ctx context.Context, owner UserID, accountID *AccountID, asOf calendar.Date) ([]AccountBalance, error) {
	var accounts []Account
	if accountID != nil {
		a, err := g.store.GetAccount(ctx, owner, *accountID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, notFound("account", string(*accountID))
		}
		accounts = []Account{*a}
	} else {
		var err error
		accounts, err = g.store.ListAccounts(ctx, owner)
		if err != nil {
			return nil, err
		}
	}

	txFlows, err := g.store.SumTransactionsByAccount(ctx, owner, asOf)
	if err != nil {
		return nil, err
	}
	trFlows, err := g.store.SumTransfersByAccount(ctx, owner, asOf)
	if err != nil {
		return nil, err
	}

	balances := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		tf := txFlows[a.ID]
		tr := trFlows[a.ID]
		balance := a.InitialBalance.
			Add(tf.Income).
			Sub(tf.Expense).
			Sub(tr.Out).
			Add(tr.In)
		balances = append(balances, AccountBalance{Account: a, AsOf: asOf, Balance: balance})
	}
	return balances, nil
}

// =============================================================================
// CARD USED AMOUNT
// =============================================================================

// CardUsage is a card's outstanding unpaid charge total.
type CardUsage struct {
	Card       CreditCard
	UsedAmount decimal.Decimal
	// Available is Limit - UsedAmount, nil when the card has no limit.
	Available *decimal.Decimal
}

// UsedAmount computes usage for one card (cardID set) or every card of
// the owner (cardID nil), as of today's open invoice.
func (g *Aggregator) UsedAmount(ctx context.Context, owner UserID, cardID *CreditCardID) ([]CardUsage, error) {
	var cards []CreditCard
	if cardID != nil {
		c, err := g.store.GetCreditCard(ctx, owner, *cardID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, notFound("credit card", string(*cardID))
		}
		cards = []CreditCard{*c}
	} else {
		var err error
		cards, err = g.store.ListCreditCards(ctx, owner)
		if err != nil {
			return nil, err
		}
	}

	charges, err := g.store.SumUnpaidCardCharges(ctx, owner)
	if err != nil {
		return nil, err
	}

	today := g.clock.Today()
	usages := make([]CardUsage, 0, len(cards))
	for _, c := range cards {
		// The open-invoice window differs per card, so the recurring
		// slice is one query per card.
		openInvoice := calendar.CurrentInvoiceDate(today, c.ClosingDay, c.DueDay)
		recurring, err := g.store.SumUnpaidRecurringCharges(ctx, owner, c.ID, openInvoice)
		if err != nil {
			return nil, err
		}

		used := charges[c.ID].Add(recurring)
		usage := CardUsage{Card: c, UsedAmount: used}
		if c.Limit != nil {
			available := c.Limit.Sub(used)
			usage.Available = &available
		}
		usages = append(usages, usage)
	}
	return usages, nil
}
