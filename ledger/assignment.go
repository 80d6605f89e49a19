/*
assignment.go - Invoice assignment for card charges

PURPOSE:
  Maps a transaction's real-world purchase date to its ledger-effective
  date when a credit card is involved, and passes dates through unchanged
  otherwise.

RULE:
  No card:   ledger date = input date, no purchase date stored.
  With card: ledger date = calendar.InvoiceDate(input, closing, due),
             purchase date = input date. Card lookup fails NotFound when
             the card is absent or owned by someone else.

AUTO-PAY:
  A plain (non-card) EXPENSE whose ledger date equals today is created
  already paid. A convenience for cash/debit spends; card charges are paid
  through the invoice workflow and never auto-pay.

SEE ALSO:
  - calendar/invoice.go: The date arithmetic
  - lifecycle.go: Create/Update call sites
*/
package ledger

import (
	"context"

	"github.com/ledgerkit/finance-engine/calendar"
)

// invoiceAssignment is the resolved ledger placement of one charge.
type invoiceAssignment struct {
	Date         calendar.Date
	PurchaseDate *calendar.Date
}

// assignInvoice resolves where a charge lands on the ledger. The store is
// a parameter so callers inside WithTx resolve against the same view.
func assignInvoice(ctx context.Context, store Store, owner UserID, cardID *CreditCardID, input calendar.Date) (invoiceAssignment, error) {
	if cardID == nil {
		return invoiceAssignment{Date: input}, nil
	}

	card, err := store.GetCreditCard(ctx, owner, *cardID)
	if err != nil {
		return invoiceAssignment{}, err
	}
	if card == nil {
		return invoiceAssignment{}, notFound("credit card", string(*cardID))
	}

	purchase := input
	return invoiceAssignment{
		Date:         calendar.InvoiceDate(purchase, card.ClosingDay, card.DueDay),
		PurchaseDate: &purchase,
	}, nil
}

// autoPay reports whether a freshly created transaction should be marked
// paid at creation: non-card expenses landing on today's ledger date.
func autoPay(kind TransactionKind, cardID *CreditCardID, ledgerDate, today calendar.Date) bool {
	return kind == KindExpense && cardID == nil && ledgerDate.Equal(today)
}
