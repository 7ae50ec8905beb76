package payment

import (
	"context"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/subscription"
)

// Tx applies one processor event atomically: the ledger entry and the state
// change commit together or not at all.
type Tx interface {
	// RecordEvent adds the event to the ledger and reports false when it was
	// already there.
	RecordEvent(ctx context.Context, eventID, eventType string) (bool, error)
	// MarkInvoicePaid moves a pending invoice to paid. It reports false when
	// the invoice is missing or no longer pending.
	MarkInvoicePaid(ctx context.Context, invoiceID int, checkoutID string, at time.Time) (bool, error)
	Subscriptions() subscription.Repository
	Credits() credit.Repository
}

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}
