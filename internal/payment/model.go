package payment

import (
	"errors"
	"time"

	"sessionbook/internal/subscription"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	// ErrMalformedEvent marks a verified event whose payload cannot be
	// applied. Redelivery would not change the outcome.
	ErrMalformedEvent = errors.New("malformed payment event")
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

// Metadata keys set on outbound checkout sessions and read back from events.
const (
	metaCustomerID = "customer_id"
	metaTier       = "tier"
	metaCreditPack = "credit_pack"
	metaInvoiceID  = "invoice_id"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceVoid    InvoiceStatus = "void"
)

type Invoice struct {
	ID                 int             `db:"id" json:"id"`
	CustomerID         int             `db:"customer_id" json:"customer_id"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Currency           string          `db:"currency" json:"currency"`
	Status             InvoiceStatus   `db:"status" json:"status"`
	ExternalCheckoutID *string         `db:"external_checkout_id" json:"-"`
	PaidAt             *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

type SubscriptionCheckoutRequest struct {
	Tier string `json:"tier" binding:"required"`
}

type CreditCheckoutRequest struct {
	Pack string `json:"pack" binding:"required"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// translateStatus maps a processor subscription status onto the local
// vocabulary. Unknown statuses report false.
func translateStatus(s stripe.SubscriptionStatus) (subscription.Status, bool) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return subscription.StatusActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return subscription.StatusPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return subscription.StatusCancelled, true
	case stripe.SubscriptionStatusPaused:
		return subscription.StatusPaused, true
	default:
		return "", false
	}
}

// toCents converts a decimal price into the processor's minor units.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
