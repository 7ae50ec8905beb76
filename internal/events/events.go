// Package events publishes booking lifecycle and billing events for
// downstream consumers such as notifications and analytics. Publishing is best effort: callers log failures
// and never roll back the booking because of them.
package events

import (
	"context"
	"fmt"
	"time"
)

const (
	BookingConfirmed   = "booking.confirmed"
	BookingCancelled   = "booking.cancelled"
	BookingRescheduled = "booking.rescheduled"
	BookingCompleted   = "booking.completed"
	BookingNoShow      = "booking.no_show"

	SubscriptionChanged = "subscription.changed"
	CreditsGranted      = "credits.granted"
	InvoicePaid         = "invoice.paid"
)

type BookingEvent struct {
	Event         string    `json:"event"`
	Version       int       `json:"version"`
	BookingID     int       `json:"booking_id"`
	CustomerID    int       `json:"customer_id"`
	SessionTypeID int       `json:"session_type_id"`
	Status        string    `json:"status"`
	Funding       string    `json:"funding,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	ActorID       int       `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BillingEvent reports a payment processor event after it has been applied.
type BillingEvent struct {
	Event          string    `json:"event"`
	Version        int       `json:"version"`
	ProcessorEvent string    `json:"processor_event_id"`
	CustomerID     int       `json:"customer_id"`
	Status         string    `json:"status,omitempty"`
	Tier           string    `json:"tier,omitempty"`
	Sessions       int       `json:"sessions,omitempty"`
	InvoiceID      int       `json:"invoice_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

// New builds the publisher selected by kind: "amqp", "nats" or "none".
func New(kind, amqpURL, exchange, natsURL string) (Publisher, error) {
	switch kind {
	case "amqp":
		return NewAMQPPublisher(amqpURL, exchange)
	case "nats":
		return NewNATSPublisher(natsURL)
	case "", "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown event bus %q", kind)
	}
}

type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close() error                                { return nil }
