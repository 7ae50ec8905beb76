package subscription

import "context"

type Repository interface {
	// GetGrantingForCustomer returns the customer's active subscription, or
	// ErrNotFound when none can fund a booking.
	GetGrantingForCustomer(ctx context.Context, customerID int) (*Subscription, error)
	GetCurrentForCustomer(ctx context.Context, customerID int) (*Subscription, error)
	// Upsert applies u unless a newer event has already been applied. It
	// reports whether the row changed.
	Upsert(ctx context.Context, u Upsert) (bool, error)
}
