package booking

import (
	"context"
	"time"

	"sessionbook/internal/subscription"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	// Occupying returns the intervals of pending and confirmed bookings of
	// the session type that overlap [from, to).
	Occupying(ctx context.Context, sessionTypeID int, from, to time.Time) ([]Interval, error)
}

// Tx is the unit of work for booking mutations. Every method runs inside a
// single serializable transaction.
type Tx interface {
	GetForUpdate(ctx context.Context, id int) (*Booking, error)
	CountOverlapping(ctx context.Context, sessionTypeID int, iv Interval, excludeID int) (int, error)
	CustomerHasOverlapping(ctx context.Context, customerID int, athleteID *int, iv Interval) (bool, error)
	CountFundedBySubscription(ctx context.Context, customerID int, from, to time.Time) (int, error)
	Insert(ctx context.Context, b *Booking) error
	MarkCancelled(ctx context.Context, id, actorID int, reason *string, at time.Time, creditRestored bool) (*Booking, error)
	UpdateStatus(ctx context.Context, id int, to Status) (*Booking, error)
	UpdateTimes(ctx context.Context, id int, iv Interval) (*Booking, error)

	GrantingSubscription(ctx context.Context, customerID int) (*subscription.Subscription, error)
	ConsumeCredit(ctx context.Context, customerID int, at time.Time) (int, error)
	RestoreCredit(ctx context.Context, creditID int) error
}

type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Tx) error) error
}
