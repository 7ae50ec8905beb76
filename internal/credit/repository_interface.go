package credit

import (
	"context"
	"time"
)

type Repository interface {
	ListForCustomer(ctx context.Context, customerID int) ([]Credit, error)
	Available(ctx context.Context, customerID int, at time.Time) (int, error)
	// ConsumeOldest debits one session from the oldest unexpired grant with
	// sessions left and returns its id, or ErrNoCredits.
	ConsumeOldest(ctx context.Context, customerID int, at time.Time) (int, error)
	Restore(ctx context.Context, creditID int) error
	// Create inserts a grant. A grant whose ExternalRef already exists is
	// returned unchanged with created=false.
	Create(ctx context.Context, g Grant) (*Credit, bool, error)
}
