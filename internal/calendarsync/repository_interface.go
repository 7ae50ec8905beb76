package calendarsync

import (
	"context"
	"time"

	"sessionbook/internal/booking"
)

type Repository interface {
	GetIntegration(ctx context.Context) (*Integration, error)
	// SaveIntegration replaces any existing integration.
	SaveIntegration(ctx context.Context, in *Integration) error
	UpdateTokens(ctx context.Context, id int, accessEnc, refreshEnc []byte, expiry *time.Time) error
	// RecordSync stores the outcome of an attempt. last_synced_at only
	// advances when lastErr is nil.
	RecordSync(ctx context.Context, id int, at time.Time, lastErr *string) error
	DeleteIntegration(ctx context.Context, id int) error

	LoadBooking(ctx context.Context, id int) (*SyncBooking, error)
	SetSyncState(ctx context.Context, bookingID int, eventID *string, status booking.SyncStatus, syncErr *string) error
	// FutureUnsynced lists pending and confirmed bookings starting after
	// `after` whose calendar mirror is not synced.
	FutureUnsynced(ctx context.Context, after time.Time) ([]int, error)
}
