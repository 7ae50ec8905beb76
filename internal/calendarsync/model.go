package calendarsync

import (
	"fmt"
	"strings"
	"time"

	"sessionbook/internal/booking"

	"github.com/google/uuid"
)

// Integration is the single connected external calendar. Tokens are stored
// sealed and never leave the package in clear text.
type Integration struct {
	ID              int        `db:"id" json:"id"`
	Provider        string     `db:"provider" json:"provider"`
	CalendarID      string     `db:"calendar_id" json:"calendar_id"`
	AccessTokenEnc  []byte     `db:"access_token_enc" json:"-"`
	RefreshTokenEnc []byte     `db:"refresh_token_enc" json:"-"`
	TokenExpiry     *time.Time `db:"token_expiry" json:"token_expiry,omitempty"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastError       *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Task is one queued request to mirror a booking. It carries only the id:
// the reconciler always re-reads the booking.
type Task struct {
	ID         uuid.UUID `json:"id"`
	BookingID  int       `json:"booking_id"`
	Tries      int       `json:"tries"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SyncBooking is the slice of a booking the calendar mirror needs.
type SyncBooking struct {
	ID              int            `db:"id"`
	CustomerID      int            `db:"customer_id"`
	AthleteID       *int           `db:"athlete_id"`
	SessionTypeName string         `db:"session_type_name"`
	StartTime       time.Time      `db:"start_time"`
	EndTime         time.Time      `db:"end_time"`
	Status          booking.Status `db:"status"`
	Notes           string         `db:"notes"`
	CalendarEventID *string        `db:"calendar_event_id"`
}

type Event struct {
	BookingID   int
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

func eventFor(b SyncBooking) Event {
	var desc strings.Builder
	fmt.Fprintf(&desc, "Booking #%d\nCustomer #%d\n", b.ID, b.CustomerID)
	if b.AthleteID != nil {
		fmt.Fprintf(&desc, "Athlete #%d\n", *b.AthleteID)
	}
	fmt.Fprintf(&desc, "Status: %s\n", b.Status)
	if b.Notes != "" {
		desc.WriteString("\n" + b.Notes)
	}

	return Event{
		BookingID:   b.ID,
		Summary:     b.SessionTypeName,
		Description: desc.String(),
		Start:       b.StartTime,
		End:         b.EndTime,
	}
}

type StatusResponse struct {
	Connected   bool         `json:"connected"`
	Integration *Integration `json:"integration,omitempty"`
	QueueLength int64        `json:"queue_length"`
}

type ConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

type ResyncResponse struct {
	Queued int `json:"queued"`
}
