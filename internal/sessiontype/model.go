package sessiontype

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllowedDurations lists the session lengths, in minutes, a session type may use.
var AllowedDurations = []int{30, 45, 60, 90}

type SessionType struct {
	ID              int             `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Description     string          `db:"description" json:"description"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int             `db:"capacity" json:"capacity"`
	Price           decimal.Decimal `db:"price" json:"price"`
	Active          bool            `db:"active" json:"active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

func (s SessionType) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func ValidDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

type CreateRequest struct {
	Name            string          `json:"name" binding:"required,max=100"`
	Description     string          `json:"description" binding:"max=1000"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,oneof=30 45 60 90"`
	Capacity        int             `json:"capacity" binding:"required,min=1"`
	Price           decimal.Decimal `json:"price"`
}

// UpdateRequest carries the fields that stay editable once a session type
// has been booked. Duration and capacity are fixed at creation.
type UpdateRequest struct {
	Description *string          `json:"description" binding:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}
