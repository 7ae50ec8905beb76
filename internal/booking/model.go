package booking

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Funding records which resource paid for a booking.
type Funding string

const (
	FundingSubscription Funding = "subscription"
	FundingCredit       Funding = "credit"
	FundingStaff        Funding = "staff"
)

type SyncStatus string

const (
	SyncNotApplicable SyncStatus = "not_applicable"
	SyncSynced        SyncStatus = "synced"
	SyncFailed        SyncStatus = "failed"
)

type Booking struct {
	ID                 int        `db:"id" json:"id"`
	CustomerID         int        `db:"customer_id" json:"customer_id"`
	AthleteID          *int       `db:"athlete_id" json:"athlete_id,omitempty"`
	SessionTypeID      int        `db:"session_type_id" json:"session_type_id"`
	StartTime          time.Time  `db:"start_time" json:"start_time"`
	EndTime            time.Time  `db:"end_time" json:"end_time"`
	Status             Status     `db:"status" json:"status"`
	Notes              string     `db:"notes" json:"notes"`
	Funding            Funding    `db:"funding" json:"funding"`
	CreditID           *int       `db:"credit_id" json:"credit_id,omitempty"`
	CreditRestored     bool       `db:"credit_restored" json:"credit_restored"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *int       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CalendarEventID    *string    `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
	CalendarSyncStatus SyncStatus `db:"calendar_sync_status" json:"calendar_sync_status"`
	CalendarSyncError  *string    `db:"calendar_sync_error" json:"calendar_sync_error,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

type Filter struct {
	CustomerID *int
	From       *time.Time
	To         *time.Time
	Status     *Status
	Limit      int
	Offset     int
}

type CreateRequest struct {
	SessionTypeID int       `json:"session_type_id" binding:"required,min=1"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	Notes         string    `json:"notes" binding:"max=1000"`
	AthleteID     *int      `json:"athlete_id" binding:"omitempty,min=1"`
	// CustomerID lets staff book on a customer's behalf.
	CustomerID *int `json:"customer_id" binding:"omitempty,min=1"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RescheduleRequest struct {
	StartTime time.Time  `json:"start_time" binding:"required"`
	EndTime   *time.Time `json:"end_time"`
}

// Slot is one bookable start with the room left in it.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Booked    int       `json:"booked"`
	Remaining int       `json:"remaining"`
}
