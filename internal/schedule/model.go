package schedule

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSlotMinutes is the slot granularity used when no session type is given.
const DefaultSlotMinutes = 60

const dateLayout = "2006-01-02"

// Template is a recurring weekly open window. DayOfWeek follows time.Weekday.
type Template struct {
	ID        int       `db:"id" json:"id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime Clock     `db:"start_time" json:"start_time"`
	EndTime   Clock     `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (t Template) overlaps(o Template) bool {
	return t.DayOfWeek == o.DayOfWeek && t.StartTime < o.EndTime && o.StartTime < t.EndTime
}

// Exception overrides the templates for one calendar date. An unavailable
// exception closes the whole date; an available one may add a window.
type Exception struct {
	ID          int       `db:"id" json:"id"`
	Date        string    `db:"date" json:"date"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	StartTime   *Clock    `db:"start_time" json:"start_time,omitempty"`
	EndTime     *Clock    `db:"end_time" json:"end_time,omitempty"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Policy struct {
	CancellationNoticeHours int       `db:"cancellation_notice_hours" json:"cancellation_notice_hours"`
	BookingWindowDays       int       `db:"booking_window_days" json:"booking_window_days"`
	MinBookingNoticeHours   int       `db:"min_booking_notice_hours" json:"min_booking_notice_hours"`
	Timezone                string    `db:"timezone" json:"timezone"`
	CreditRefundOnCancel    bool      `db:"credit_refund_on_cancel" json:"credit_refund_on_cancel"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultPolicy() Policy {
	return Policy{
		CancellationNoticeHours: 24,
		BookingWindowDays:       30,
		MinBookingNoticeHours:   2,
		Timezone:                "UTC",
	}
}

func (p Policy) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("policy timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

func (p Policy) CancellationNotice() time.Duration {
	return time.Duration(p.CancellationNoticeHours) * time.Hour
}

func (p Policy) Validate() error {
	if p.CancellationNoticeHours < 0 || p.MinBookingNoticeHours < 0 {
		return errors.New("notice hours must not be negative")
	}
	if p.BookingWindowDays < 1 {
		return errors.New("booking window must be at least one day")
	}
	if _, err := p.Location(); err != nil {
		return err
	}
	return nil
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

type CreateTemplateRequest struct {
	DayOfWeek *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type UpsertExceptionRequest struct {
	Date        string  `json:"date" binding:"required"`
	IsAvailable bool    `json:"is_available"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Reason      *string `json:"reason" binding:"omitempty,max=500"`
}

type UpdatePolicyRequest struct {
	CancellationNoticeHours int    `json:"cancellation_notice_hours" binding:"min=0"`
	BookingWindowDays       int    `json:"booking_window_days" binding:"required,min=1,max=365"`
	MinBookingNoticeHours   int    `json:"min_booking_notice_hours" binding:"min=0"`
	Timezone                string `json:"timezone" binding:"required"`
	CreditRefundOnCancel    bool   `json:"credit_refund_on_cancel"`
}
