package subscription

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusPaused    Status = "paused"
)

// Subscription is the local mirror of a payment processor subscription.
// A nil WeeklyQuota means unlimited sessions.
type Subscription struct {
	ID                 int        `db:"id" json:"id"`
	CustomerID         int        `db:"customer_id" json:"customer_id"`
	Tier               string     `db:"tier" json:"tier"`
	WeeklyQuota        *int       `db:"weekly_quota" json:"weekly_quota"`
	Status             Status     `db:"status" json:"status"`
	CurrentPeriodStart *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	ExternalID         string     `db:"external_id" json:"-"`
	ExternalCustomerID string     `db:"external_customer_id" json:"-"`
	LastEventAt        time.Time  `db:"last_event_at" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (s Subscription) Unlimited() bool {
	return s.WeeklyQuota == nil
}

// Grants reports whether the subscription may fund bookings. Past-due and
// paused subscriptions are kept locally but grant nothing.
func (s Subscription) Grants() bool {
	return s.Status == StatusActive
}

// Upsert is a processor-side snapshot of a subscription, applied idempotently
// keyed on ExternalID and ordered by EventAt.
type Upsert struct {
	ExternalID         string
	ExternalCustomerID string
	CustomerID         int
	Tier               string
	WeeklyQuota        *int
	Status             Status
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	EventAt            time.Time
}
