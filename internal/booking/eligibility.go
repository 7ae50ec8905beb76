package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/internal/auth"
	"sessionbook/internal/credit"
	"sessionbook/internal/schedule"
	"sessionbook/internal/subscription"
)

type DecisionKind int

const (
	GrantSubscription DecisionKind = iota + 1
	GrantCredit
	GrantStaff
	Deny
)

func (k DecisionKind) String() string {
	switch k {
	case GrantSubscription:
		return "grant_subscription"
	case GrantCredit:
		return "grant_credit"
	case GrantStaff:
		return "grant_staff"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Decision is the outcome of eligibility resolution. CreditID is set only
// for GrantCredit, Denial only for Deny.
type Decision struct {
	Kind     DecisionKind
	CreditID int
	Denial   *DenialError
}

type eligibilityStore interface {
	GrantingSubscription(ctx context.Context, customerID int) (*subscription.Subscription, error)
	CountFundedBySubscription(ctx context.Context, customerID int, from, to time.Time) (int, error)
	ConsumeCredit(ctx context.Context, customerID int, at time.Time) (int, error)
}

// ResolveEligibility picks how a booking starting at slotStart is paid for.
// A credit is debited as part of the decision, so the call must run in the
// transaction that inserts the booking.
func ResolveEligibility(ctx context.Context, tx eligibilityStore, actor auth.Actor, customerID int, slotStart time.Time, loc *time.Location, now time.Time) (Decision, error) {
	if actor.IsStaff() {
		return Decision{Kind: GrantStaff}, nil
	}

	quotaExhausted := false
	sub, err := tx.GrantingSubscription(ctx, customerID)
	switch {
	case errors.Is(err, subscription.ErrNotFound):
	case err != nil:
		return Decision{}, fmt.Errorf("load subscription: %w", err)
	case sub.Unlimited():
		return Decision{Kind: GrantSubscription}, nil
	default:
		weekStart := schedule.WeekStart(slotStart, loc)
		used, err := tx.CountFundedBySubscription(ctx, customerID, weekStart, weekStart.AddDate(0, 0, 7))
		if err != nil {
			return Decision{}, fmt.Errorf("count weekly bookings: %w", err)
		}
		if used < *sub.WeeklyQuota {
			return Decision{Kind: GrantSubscription}, nil
		}
		quotaExhausted = true
	}

	creditID, err := tx.ConsumeCredit(ctx, customerID, now)
	switch {
	case err == nil:
		return Decision{Kind: GrantCredit, CreditID: creditID}, nil
	case errors.Is(err, credit.ErrNoCredits):
	default:
		return Decision{}, fmt.Errorf("consume credit: %w", err)
	}

	if quotaExhausted {
		return Decision{Kind: Deny, Denial: denial(DenyQuotaExhausted)}, nil
	}
	return Decision{Kind: Deny, Denial: denial(DenyNoPlan)}, nil
}
