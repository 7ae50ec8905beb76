package booking

import (
	"time"

	"sessionbook/internal/auth"
	"sessionbook/internal/schedule"
)

// initialStatus is the status new bookings are written with. Pending is
// reserved for a manual approval flow.
const initialStatus = StatusConfirmed

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckCancel enforces ownership and the notice period. Staff may cancel
// any booking at any time.
func CheckCancel(b Booking, actor auth.Actor, policy schedule.Policy, now time.Time) error {
	if !actor.IsStaff() && b.CustomerID != actor.UserID {
		return ErrForbidden
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return ErrInvalidTransition
	}
	if !actor.IsStaff() && b.StartTime.Sub(now) < policy.CancellationNotice() {
		return ErrCancellationWindow
	}
	return nil
}

// CheckAttendance guards the staff-only completed and no_show outcomes.
func CheckAttendance(b Booking, to Status, actor auth.Actor, now time.Time) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	if to != StatusCompleted && to != StatusNoShow {
		return ErrInvalidTransition
	}
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition
	}
	if now.Before(b.StartTime) {
		return ErrSessionNotStarted
	}
	return nil
}

func CheckReschedule(b Booking, actor auth.Actor, iv Interval) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	if !Occupies(b.Status) {
		return ErrInvalidTransition
	}
	if !iv.End.After(iv.Start) {
		return ErrInvalidInput
	}
	return nil
}

// RefundsCredit reports whether cancelling b gives its credit back.
func RefundsCredit(b Booking, policy schedule.Policy) bool {
	return policy.CreditRefundOnCancel &&
		b.Funding == FundingCredit &&
		b.CreditID != nil &&
		!b.CreditRestored
}
