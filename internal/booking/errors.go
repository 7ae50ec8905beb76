package booking

import (
	"errors"

	"sessionbook/internal/schedule"
)

var (
	ErrNotFound             = errors.New("booking not found")
	ErrInvalidInput         = errors.New("invalid booking request")
	ErrUnknownSessionType   = errors.New("unknown or inactive session type")
	ErrOutsideBookingWindow = schedule.ErrOutsideBookingWindow
	ErrSlotUnavailable      = schedule.ErrSlotUnavailable
	ErrSlotFull             = errors.New("slot is full")
	ErrAlreadyBooked        = errors.New("customer already has a booking overlapping this slot")
	ErrCancellationWindow   = errors.New("cancellation notice period has passed")
	ErrForbidden            = errors.New("not allowed for this caller")
	ErrInvalidTransition    = errors.New("booking status does not allow this change")
	ErrSessionNotStarted    = errors.New("session has not started yet")
)

type DenyCode string

const (
	DenyNoPlan         DenyCode = "no_plan"
	DenyQuotaExhausted DenyCode = "quota_exhausted"
)

// DenialError is returned when no payable resource covers the booking.
type DenialError struct {
	Code   DenyCode
	Reason string
}

func (e *DenialError) Error() string {
	return e.Reason
}

func denial(code DenyCode) *DenialError {
	switch code {
	case DenyQuotaExhausted:
		return &DenialError{Code: code, Reason: "weekly session quota exhausted and no session credits remaining"}
	default:
		return &DenialError{Code: DenyNoPlan, Reason: "no active subscription or session credits"}
	}
}
