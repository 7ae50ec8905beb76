package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sessionbook/internal/auth"
	"sessionbook/internal/events"
	"sessionbook/internal/logger"
	"sessionbook/internal/metrics"
	"sessionbook/internal/schedule"
	"sessionbook/internal/sessiontype"
	"sessionbook/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = tracing.Tracer("sessionbook/booking")

type SessionTypes interface {
	Get(ctx context.Context, id int) (*sessiontype.SessionType, error)
}

type Schedules interface {
	Policy(ctx context.Context) (schedule.Policy, error)
	Resolver(ctx context.Context, now time.Time) (*schedule.Resolver, error)
}

// SyncQueue receives a booking id whenever the booking changes in a way the
// external calendar should mirror.
type SyncQueue interface {
	Enqueue(ctx context.Context, bookingID int) error
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Booking, error)
	Get(ctx context.Context, actor auth.Actor, id int) (*Booking, error)
	List(ctx context.Context, actor auth.Actor, f Filter) ([]Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id int, reason string) (*Booking, error)
	MarkCompleted(ctx context.Context, actor auth.Actor, id int) (*Booking, error)
	MarkNoShow(ctx context.Context, actor auth.Actor, id int) (*Booking, error)
	Reschedule(ctx context.Context, actor auth.Actor, id int, req RescheduleRequest) (*Booking, error)
	// Availability lists slots between two YYYY-MM-DD dates, inclusive,
	// read in the policy timezone.
	Availability(ctx context.Context, sessionTypeID int, fromDate, toDate string) ([]Slot, error)
}

type service struct {
	store        Store
	sessionTypes SessionTypes
	schedules    Schedules
	syncQueue    SyncQueue
	publisher    events.Publisher
	now          func() time.Time
}

func NewService(
	store Store,
	sessionTypes SessionTypes,
	schedules Schedules,
	syncQueue SyncQueue,
	publisher events.Publisher,
) Service {
	return &service{
		store:        store,
		sessionTypes: sessionTypes,
		schedules:    schedules,
		syncQueue:    syncQueue,
		publisher:    publisher,
		now:          time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (b *Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.Int("booking.session_type_id", req.SessionTypeID),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { endSpan(span, err) }()

	if req.StartTime.IsZero() || req.SessionTypeID <= 0 {
		return nil, ErrInvalidInput
	}

	customerID := actor.UserID
	if req.CustomerID != nil && *req.CustomerID != actor.UserID {
		if !actor.IsStaff() {
			return nil, ErrForbidden
		}
		customerID = *req.CustomerID
	}

	st, err := s.activeSessionType(ctx, req.SessionTypeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resolver, err := s.schedules.Resolver(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	start := req.StartTime.In(resolver.Location())
	if err := resolver.Check(start, st.Duration()); err != nil {
		metrics.RecordBookingRejection("unavailable")
		return nil, err
	}
	iv := Interval{Start: start, End: start.Add(st.Duration())}

	err = s.store.InTx(ctx, func(tx Tx) error {
		b = nil

		capacity, err := CheckCapacity(ctx, tx, st.ID, st.Capacity, iv, 0)
		if err != nil {
			return err
		}
		if !capacity.HasRoom {
			return ErrSlotFull
		}

		dup, err := tx.CustomerHasOverlapping(ctx, customerID, req.AthleteID, iv)
		if err != nil {
			return err
		}
		if dup {
			return ErrAlreadyBooked
		}

		decision, err := ResolveEligibility(ctx, tx, actor, customerID, start, resolver.Location(), now)
		if err != nil {
			return err
		}

		candidate := &Booking{
			CustomerID:    customerID,
			AthleteID:     req.AthleteID,
			SessionTypeID: st.ID,
			StartTime:     iv.Start,
			EndTime:       iv.End,
			Status:        initialStatus,
			Notes:         strings.TrimSpace(req.Notes),
		}
		switch decision.Kind {
		case GrantStaff:
			candidate.Funding = FundingStaff
		case GrantSubscription:
			candidate.Funding = FundingSubscription
		case GrantCredit:
			candidate.Funding = FundingCredit
			candidate.CreditID = &decision.CreditID
		case Deny:
			return decision.Denial
		default:
			return fmt.Errorf("unhandled eligibility decision %v", decision.Kind)
		}

		if err := tx.Insert(ctx, candidate); err != nil {
			return err
		}
		b = candidate
		return nil
	})
	if err != nil {
		recordRejection(err)
		return nil, err
	}

	metrics.RecordBooking(string(b.Status), string(b.Funding))
	if b.Funding == FundingCredit {
		metrics.RecordCreditConsumed()
	}
	logger.Info("Booking created",
		"booking_id", b.ID,
		"customer_id", b.CustomerID,
		"session_type_id", b.SessionTypeID,
		"funding", b.Funding,
		"start", b.StartTime)

	s.afterCommit(ctx, b, events.BookingConfirmed, actor)
	return b, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id int) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && b.CustomerID != actor.UserID {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, f Filter) ([]Booking, error) {
	if !actor.IsStaff() {
		f.CustomerID = &actor.UserID
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return nil, ErrInvalidInput
	}
	return s.store.List(ctx, f)
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id int, reason string) (b *Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.Int("booking.id", id),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { endSpan(span, err) }()

	policy, err := s.schedules.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}

	now := s.now()
	err = s.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && current.CustomerID != actor.UserID {
			return ErrNotFound
		}
		if err := CheckCancel(*current, actor, policy, now); err != nil {
			return err
		}

		refund := RefundsCredit(*current, policy)
		if refund {
			if err := tx.RestoreCredit(ctx, *current.CreditID); err != nil {
				return fmt.Errorf("restore credit: %w", err)
			}
		}

		b, err = tx.MarkCancelled(ctx, id, actor.UserID, reasonPtr, now, refund)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingCancellation(string(actor.Role))
	logger.Info("Booking cancelled",
		"booking_id", b.ID,
		"actor_id", actor.UserID,
		"actor_role", actor.Role,
		"credit_restored", b.CreditRestored)

	s.afterCommit(ctx, b, events.BookingCancelled, actor)
	return b, nil
}

func (s *service) MarkCompleted(ctx context.Context, actor auth.Actor, id int) (*Booking, error) {
	return s.recordAttendance(ctx, actor, id, StatusCompleted, events.BookingCompleted)
}

func (s *service) MarkNoShow(ctx context.Context, actor auth.Actor, id int) (*Booking, error) {
	return s.recordAttendance(ctx, actor, id, StatusNoShow, events.BookingNoShow)
}

func (s *service) recordAttendance(ctx context.Context, actor auth.Actor, id int, to Status, event string) (b *Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.RecordAttendance", trace.WithAttributes(
		attribute.Int("booking.id", id),
		attribute.String("booking.status", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	now := s.now()
	err = s.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckAttendance(*current, to, actor, now); err != nil {
			return err
		}
		b, err = tx.UpdateStatus(ctx, id, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Booking attendance recorded", "booking_id", b.ID, "status", b.Status)
	s.afterCommit(ctx, b, event, actor)
	return b, nil
}

func (s *service) Reschedule(ctx context.Context, actor auth.Actor, id int, req RescheduleRequest) (b *Booking, err error) {
	ctx, span := tracer.Start(ctx, "booking.Reschedule", trace.WithAttributes(attribute.Int("booking.id", id)))
	defer func() { endSpan(span, err) }()

	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if req.StartTime.IsZero() {
		return nil, ErrInvalidInput
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		st, err := s.sessionTypes.Get(ctx, current.SessionTypeID)
		if err != nil {
			return fmt.Errorf("load session type: %w", err)
		}

		iv := Interval{Start: req.StartTime, End: req.StartTime.Add(st.Duration())}
		if req.EndTime != nil {
			iv.End = *req.EndTime
		}
		if err := CheckReschedule(*current, actor, iv); err != nil {
			return err
		}

		capacity, err := CheckCapacity(ctx, tx, current.SessionTypeID, st.Capacity, iv, current.ID)
		if err != nil {
			return err
		}
		if !capacity.HasRoom {
			return ErrSlotFull
		}

		b, err = tx.UpdateTimes(ctx, id, iv)
		return err
	})
	if err != nil {
		recordRejection(err)
		return nil, err
	}

	logger.Info("Booking rescheduled", "booking_id", b.ID, "start", b.StartTime, "end", b.EndTime)
	s.afterCommit(ctx, b, events.BookingRescheduled, actor)
	return b, nil
}

func (s *service) Availability(ctx context.Context, sessionTypeID int, fromDate, toDate string) ([]Slot, error) {
	st, err := s.activeSessionType(ctx, sessionTypeID)
	if err != nil {
		return nil, err
	}

	resolver, err := s.schedules.Resolver(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	from, err := time.ParseInLocation(time.DateOnly, fromDate, resolver.Location())
	if err != nil {
		return nil, ErrInvalidInput
	}
	to, err := time.ParseInLocation(time.DateOnly, toDate, resolver.Location())
	if err != nil {
		return nil, ErrInvalidInput
	}

	starts := resolver.Slots(from, to, st.Duration())
	var first, last time.Time
	for start := range starts {
		if first.IsZero() {
			first = start
		}
		last = start
	}
	if first.IsZero() {
		return []Slot{}, nil
	}

	occupied, err := s.store.Occupying(ctx, st.ID, first, last.Add(st.Duration()))
	if err != nil {
		return nil, err
	}
	return RemainingSlots(starts, st.Duration(), st.Capacity, occupied), nil
}

func (s *service) activeSessionType(ctx context.Context, id int) (*sessiontype.SessionType, error) {
	st, err := s.sessionTypes.Get(ctx, id)
	if errors.Is(err, sessiontype.ErrNotFound) {
		return nil, ErrUnknownSessionType
	}
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, ErrUnknownSessionType
	}
	return st, nil
}

// afterCommit hands the change to the calendar mirror and the event bus.
// Neither may fail the booking operation.
func (s *service) afterCommit(ctx context.Context, b *Booking, event string, actor auth.Actor) {
	if err := s.syncQueue.Enqueue(ctx, b.ID); err != nil {
		logger.Error("Failed to enqueue calendar sync", "booking_id", b.ID, "error", err)
	}

	payload := events.BookingEvent{
		Event:         event,
		Version:       1,
		BookingID:     b.ID,
		CustomerID:    b.CustomerID,
		SessionTypeID: b.SessionTypeID,
		Status:        string(b.Status),
		Funding:       string(b.Funding),
		StartsAt:      b.StartTime,
		EndsAt:        b.EndTime,
		ActorID:       actor.UserID,
		OccurredAt:    s.now(),
	}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		logger.Warn("Failed to publish booking event", "booking_id", b.ID, "event", event, "error", err)
	}
}

func recordRejection(err error) {
	var denial *DenialError
	switch {
	case errors.As(err, &denial):
		metrics.RecordBookingRejection(string(denial.Code))
	case errors.Is(err, ErrSlotFull):
		metrics.RecordBookingRejection("slot_full")
	case errors.Is(err, ErrAlreadyBooked):
		metrics.RecordBookingRejection("already_booked")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
