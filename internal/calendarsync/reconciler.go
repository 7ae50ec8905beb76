package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/internal/booking"
	"sessionbook/internal/logger"
	"sessionbook/internal/metrics"
	"sessionbook/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

var tracer = tracing.Tracer("sessionbook/calendarsync")

// persistTimeout bounds the bookkeeping writes that follow a sync attempt.
// They run even when the attempt itself hit its deadline.
const persistTimeout = 5 * time.Second

type Reconciler struct {
	repo     Repository
	provider Provider
	cipher   *TokenCipher
	now      func() time.Time
}

func NewReconciler(repo Repository, provider Provider, cipher *TokenCipher) *Reconciler {
	return &Reconciler{repo: repo, provider: provider, cipher: cipher, now: time.Now}
}

type outcome struct {
	op      string
	eventID *string
	status  booking.SyncStatus
}

// Reconcile makes the external calendar match the booking's current state.
// It is idempotent: every call re-reads the booking and the integration.
func (r *Reconciler) Reconcile(ctx context.Context, bookingID int) (err error) {
	ctx, span := tracer.Start(ctx, "calendarsync.Reconcile", trace.WithAttributes(attribute.Int("booking.id", bookingID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	integ, err := r.repo.GetIntegration(ctx)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load integration: %w", err)
	}

	b, err := r.repo.LoadBooking(ctx, bookingID)
	if errors.Is(err, ErrBookingNotFound) {
		logger.Warn("Skipping calendar sync for missing booking", "booking_id", bookingID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	out, syncErr := r.apply(ctx, integ, b)
	span.SetAttributes(attribute.String("calendarsync.op", out.op))

	var errMsg *string
	result := "success"
	if syncErr != nil {
		msg := syncErr.Error()
		errMsg = &msg
		result = "failure"
		out.status = booking.SyncFailed
		if out.eventID == nil {
			out.eventID = b.CalendarEventID
		}
	}
	metrics.RecordCalendarSync(out.op, result)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var persistErr error
	if err := r.repo.SetSyncState(pctx, b.ID, out.eventID, out.status, errMsg); err != nil {
		persistErr = fmt.Errorf("save booking sync state: %w", err)
	}
	if err := r.repo.RecordSync(pctx, integ.ID, r.now(), errMsg); err != nil {
		persistErr = errors.Join(persistErr, fmt.Errorf("save integration sync state: %w", err))
	}

	if syncErr != nil {
		logger.Warn("Calendar sync failed", "booking_id", b.ID, "op", out.op, "error", syncErr)
	} else {
		logger.Debug("Calendar sync done", "booking_id", b.ID, "op", out.op, "status", out.status)
	}
	return errors.Join(syncErr, persistErr)
}

func (r *Reconciler) apply(ctx context.Context, integ *Integration, b *SyncBooking) (outcome, error) {
	if b.Status == booking.StatusCancelled && b.CalendarEventID == nil {
		return outcome{op: "skip", status: booking.SyncNotApplicable}, nil
	}

	cal, err := r.calendarFor(ctx, integ)
	if err != nil {
		return outcome{op: "auth"}, err
	}

	if b.Status == booking.StatusCancelled {
		err := cal.Delete(ctx, integ.CalendarID, *b.CalendarEventID)
		if err != nil && !errors.Is(err, ErrEventNotFound) {
			return outcome{op: "delete"}, err
		}
		return outcome{op: "delete", status: booking.SyncNotApplicable}, nil
	}

	event := eventFor(*b)
	if b.CalendarEventID != nil {
		err := cal.Update(ctx, integ.CalendarID, *b.CalendarEventID, event)
		if err == nil {
			return r.recheck(ctx, cal, integ, b.ID, outcome{op: "update", eventID: b.CalendarEventID, status: booking.SyncSynced})
		}
		if !errors.Is(err, ErrEventNotFound) {
			return outcome{op: "update"}, err
		}
		logger.Info("Calendar event vanished, recreating", "booking_id", b.ID, "event_id", *b.CalendarEventID)
	}

	id, err := cal.Insert(ctx, integ.CalendarID, event)
	if err != nil {
		return outcome{op: "create"}, err
	}
	return r.recheck(ctx, cal, integ, b.ID, outcome{op: "create", eventID: &id, status: booking.SyncSynced})
}

// recheck re-reads the booking after an event was written. A cancel that
// landed in the meantime may already have been reconciled without seeing
// this event, so it is removed here.
func (r *Reconciler) recheck(ctx context.Context, cal Calendar, integ *Integration, bookingID int, out outcome) (outcome, error) {
	cur, err := r.repo.LoadBooking(ctx, bookingID)
	if err != nil {
		return out, fmt.Errorf("reload booking: %w", err)
	}
	if cur.Status != booking.StatusCancelled {
		return out, nil
	}

	logger.Info("Booking cancelled during calendar sync, removing event", "booking_id", bookingID, "event_id", *out.eventID)
	if err := cal.Delete(ctx, integ.CalendarID, *out.eventID); err != nil && !errors.Is(err, ErrEventNotFound) {
		return outcome{op: "delete", eventID: out.eventID}, err
	}
	return outcome{op: "delete", status: booking.SyncNotApplicable}, nil
}

// calendarFor refreshes the grant when needed, persists any new tokens and
// only then builds the client.
func (r *Reconciler) calendarFor(ctx context.Context, integ *Integration) (Calendar, error) {
	tok, err := openToken(r.cipher, integ)
	if err != nil {
		return nil, err
	}

	fresh, err := r.provider.Refresh(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("refresh calendar token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken || fresh.RefreshToken != tok.RefreshToken {
		if err := r.storeTokens(ctx, integ, fresh); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}

	return r.provider.Calendar(ctx, fresh)
}

func openToken(c *TokenCipher, integ *Integration) (*oauth2.Token, error) {
	access, err := c.Open(integ.AccessTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	refresh, err := c.Open(integ.RefreshTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if integ.TokenExpiry != nil {
		tok.Expiry = *integ.TokenExpiry
	}
	return tok, nil
}

func (r *Reconciler) storeTokens(ctx context.Context, integ *Integration, tok *oauth2.Token) error {
	refresh := tok.RefreshToken
	if refresh == "" {
		// Google omits the refresh token on refresh responses.
		plain, err := r.cipher.Open(integ.RefreshTokenEnc)
		if err != nil {
			return err
		}
		refresh = plain
	}

	accessEnc, err := r.cipher.Seal(tok.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc, err := r.cipher.Seal(refresh)
	if err != nil {
		return err
	}

	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	if err := r.repo.UpdateTokens(ctx, integ.ID, accessEnc, refreshEnc, expiry); err != nil {
		return err
	}
	integ.AccessTokenEnc, integ.RefreshTokenEnc, integ.TokenExpiry = accessEnc, refreshEnc, expiry
	return nil
}
