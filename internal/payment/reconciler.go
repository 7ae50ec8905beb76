package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/events"
	"sessionbook/internal/logger"
	"sessionbook/internal/metrics"
	"sessionbook/internal/subscription"
	"sessionbook/internal/tracing"

	"github.com/stripe/stripe-go/v76"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = tracing.Tracer("sessionbook/payment")

const (
	resultApplied   = "applied"
	resultDuplicate = "duplicate"
	resultStale     = "stale"
	resultIgnored   = "ignored"
	resultRejected  = "rejected"
	resultError     = "error"
)

type outcome struct {
	result string
	notify *events.BillingEvent
}

// Reconciler applies verified processor events to local subscription, credit
// and invoice state. Every event is applied at most once.
type Reconciler struct {
	store     Store
	publisher events.Publisher
}

func NewReconciler(store Store, publisher events.Publisher) *Reconciler {
	return &Reconciler{store: store, publisher: publisher}
}

func (r *Reconciler) Apply(ctx context.Context, ev stripe.Event) (err error) {
	ctx, span := tracer.Start(ctx, "payment.Apply", trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", string(ev.Type)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var out outcome
	err = r.store.InTx(ctx, func(tx Tx) error {
		out = outcome{}
		fresh, err := tx.RecordEvent(ctx, ev.ID, string(ev.Type))
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		if !fresh {
			out.result = resultDuplicate
			return nil
		}
		out, err = r.apply(ctx, tx, ev)
		return err
	})
	if err != nil {
		result := resultError
		if errors.Is(err, ErrMalformedEvent) {
			result = resultRejected
		}
		metrics.RecordPaymentEvent(string(ev.Type), result)
		return err
	}

	metrics.RecordPaymentEvent(string(ev.Type), out.result)
	logger.Info("Payment event processed", "event_id", ev.ID, "type", ev.Type, "result", out.result)

	if out.notify != nil {
		if err := r.publisher.Publish(ctx, out.notify.Event, out.notify); err != nil {
			logger.Warn("Failed to publish billing event", "event", out.notify.Event, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, tx Tx, ev stripe.Event) (outcome, error) {
	switch string(ev.Type) {
	case eventCheckoutCompleted:
		return r.applyCheckout(ctx, tx, ev)
	case eventSubscriptionCreated, eventSubscriptionUpdated:
		return r.applySubscription(ctx, tx, ev, false)
	case eventSubscriptionDeleted:
		return r.applySubscription(ctx, tx, ev, true)
	default:
		return outcome{result: resultIgnored}, nil
	}
}

func (r *Reconciler) applySubscription(ctx context.Context, tx Tx, ev stripe.Event, deleted bool) (outcome, error) {
	var sub stripe.Subscription
	if err := decodeObject(ev, &sub); err != nil {
		return outcome{}, err
	}
	customerID, err := metaInt(sub.Metadata, metaCustomerID)
	if err != nil {
		return outcome{}, err
	}
	plan, err := subscription.FindPlan(sub.Metadata[metaTier])
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	status := subscription.StatusCancelled
	if !deleted {
		var ok bool
		if status, ok = translateStatus(sub.Status); !ok {
			return outcome{}, fmt.Errorf("%w: subscription status %q", ErrMalformedEvent, sub.Status)
		}
	}

	u := subscription.Upsert{
		ExternalID:  sub.ID,
		CustomerID:  customerID,
		Tier:        plan.Tier,
		WeeklyQuota: plan.WeeklyQuota,
		Status:      status,
		PeriodStart: unixTime(sub.CurrentPeriodStart),
		PeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		EventAt:     eventTime(ev),
	}
	if sub.Customer != nil {
		u.ExternalCustomerID = sub.Customer.ID
	}

	changed, err := tx.Subscriptions().Upsert(ctx, u)
	if err != nil {
		return outcome{}, fmt.Errorf("upsert subscription: %w", err)
	}
	if !changed {
		logger.Info("Skipping out-of-order subscription event", "event_id", ev.ID, "subscription", sub.ID)
		return outcome{result: resultStale}, nil
	}

	return outcome{
		result: resultApplied,
		notify: &events.BillingEvent{
			Event:          events.SubscriptionChanged,
			Version:        1,
			ProcessorEvent: ev.ID,
			CustomerID:     customerID,
			Status:         string(status),
			Tier:           plan.Tier,
			OccurredAt:     u.EventAt,
		},
	}, nil
}

func (r *Reconciler) applyCheckout(ctx context.Context, tx Tx, ev stripe.Event) (outcome, error) {
	var cs stripe.CheckoutSession
	if err := decodeObject(ev, &cs); err != nil {
		return outcome{}, err
	}

	switch {
	case cs.Metadata[metaInvoiceID] != "":
		return r.payInvoice(ctx, tx, ev, &cs)
	case cs.Metadata[metaCreditPack] != "":
		return r.grantPack(ctx, tx, ev, &cs)
	case cs.Mode == stripe.CheckoutSessionModeSubscription:
		// The subscription itself arrives through customer.subscription.* events.
		logger.Info("Subscription checkout completed", "checkout_session", cs.ID)
		return outcome{result: resultApplied}, nil
	default:
		return outcome{result: resultIgnored}, nil
	}
}

func (r *Reconciler) payInvoice(ctx context.Context, tx Tx, ev stripe.Event, cs *stripe.CheckoutSession) (outcome, error) {
	invoiceID, err := metaInt(cs.Metadata, metaInvoiceID)
	if err != nil {
		return outcome{}, err
	}

	paid, err := tx.MarkInvoicePaid(ctx, invoiceID, cs.ID, eventTime(ev))
	if err != nil {
		return outcome{}, fmt.Errorf("mark invoice paid: %w", err)
	}
	if !paid {
		logger.Warn("Invoice missing or already settled", "invoice_id", invoiceID, "checkout_session", cs.ID)
		return outcome{result: resultIgnored}, nil
	}

	customerID, _ := metaInt(cs.Metadata, metaCustomerID)
	return outcome{
		result: resultApplied,
		notify: &events.BillingEvent{
			Event:          events.InvoicePaid,
			Version:        1,
			ProcessorEvent: ev.ID,
			CustomerID:     customerID,
			InvoiceID:      invoiceID,
			OccurredAt:     eventTime(ev),
		},
	}, nil
}

func (r *Reconciler) grantPack(ctx context.Context, tx Tx, ev stripe.Event, cs *stripe.CheckoutSession) (outcome, error) {
	if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		logger.Info("Credit pack checkout completed without payment", "checkout_session", cs.ID)
		return outcome{result: resultIgnored}, nil
	}

	pack, err := credit.FindPack(cs.Metadata[metaCreditPack])
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	customerID, err := metaInt(cs.Metadata, metaCustomerID)
	if err != nil {
		return outcome{}, err
	}

	ref := cs.ID
	at := eventTime(ev)
	grant, created, err := tx.Credits().Create(ctx, credit.Grant{
		CustomerID:  customerID,
		Sessions:    pack.Sessions,
		ExpiresAt:   pack.ExpiresAt(at),
		ExternalRef: &ref,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("grant credit pack: %w", err)
	}
	if !created {
		return outcome{result: resultDuplicate}, nil
	}

	logger.Info("Credit pack granted", "customer_id", customerID, "pack", pack.Code, "credit_id", grant.ID)
	return outcome{
		result: resultApplied,
		notify: &events.BillingEvent{
			Event:          events.CreditsGranted,
			Version:        1,
			ProcessorEvent: ev.ID,
			CustomerID:     customerID,
			Sessions:       pack.Sessions,
			OccurredAt:     at,
		},
	}, nil
}

func decodeObject(ev stripe.Event, v any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("%w: event %s has no data object", ErrMalformedEvent, ev.ID)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

func metaInt(meta map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(meta[key])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: metadata %s=%q", ErrMalformedEvent, key, meta[key])
	}
	return n, nil
}

func eventTime(ev stripe.Event) time.Time {
	return time.Unix(ev.Created, 0).UTC()
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
