package payment

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"testing"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/subscription"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// state is everything an event can touch. InTx works on a copy and keeps it
// only when fn succeeds.
type state struct {
	ledger   map[string]string
	invoices map[int]InvoiceStatus
	subs     map[string]subscription.Upsert
	credits  []credit.Credit
}

func (s state) clone() state {
	return state{
		ledger:   maps.Clone(s.ledger),
		invoices: maps.Clone(s.invoices),
		subs:     maps.Clone(s.subs),
		credits:  append([]credit.Credit(nil), s.credits...),
	}
}

type fakeStore struct {
	mu    sync.Mutex
	state state
	// failWith makes the next transaction fail after fn ran.
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: state{
		ledger:   map[string]string{},
		invoices: map[int]InvoiceStatus{},
		subs:     map[string]subscription.Upsert{},
	}}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	work := f.state.clone()
	if err := fn(&fakeTx{s: &work}); err != nil {
		return err
	}
	if f.failWith != nil {
		err := f.failWith
		f.failWith = nil
		return err
	}
	f.state = work
	return nil
}

type fakeTx struct {
	s *state
}

func (t *fakeTx) RecordEvent(_ context.Context, eventID, eventType string) (bool, error) {
	if _, ok := t.s.ledger[eventID]; ok {
		return false, nil
	}
	t.s.ledger[eventID] = eventType
	return true, nil
}

func (t *fakeTx) MarkInvoicePaid(_ context.Context, invoiceID int, _ string, _ time.Time) (bool, error) {
	if t.s.invoices[invoiceID] != InvoicePending {
		return false, nil
	}
	t.s.invoices[invoiceID] = InvoicePaid
	return true, nil
}

func (t *fakeTx) Subscriptions() subscription.Repository { return fakeSubscriptions{t.s} }
func (t *fakeTx) Credits() credit.Repository             { return fakeCredits{t.s} }

type fakeSubscriptions struct {
	s *state
}

func (f fakeSubscriptions) GetGrantingForCustomer(context.Context, int) (*subscription.Subscription, error) {
	return nil, subscription.ErrNotFound
}

func (f fakeSubscriptions) GetCurrentForCustomer(context.Context, int) (*subscription.Subscription, error) {
	return nil, subscription.ErrNotFound
}

func (f fakeSubscriptions) Upsert(_ context.Context, u subscription.Upsert) (bool, error) {
	if cur, ok := f.s.subs[u.ExternalID]; ok && cur.EventAt.After(u.EventAt) {
		return false, nil
	}
	f.s.subs[u.ExternalID] = u
	return true, nil
}

type fakeCredits struct {
	s *state
}

func (f fakeCredits) ListForCustomer(context.Context, int) ([]credit.Credit, error) {
	return f.s.credits, nil
}

func (f fakeCredits) Available(context.Context, int, time.Time) (int, error) { return 0, nil }

func (f fakeCredits) ConsumeOldest(context.Context, int, time.Time) (int, error) {
	return 0, credit.ErrNoCredits
}

func (f fakeCredits) Restore(context.Context, int) error { return nil }

func (f fakeCredits) Create(_ context.Context, g credit.Grant) (*credit.Credit, bool, error) {
	for _, c := range f.s.credits {
		if g.ExternalRef != nil && c.ExternalRef != nil && *c.ExternalRef == *g.ExternalRef {
			return &c, false, nil
		}
	}
	c := credit.Credit{
		ID:            len(f.s.credits) + 1,
		CustomerID:    g.CustomerID,
		TotalSessions: g.Sessions,
		ExpiresAt:     g.ExpiresAt,
		ExternalRef:   g.ExternalRef,
	}
	f.s.credits = append(f.s.credits, c)
	return &c, true, nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, v any) error {
	return m.Called(ctx, key, v).Error(0)
}

func (m *MockPublisher) Close() error { return nil }

func newEvent(t *testing.T, id, typ string, created time.Time, object any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		ID:      id,
		Type:    stripe.EventType(typ),
		Created: created.Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func subscriptionObject(id, status, tier string, customerID string) map[string]any {
	return map[string]any{
		"id":                   id,
		"object":               "subscription",
		"status":               status,
		"customer":             "cus_123",
		"current_period_start": testNow.Unix(),
		"current_period_end":   testNow.AddDate(0, 1, 0).Unix(),
		"metadata":             map[string]string{"customer_id": customerID, "tier": tier},
	}
}

func checkoutObject(id, mode, paymentStatus string, metadata map[string]string) map[string]any {
	return map[string]any{
		"id":             id,
		"object":         "checkout.session",
		"mode":           mode,
		"payment_status": paymentStatus,
		"metadata":       metadata,
	}
}
