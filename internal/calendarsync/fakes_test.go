package calendarsync

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sessionbook/internal/booking"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func newTestCipher(t *testing.T) *TokenCipher {
	t.Helper()
	c, err := NewTokenCipher(testKey)
	require.NoError(t, err)
	return c
}

type syncState struct {
	eventID *string
	status  booking.SyncStatus
	err     *string
}

// fakeRepo keeps one integration and a set of bookings in memory.
type fakeRepo struct {
	mu          sync.Mutex
	integration *Integration
	bookings    map[int]*SyncBooking
	states      map[int]syncState
	lastError   *string
	syncedAt    *time.Time
	tokenWrites int
	deleted     bool
	unsynced    []int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[int]*SyncBooking{}, states: map[int]syncState{}}
}

func (f *fakeRepo) GetIntegration(context.Context) (*Integration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.integration == nil {
		return nil, ErrNotConnected
	}
	in := *f.integration
	return &in, nil
}

func (f *fakeRepo) SaveIntegration(_ context.Context, in *Integration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.ID = 1
	stored := *in
	f.integration = &stored
	return nil
}

func (f *fakeRepo) UpdateTokens(_ context.Context, _ int, accessEnc, refreshEnc []byte, expiry *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenWrites++
	f.integration.AccessTokenEnc = accessEnc
	f.integration.RefreshTokenEnc = refreshEnc
	f.integration.TokenExpiry = expiry
	return nil
}

func (f *fakeRepo) RecordSync(_ context.Context, _ int, at time.Time, lastErr *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lastErr == nil {
		f.syncedAt = &at
	}
	f.lastError = lastErr
	return nil
}

func (f *fakeRepo) DeleteIntegration(context.Context, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.integration == nil {
		return ErrNotConnected
	}
	f.integration = nil
	f.deleted = true
	return nil
}

func (f *fakeRepo) LoadBooking(_ context.Context, id int) (*SyncBooking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) SetSyncState(_ context.Context, bookingID int, eventID *string, status booking.SyncStatus, syncErr *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[bookingID] = syncState{eventID: eventID, status: status, err: syncErr}
	if b, ok := f.bookings[bookingID]; ok {
		b.CalendarEventID = eventID
	}
	return nil
}

// cancel flips a booking to cancelled the way a concurrent request would.
func (f *fakeRepo) cancel(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].Status = booking.StatusCancelled
}

func (f *fakeRepo) state(id int) syncState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[id]
}

func (f *fakeRepo) FutureUnsynced(context.Context, time.Time) ([]int, error) {
	return f.unsynced, nil
}

type fakeCalendar struct {
	mu       sync.Mutex
	events   map[string]Event
	nextID   int
	calls    []string
	failWith error

	// beforeInsert and beforeUpdate run ahead of the call, outside mu.
	beforeInsert func()
	beforeUpdate func()
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]Event{}}
}

func (c *fakeCalendar) Insert(_ context.Context, _ string, e Event) (string, error) {
	if c.beforeInsert != nil {
		c.beforeInsert()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "insert")
	if c.failWith != nil {
		return "", c.failWith
	}
	c.nextID++
	id := fmt.Sprintf("evt-%d", c.nextID)
	c.events[id] = e
	return id, nil
}

func (c *fakeCalendar) Update(_ context.Context, _ string, eventID string, e Event) error {
	if c.beforeUpdate != nil {
		c.beforeUpdate()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "update")
	if c.failWith != nil {
		return c.failWith
	}
	if _, ok := c.events[eventID]; !ok {
		return ErrEventNotFound
	}
	c.events[eventID] = e
	return nil
}

func (c *fakeCalendar) Delete(_ context.Context, _ string, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "delete")
	if c.failWith != nil {
		return c.failWith
	}
	if _, ok := c.events[eventID]; !ok {
		return ErrEventNotFound
	}
	delete(c.events, eventID)
	return nil
}

// failingDelete is a fakeCalendar whose deletes always fail.
type failingDelete struct {
	*fakeCalendar
	err error
}

func (c *failingDelete) Delete(context.Context, string, string) error { return c.err }

type fakeProvider struct {
	calendar   *fakeCalendar
	override   Calendar
	refreshed  *oauth2.Token
	refreshErr error
	exchanged  *oauth2.Token
	revokeErr  error

	// order records the refresh and calendar calls relative to token writes.
	order   []string
	repo    *fakeRepo
	revoked *oauth2.Token
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if p.exchanged == nil {
		return nil, errors.New("bad code " + code)
	}
	return p.exchanged, nil
}

func (p *fakeProvider) Refresh(_ context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	p.order = append(p.order, "refresh")
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	if p.refreshed != nil && !tok.Valid() {
		return p.refreshed, nil
	}
	return tok, nil
}

func (p *fakeProvider) Calendar(context.Context, *oauth2.Token) (Calendar, error) {
	if p.repo != nil {
		p.repo.mu.Lock()
		if p.repo.tokenWrites > 0 {
			p.order = append(p.order, "persisted")
		}
		p.repo.mu.Unlock()
	}
	p.order = append(p.order, "calendar")
	if p.override != nil {
		return p.override, nil
	}
	return p.calendar, nil
}

func (p *fakeProvider) Revoke(_ context.Context, tok *oauth2.Token) error {
	p.revoked = tok
	return p.revokeErr
}

// connect stores an integration whose tokens expire at expiry.
func connect(t *testing.T, repo *fakeRepo, c *TokenCipher, access, refresh string, expiry time.Time) {
	t.Helper()
	accessEnc, err := c.Seal(access)
	require.NoError(t, err)
	refreshEnc, err := c.Seal(refresh)
	require.NoError(t, err)
	repo.integration = &Integration{
		ID:              1,
		Provider:        "fake",
		CalendarID:      "primary",
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiry:     &expiry,
	}
}
