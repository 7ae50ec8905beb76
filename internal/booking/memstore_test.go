package booking

import (
	"context"
	"slices"
	"sync"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/subscription"
)

// memStore is an in-memory Store. InTx holds a single lock for the whole
// unit of work and rolls back on error, which gives the same outcome as a
// serializable transaction.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	bookings map[int]Booking
	subs     map[int]subscription.Subscription
	credits  []credit.Credit
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[int]Booking),
		subs:     make(map[int]subscription.Subscription),
	}
}

func (s *memStore) addCredit(c credit.Credit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = len(s.credits) + 1
	s.credits = append(s.credits, c)
}

func (s *memStore) setSync(id int, eventID *string, status SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[id]
	b.CalendarEventID = eventID
	b.CalendarSyncStatus = status
	s.bookings[id] = b
}

func (s *memStore) creditByID(id int) credit.Credit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits[id-1]
}

func (s *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := make(map[int]Booking, len(s.bookings))
	for id, b := range s.bookings {
		bookings[id] = b
	}
	credits := slices.Clone(s.credits)
	nextID := s.nextID

	if err := fn(memTx{s}); err != nil {
		s.bookings, s.credits, s.nextID = bookings, credits, nextID
		return err
	}
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *memStore) List(_ context.Context, f Filter) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Booking{}
	for _, b := range s.bookings {
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Booking) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

func (s *memStore) Occupying(_ context.Context, sessionTypeID int, from, to time.Time) ([]Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := Interval{Start: from, End: to}
	var out []Interval
	for _, b := range s.bookings {
		if b.SessionTypeID == sessionTypeID && Occupies(b.Status) && b.Interval().Overlaps(window) {
			out = append(out, b.Interval())
		}
	}
	return out, nil
}

// memTx runs with memStore.mu already held.
type memTx struct{ s *memStore }

func (t memTx) GetForUpdate(_ context.Context, id int) (*Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t memTx) CountOverlapping(_ context.Context, sessionTypeID int, iv Interval, excludeID int) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.ID != excludeID && b.SessionTypeID == sessionTypeID && Occupies(b.Status) && b.Interval().Overlaps(iv) {
			n++
		}
	}
	return n, nil
}

func (t memTx) CustomerHasOverlapping(_ context.Context, customerID int, athleteID *int, iv Interval) (bool, error) {
	for _, b := range t.s.bookings {
		if b.CustomerID == customerID && sameAthlete(b.AthleteID, athleteID) && Occupies(b.Status) && b.Interval().Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}

func sameAthlete(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (t memTx) CountFundedBySubscription(_ context.Context, customerID int, from, to time.Time) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.CustomerID == customerID && b.Funding == FundingSubscription && b.Status != StatusCancelled &&
			!b.StartTime.Before(from) && b.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (t memTx) Insert(_ context.Context, b *Booking) error {
	t.s.nextID++
	b.ID = t.s.nextID
	b.CalendarSyncStatus = SyncNotApplicable
	t.s.bookings[b.ID] = *b
	return nil
}

func (t memTx) MarkCancelled(_ context.Context, id, actorID int, reason *string, at time.Time, creditRestored bool) (*Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Status = StatusCancelled
	b.CancelledAt = &at
	b.CancelledBy = &actorID
	b.CancellationReason = reason
	b.CreditRestored = b.CreditRestored || creditRestored
	if b.CalendarEventID == nil {
		b.CalendarSyncStatus = SyncNotApplicable
	}
	t.s.bookings[id] = b
	return &b, nil
}

func (t memTx) UpdateStatus(_ context.Context, id int, to Status) (*Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Status = to
	t.s.bookings[id] = b
	return &b, nil
}

func (t memTx) UpdateTimes(_ context.Context, id int, iv Interval) (*Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.StartTime, b.EndTime = iv.Start, iv.End
	t.s.bookings[id] = b
	return &b, nil
}

func (t memTx) GrantingSubscription(_ context.Context, customerID int) (*subscription.Subscription, error) {
	sub, ok := t.s.subs[customerID]
	if !ok || !sub.Grants() {
		return nil, subscription.ErrNotFound
	}
	return &sub, nil
}

func (t memTx) ConsumeCredit(_ context.Context, customerID int, at time.Time) (int, error) {
	for i, c := range t.s.credits {
		if c.CustomerID == customerID && !c.Expired(at) && c.Remaining() > 0 {
			t.s.credits[i].UsedSessions++
			return c.ID, nil
		}
	}
	return 0, credit.ErrNoCredits
}

func (t memTx) RestoreCredit(_ context.Context, creditID int) error {
	for i, c := range t.s.credits {
		if c.ID == creditID && c.UsedSessions > 0 {
			t.s.credits[i].UsedSessions--
		}
	}
	return nil
}
