package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sessionbook/internal/auth"
	"sessionbook/internal/credit"
	"sessionbook/internal/events"
	"sessionbook/internal/schedule"
	"sessionbook/internal/sessiontype"
	"sessionbook/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	privateType     = 1
	groupType       = 2
	retiredType     = 3
	otherCustomerID = 20
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // Monday

type MockSyncQueue struct {
	mock.Mock
}

func (m *MockSyncQueue) Enqueue(ctx context.Context, bookingID int) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

type fakeSessionTypes map[int]*sessiontype.SessionType

func (f fakeSessionTypes) Get(_ context.Context, id int) (*sessiontype.SessionType, error) {
	st, ok := f[id]
	if !ok {
		return nil, sessiontype.ErrNotFound
	}
	return st, nil
}

type fakeSchedules struct {
	policy     schedule.Policy
	exceptions []schedule.Exception
}

func (f *fakeSchedules) Policy(context.Context) (schedule.Policy, error) {
	return f.policy, nil
}

func (f *fakeSchedules) Resolver(_ context.Context, now time.Time) (*schedule.Resolver, error) {
	var templates []schedule.Template
	for day := 0; day < 7; day++ {
		templates = append(templates, schedule.Template{DayOfWeek: day, StartTime: 6 * 60, EndTime: 22 * 60})
	}
	return schedule.NewResolver(f.policy, templates, f.exceptions, now)
}

type testEnv struct {
	svc       *service
	store     *memStore
	schedules *fakeSchedules
	queue     *MockSyncQueue
	publisher *MockPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	schedules := &fakeSchedules{policy: schedule.DefaultPolicy()}
	queue := new(MockSyncQueue)
	queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Maybe()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	types := fakeSessionTypes{
		privateType: {ID: privateType, Name: "Private", DurationMinutes: 60, Capacity: 1, Active: true},
		groupType:   {ID: groupType, Name: "Small group", DurationMinutes: 60, Capacity: 4, Active: true},
		retiredType: {ID: retiredType, Name: "Retired", DurationMinutes: 30, Capacity: 1, Active: false},
	}

	svc := NewService(store, types, schedules, queue, publisher).(*service)
	svc.now = func() time.Time { return testNow }

	return &testEnv{svc: svc, store: store, schedules: schedules, queue: queue, publisher: publisher}
}

func (e *testEnv) setNow(now time.Time) {
	e.svc.now = func() time.Time { return now }
}

func (e *testEnv) subscribe(customerID int, weeklyQuota *int) {
	e.store.subs[customerID] = subscription.Subscription{
		CustomerID:  customerID,
		Tier:        "test",
		WeeklyQuota: weeklyQuota,
		Status:      subscription.StatusActive,
	}
}

func (e *testEnv) giveCredits(customerID, sessions int) {
	e.store.addCredit(credit.Credit{CustomerID: customerID, TotalSessions: sessions, CreatedAt: testNow})
}

func wednesdayAt(hour int) time.Time {
	return time.Date(2026, 3, 4, hour, 0, 0, 0, time.UTC)
}

func book(sessionTypeID int, start time.Time) CreateRequest {
	return CreateRequest{SessionTypeID: sessionTypeID, StartTime: start}
}

func denialCode(t *testing.T, err error) DenyCode {
	t.Helper()
	var denial *DenialError
	require.ErrorAs(t, err, &denial)
	return denial.Code
}

func TestCreate_CreditFundsPrivateSessionAndFillsIt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other := auth.Actor{UserID: otherCustomerID, Role: auth.RoleCustomer}
	env.giveCredits(customer.UserID, 5)
	env.giveCredits(other.UserID, 5)

	b, err := env.svc.Create(ctx, customer, book(privateType, wednesdayAt(10)))
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, FundingCredit, b.Funding)
	require.NotNil(t, b.CreditID)
	assert.Equal(t, 1, env.store.creditByID(*b.CreditID).UsedSessions)
	assert.Equal(t, wednesdayAt(11), b.EndTime)

	_, err = env.svc.Create(ctx, other, book(privateType, wednesdayAt(10)))
	assert.ErrorIs(t, err, ErrSlotFull)
	assert.Equal(t, 0, env.store.creditByID(2).UsedSessions)

	// Back-to-back sessions do not overlap.
	next, err := env.svc.Create(ctx, other, book(privateType, wednesdayAt(11)))
	require.NoError(t, err)
	assert.Equal(t, FundingCredit, next.Funding)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("no plan and no credits", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
		assert.Equal(t, DenyNoPlan, denialCode(t, err))
		assert.Empty(t, env.store.bookings)
	})

	t.Run("inside minimum notice", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 1)
		_, err := env.svc.Create(ctx, customer, book(groupType, testNow.Add(time.Hour)))
		assert.ErrorIs(t, err, ErrOutsideBookingWindow)
	})

	t.Run("beyond booking window", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 1)
		_, err := env.svc.Create(ctx, customer, book(groupType, testNow.AddDate(0, 0, 31)))
		assert.ErrorIs(t, err, ErrOutsideBookingWindow)
	})

	t.Run("outside open hours", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 1)
		_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(23)))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("misaligned start", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 1)
		_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10).Add(15*time.Minute)))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("date closed by exception", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 1)
		env.schedules.exceptions = []schedule.Exception{{Date: "2026-03-04", IsAvailable: false}}
		_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("inactive session type", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Create(ctx, customer, book(retiredType, wednesdayAt(10)))
		assert.ErrorIs(t, err, ErrUnknownSessionType)
	})

	t.Run("unknown session type", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Create(ctx, customer, book(99, wednesdayAt(10)))
		assert.ErrorIs(t, err, ErrUnknownSessionType)
	})

	t.Run("missing start", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Create(ctx, customer, CreateRequest{SessionTypeID: groupType})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("customer booking for someone else", func(t *testing.T) {
		env := newTestEnv(t)
		other := otherCustomerID
		req := book(groupType, wednesdayAt(10))
		req.CustomerID = &other
		_, err := env.svc.Create(ctx, customer, req)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("same customer twice in one slot", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 5)
		_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
		require.NoError(t, err)
		_, err = env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
		assert.ErrorIs(t, err, ErrAlreadyBooked)
		assert.Equal(t, 1, env.store.creditByID(1).UsedSessions)
	})
}

func TestCreate_SameCustomerDifferentAthletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)

	first, second := 1, 2
	req := book(groupType, wednesdayAt(10))
	req.AthleteID = &first
	_, err := env.svc.Create(ctx, customer, req)
	require.NoError(t, err)

	req.AthleteID = &second
	_, err = env.svc.Create(ctx, customer, req)
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, customer, req)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestCreate_UnlimitedSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)

	for day := 3; day <= 7; day++ {
		b, err := env.svc.Create(ctx, customer, book(groupType, time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.Equal(t, FundingSubscription, b.Funding)
		assert.Nil(t, b.CreditID)
	}
}

func TestCreate_WeeklyQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, quota(3))

	var booked []*Booking
	for day := 3; day <= 5; day++ {
		b, err := env.svc.Create(ctx, customer, book(groupType, time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.Equal(t, FundingSubscription, b.Funding)
		booked = append(booked, b)
	}

	friday := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	_, err := env.svc.Create(ctx, customer, book(groupType, friday))
	assert.Equal(t, DenyQuotaExhausted, denialCode(t, err))

	// The following week has a fresh quota.
	nextMonday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	b, err := env.svc.Create(ctx, customer, book(groupType, nextMonday))
	require.NoError(t, err)
	assert.Equal(t, FundingSubscription, b.Funding)

	env.giveCredits(customer.UserID, 1)
	b, err = env.svc.Create(ctx, customer, book(groupType, friday))
	require.NoError(t, err)
	assert.Equal(t, FundingCredit, b.Funding)

	// A cancelled subscription booking no longer counts toward the quota.
	_, err = env.svc.Cancel(ctx, customer, booked[2].ID, "")
	require.NoError(t, err)
	b, err = env.svc.Create(ctx, customer, book(groupType, time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, FundingSubscription, b.Funding)
}

func TestCreate_PastDueSubscriptionGrantsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.store.subs[customer.UserID] = subscription.Subscription{CustomerID: customer.UserID, Status: subscription.StatusPastDue}

	_, err := env.svc.Create(context.Background(), customer, book(groupType, wednesdayAt(10)))
	assert.Equal(t, DenyNoPlan, denialCode(t, err))
}

func TestCreate_StaffOnBehalfOfCustomer(t *testing.T) {
	env := newTestEnv(t)
	req := book(privateType, wednesdayAt(10))
	id := customer.UserID
	req.CustomerID = &id

	b, err := env.svc.Create(context.Background(), staff, req)
	require.NoError(t, err)
	assert.Equal(t, customer.UserID, b.CustomerID)
	assert.Equal(t, FundingStaff, b.Funding)
}

func TestCreate_StaffStillBoundByAvailability(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), staff, book(privateType, wednesdayAt(23)))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreate_ConcurrentRequestsNeverOverbook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const customers = 10
	for i := 0; i < customers; i++ {
		env.giveCredits(100+i, 1)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		full    int
	)
	for i := 0; i < customers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := env.svc.Create(ctx, auth.Actor{UserID: id, Role: auth.RoleCustomer}, book(privateType, wednesdayAt(10)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(100 + i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, customers-1, full)

	used := 0
	for _, c := range env.store.credits {
		used += c.UsedSessions
	}
	assert.Equal(t, 1, used)
}

func TestCreate_LastCreditRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.giveCredits(customer.UserID, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, hour := range []int{10, 14} {
		wg.Add(1)
		go func(i, hour int) {
			defer wg.Done()
			_, results[i] = env.svc.Create(ctx, customer, book(groupType, wednesdayAt(hour)))
		}(i, hour)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, DenyNoPlan, denialCode(t, err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.store.creditByID(1).UsedSessions)
}

func TestCreate_SideEffectsAfterCommit(t *testing.T) {
	store := newMemStore()
	queue := new(MockSyncQueue)
	publisher := new(MockPublisher)
	types := fakeSessionTypes{groupType: {ID: groupType, DurationMinutes: 60, Capacity: 4, Active: true}}
	svc := NewService(store, types, &fakeSchedules{policy: schedule.DefaultPolicy()}, queue, publisher).(*service)
	svc.now = func() time.Time { return testNow }

	queue.On("Enqueue", mock.Anything, 1).Return(errors.New("redis unavailable")).Once()
	publisher.On("Publish", mock.Anything, events.BookingConfirmed, mock.MatchedBy(func(e events.BookingEvent) bool {
		return e.BookingID == 1 && e.Funding == string(FundingStaff) && e.ActorID == staff.UserID
	})).Return(nil).Once()

	b, err := svc.Create(context.Background(), staff, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)
	assert.Equal(t, 1, b.ID)

	queue.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreate_RejectedBookingHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), customer, book(groupType, wednesdayAt(10)))
	require.Error(t, err)

	env.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	env.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("credit is forfeited by default", func(t *testing.T) {
		env := newTestEnv(t)
		env.giveCredits(customer.UserID, 5)
		b, err := env.svc.Create(ctx, customer, book(privateType, wednesdayAt(10)))
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, customer, b.ID, "  sick  ")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.False(t, cancelled.CreditRestored)
		require.NotNil(t, cancelled.CancellationReason)
		assert.Equal(t, "sick", *cancelled.CancellationReason)
		assert.Equal(t, customer.UserID, *cancelled.CancelledBy)
		assert.Equal(t, 1, env.store.creditByID(1).UsedSessions)

		// The slot is free again.
		other := auth.Actor{UserID: otherCustomerID, Role: auth.RoleCustomer}
		env.giveCredits(other.UserID, 1)
		_, err = env.svc.Create(ctx, other, book(privateType, wednesdayAt(10)))
		assert.NoError(t, err)
	})

	t.Run("credit is restored when the policy refunds", func(t *testing.T) {
		env := newTestEnv(t)
		env.schedules.policy.CreditRefundOnCancel = true
		env.giveCredits(customer.UserID, 5)
		b, err := env.svc.Create(ctx, customer, book(privateType, wednesdayAt(10)))
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, customer, b.ID, "")
		require.NoError(t, err)
		assert.True(t, cancelled.CreditRestored)
		assert.Nil(t, cancelled.CancellationReason)
		assert.Equal(t, 0, env.store.creditByID(1).UsedSessions)

		_, err = env.svc.Cancel(ctx, customer, b.ID, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, 0, env.store.creditByID(1).UsedSessions)
	})

	t.Run("customer inside the notice period", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(customer.UserID, nil)
		start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
		b, err := env.svc.Create(ctx, customer, book(privateType, start))
		require.NoError(t, err)

		env.setNow(start.Add(-30 * time.Minute))
		_, err = env.svc.Cancel(ctx, customer, b.ID, "")
		assert.ErrorIs(t, err, ErrCancellationWindow)

		cancelled, err := env.svc.Cancel(ctx, staff, b.ID, "coach unavailable")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.Equal(t, staff.UserID, *cancelled.CancelledBy)
	})

	t.Run("someone else's booking looks missing", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(customer.UserID, nil)
		b, err := env.svc.Create(ctx, customer, book(privateType, wednesdayAt(10)))
		require.NoError(t, err)

		_, err = env.svc.Cancel(ctx, stranger, b.ID, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sync status settles without a calendar", func(t *testing.T) {
		env := newTestEnv(t)
		env.subscribe(customer.UserID, nil)
		neverSynced, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
		require.NoError(t, err)
		mirrored, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(12)))
		require.NoError(t, err)

		eventID := "evt-9"
		env.store.setSync(neverSynced.ID, nil, SyncFailed)
		env.store.setSync(mirrored.ID, &eventID, SyncSynced)

		cancelled, err := env.svc.Cancel(ctx, customer, neverSynced.ID, "")
		require.NoError(t, err)
		assert.Equal(t, SyncNotApplicable, cancelled.CalendarSyncStatus)

		// The event still has to be removed, so the worker owns this one.
		cancelled, err = env.svc.Cancel(ctx, customer, mirrored.ID, "")
		require.NoError(t, err)
		assert.Equal(t, SyncSynced, cancelled.CalendarSyncStatus)
	})

	t.Run("unknown booking", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Cancel(ctx, staff, 404, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetAndList_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)
	env.subscribe(stranger.UserID, nil)

	mine, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, stranger, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)

	got, err := env.svc.Get(ctx, customer, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = env.svc.Get(ctx, stranger, mine.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Get(ctx, staff, mine.ID)
	assert.NoError(t, err)

	list, err := env.svc.List(ctx, customer, Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, customer.UserID, list[0].CustomerID)

	all, err := env.svc.List(ctx, staff, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	from := wednesdayAt(12)
	to := wednesdayAt(10)
	_, err = env.svc.List(ctx, staff, Filter{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAttendance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)

	b, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)

	_, err = env.svc.MarkCompleted(ctx, customer, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.MarkCompleted(ctx, staff, b.ID)
	assert.ErrorIs(t, err, ErrSessionNotStarted)

	env.setNow(wednesdayAt(11))
	done, err := env.svc.MarkCompleted(ctx, staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	_, err = env.svc.MarkNoShow(ctx, staff, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Completed bookings no longer hold capacity.
	n, err := memTx{env.store}.CountOverlapping(ctx, groupType, done.Interval(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)
	env.subscribe(stranger.UserID, nil)

	mine, err := env.svc.Create(ctx, customer, book(privateType, wednesdayAt(10)))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, stranger, book(privateType, wednesdayAt(14)))
	require.NoError(t, err)

	_, err = env.svc.Reschedule(ctx, customer, mine.ID, RescheduleRequest{StartTime: wednesdayAt(12)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Reschedule(ctx, staff, mine.ID, RescheduleRequest{StartTime: wednesdayAt(14)})
	assert.ErrorIs(t, err, ErrSlotFull)

	// Moving within its own current slot does not collide with itself.
	moved, err := env.svc.Reschedule(ctx, staff, mine.ID, RescheduleRequest{StartTime: wednesdayAt(10).Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, wednesdayAt(11).Add(30*time.Minute), moved.EndTime)

	end := wednesdayAt(12)
	_, err = env.svc.Reschedule(ctx, staff, mine.ID, RescheduleRequest{StartTime: wednesdayAt(12), EndTime: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Reschedule(ctx, staff, mine.ID, RescheduleRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subscribe(customer.UserID, nil)
	env.subscribe(stranger.UserID, nil)

	_, err := env.svc.Create(ctx, customer, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, stranger, book(groupType, wednesdayAt(10)))
	require.NoError(t, err)

	slots, err := env.svc.Availability(ctx, groupType, "2026-03-04", "2026-03-04")
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Equal(t, wednesdayAt(6), slots[0].Start)
	assert.Equal(t, wednesdayAt(21), slots[15].Start)

	for _, s := range slots {
		if s.Start.Equal(wednesdayAt(10)) {
			assert.Equal(t, 2, s.Booked)
			assert.Equal(t, 2, s.Remaining)
		} else {
			assert.Equal(t, 4, s.Remaining)
		}
	}

	t.Run("closed date", func(t *testing.T) {
		env.schedules.exceptions = []schedule.Exception{{Date: "2026-03-05", IsAvailable: false}}
		defer func() { env.schedules.exceptions = nil }()
		slots, err := env.svc.Availability(ctx, groupType, "2026-03-05", "2026-03-05")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("bad dates", func(t *testing.T) {
		_, err := env.svc.Availability(ctx, groupType, "March 4", "2026-03-04")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("inactive session type", func(t *testing.T) {
		_, err := env.svc.Availability(ctx, retiredType, "2026-03-04", "2026-03-04")
		assert.ErrorIs(t, err, ErrUnknownSessionType)
	})
}
