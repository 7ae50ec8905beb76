package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/db"
	"sessionbook/internal/subscription"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, customer_id, athlete_id, session_type_id, start_time, end_time, status, notes,
	funding, credit_id, credit_restored, cancelled_at, cancelled_by, cancellation_reason,
	calendar_event_id, calendar_sync_status, calendar_sync_error, created_at, updated_at`

const occupyingStatuses = `status IN ('pending', 'confirmed')`

type PostgresStore struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.InSerializableTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&pgTx{
			tx:            tx,
			subscriptions: subscription.NewRepository(tx),
			credits:       credit.NewRepository(tx),
		})
	})
}

func (s *PostgresStore) GetByID(ctx context.Context, id int) (*Booking, error) {
	return getBooking(ctx, s.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if f.From != nil {
		add("start_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("start_time < $%d", *f.To)
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, max(f.Offset, 0))
	query += fmt.Sprintf(` ORDER BY start_time ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	bookings := []Booking{}
	if err := s.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *PostgresStore) Occupying(ctx context.Context, sessionTypeID int, from, to time.Time) ([]Interval, error) {
	rows := []struct {
		Start time.Time `db:"start_time"`
		End   time.Time `db:"end_time"`
	}{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT start_time, end_time
		FROM bookings
		WHERE session_type_id = $1
		  AND `+occupyingStatuses+`
		  AND start_time < $3
		  AND end_time > $2`, sessionTypeID, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]Interval, 0, len(rows))
	for _, r := range rows {
		out = append(out, Interval{Start: r.Start, End: r.End})
	}
	return out, nil
}

type pgTx struct {
	tx            *sqlx.Tx
	subscriptions *subscription.PostgresRepository
	credits       *credit.PostgresRepository
}

func (t *pgTx) GetForUpdate(ctx context.Context, id int) (*Booking, error) {
	return getBooking(ctx, t.tx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) CountOverlapping(ctx context.Context, sessionTypeID int, iv Interval, excludeID int) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, `
		SELECT COUNT(*)
		FROM bookings
		WHERE session_type_id = $1
		  AND `+occupyingStatuses+`
		  AND start_time < $3
		  AND end_time > $2
		  AND id <> $4`, sessionTypeID, iv.Start, iv.End, excludeID)
	return n, err
}

func (t *pgTx) CustomerHasOverlapping(ctx context.Context, customerID int, athleteID *int, iv Interval) (bool, error) {
	return db.Exists(ctx, t.tx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE customer_id = $1
			  AND athlete_id IS NOT DISTINCT FROM $2
			  AND `+occupyingStatuses+`
			  AND start_time < $4
			  AND end_time > $3
		)`, customerID, athleteID, iv.Start, iv.End)
}

func (t *pgTx) CountFundedBySubscription(ctx context.Context, customerID int, from, to time.Time) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, `
		SELECT COUNT(*)
		FROM bookings
		WHERE customer_id = $1
		  AND funding = 'subscription'
		  AND status <> 'cancelled'
		  AND start_time >= $2
		  AND start_time < $3`, customerID, from, to)
	return n, err
}

func (t *pgTx) Insert(ctx context.Context, b *Booking) error {
	return t.tx.GetContext(ctx, b, `
		INSERT INTO bookings (customer_id, athlete_id, session_type_id, start_time, end_time,
			status, notes, funding, credit_id, calendar_sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+bookingColumns,
		b.CustomerID, b.AthleteID, b.SessionTypeID, b.StartTime, b.EndTime,
		b.Status, b.Notes, b.Funding, b.CreditID, SyncNotApplicable)
}

func (t *pgTx) MarkCancelled(ctx context.Context, id, actorID int, reason *string, at time.Time, creditRestored bool) (*Booking, error) {
	return getBooking(ctx, t.tx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_at = $2,
		    cancelled_by = $3,
		    cancellation_reason = $4,
		    credit_restored = credit_restored OR $5,
		    calendar_sync_status = CASE WHEN calendar_event_id IS NULL
		        THEN 'not_applicable' ELSE calendar_sync_status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns, id, at, actorID, reason, creditRestored)
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int, to Status) (*Booking, error) {
	return getBooking(ctx, t.tx, `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns, id, to)
}

func (t *pgTx) UpdateTimes(ctx context.Context, id int, iv Interval) (*Booking, error) {
	return getBooking(ctx, t.tx, `
		UPDATE bookings
		SET start_time = $2, end_time = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns, id, iv.Start, iv.End)
}

func (t *pgTx) GrantingSubscription(ctx context.Context, customerID int) (*subscription.Subscription, error) {
	return t.subscriptions.GetGrantingForCustomer(ctx, customerID)
}

func (t *pgTx) ConsumeCredit(ctx context.Context, customerID int, at time.Time) (int, error) {
	return t.credits.ConsumeOldest(ctx, customerID, at)
}

func (t *pgTx) RestoreCredit(ctx context.Context, creditID int) error {
	return t.credits.Restore(ctx, creditID)
}

func getBooking(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*Booking, error) {
	var b Booking
	err := sqlx.GetContext(ctx, q, &b, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
