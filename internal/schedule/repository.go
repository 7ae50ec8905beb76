package schedule

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const (
	templateColumns  = `id, day_of_week, start_time, end_time, created_at`
	exceptionColumns = `id, to_char(date, 'YYYY-MM-DD') AS date, is_available, start_time, end_time, reason, created_at`
	policyColumns    = `cancellation_notice_hours, booking_window_days, min_booking_notice_hours, timezone, credit_refund_on_cancel, updated_at`
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM availability_templates ORDER BY day_of_week, start_time`

	templates := []Template{}
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *PostgresRepository) CreateTemplate(ctx context.Context, dayOfWeek int, start, end Clock) (*Template, error) {
	query := `
		INSERT INTO availability_templates (day_of_week, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING ` + templateColumns

	var t Template
	if err := r.db.GetContext(ctx, &t, query, dayOfWeek, start, end); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) DeleteTemplate(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM availability_templates WHERE id = $1`, id)
}

func (r *PostgresRepository) ListExceptions(ctx context.Context, from, to string) ([]Exception, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM availability_exceptions
		WHERE date BETWEEN $1 AND $2
		ORDER BY date`

	exceptions := []Exception{}
	if err := r.db.SelectContext(ctx, &exceptions, query, from, to); err != nil {
		return nil, err
	}
	return exceptions, nil
}

func (r *PostgresRepository) UpsertException(ctx context.Context, e Exception) (*Exception, error) {
	query := `
		INSERT INTO availability_exceptions (date, is_available, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE
		SET is_available = EXCLUDED.is_available,
		    start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    reason = EXCLUDED.reason
		RETURNING ` + exceptionColumns

	var out Exception
	if err := r.db.GetContext(ctx, &out, query, e.Date, e.IsAvailable, e.StartTime, e.EndTime, e.Reason); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostgresRepository) DeleteException(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
}

func (r *PostgresRepository) GetPolicy(ctx context.Context) (*Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM scheduling_policy WHERE id = 1`

	var p Policy
	err := r.db.GetContext(ctx, &p, query)
	if errors.Is(err, sql.ErrNoRows) {
		def := DefaultPolicy()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) UpdatePolicy(ctx context.Context, p Policy) (*Policy, error) {
	query := `
		INSERT INTO scheduling_policy (id, cancellation_notice_hours, booking_window_days,
			min_booking_notice_hours, timezone, credit_refund_on_cancel, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET cancellation_notice_hours = EXCLUDED.cancellation_notice_hours,
		    booking_window_days = EXCLUDED.booking_window_days,
		    min_booking_notice_hours = EXCLUDED.min_booking_notice_hours,
		    timezone = EXCLUDED.timezone,
		    credit_refund_on_cancel = EXCLUDED.credit_refund_on_cancel,
		    updated_at = NOW()
		RETURNING ` + policyColumns

	var out Policy
	err := r.db.GetContext(ctx, &out, query,
		p.CancellationNoticeHours, p.BookingWindowDays, p.MinBookingNoticeHours, p.Timezone, p.CreditRefundOnCancel)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PostgresRepository) deleteByID(ctx context.Context, query string, id int) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
