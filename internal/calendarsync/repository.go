package calendarsync

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sessionbook/internal/booking"
	"sessionbook/internal/db"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotConnected    = errors.New("no calendar integration configured")
	ErrBookingNotFound = errors.New("booking not found")
)

const integrationColumns = `id, provider, calendar_id, access_token_enc, refresh_token_enc, token_expiry,
	last_synced_at, last_error, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetIntegration(ctx context.Context) (*Integration, error) {
	var in Integration
	err := r.db.GetContext(ctx, &in, `
		SELECT `+integrationColumns+`
		FROM calendar_integrations
		ORDER BY id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *PostgresRepository) SaveIntegration(ctx context.Context, in *Integration) error {
	return db.InSerializableTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_integrations`); err != nil {
			return err
		}
		return tx.GetContext(ctx, in, `
			INSERT INTO calendar_integrations (provider, calendar_id, access_token_enc, refresh_token_enc, token_expiry)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+integrationColumns,
			in.Provider, in.CalendarID, in.AccessTokenEnc, in.RefreshTokenEnc, in.TokenExpiry)
	})
}

func (r *PostgresRepository) UpdateTokens(ctx context.Context, id int, accessEnc, refreshEnc []byte, expiry *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calendar_integrations
		SET access_token_enc = $2, refresh_token_enc = $3, token_expiry = $4, updated_at = NOW()
		WHERE id = $1`, id, accessEnc, refreshEnc, expiry)
	return err
}

func (r *PostgresRepository) RecordSync(ctx context.Context, id int, at time.Time, lastErr *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calendar_integrations
		SET last_synced_at = CASE WHEN $3::text IS NULL THEN $2 ELSE last_synced_at END,
		    last_error = $3, updated_at = NOW()
		WHERE id = $1`, id, at, lastErr)
	return err
}

func (r *PostgresRepository) DeleteIntegration(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calendar_integrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotConnected
	}
	return nil
}

func (r *PostgresRepository) LoadBooking(ctx context.Context, id int) (*SyncBooking, error) {
	var b SyncBooking
	err := r.db.GetContext(ctx, &b, `
		SELECT b.id, b.customer_id, b.athlete_id, st.name AS session_type_name,
		       b.start_time, b.end_time, b.status, b.notes, b.calendar_event_id
		FROM bookings b
		JOIN session_types st ON st.id = b.session_type_id
		WHERE b.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) SetSyncState(ctx context.Context, bookingID int, eventID *string, status booking.SyncStatus, syncErr *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET calendar_event_id = $2, calendar_sync_status = $3, calendar_sync_error = $4, updated_at = NOW()
		WHERE id = $1`, bookingID, eventID, string(status), syncErr)
	return err
}

func (r *PostgresRepository) FutureUnsynced(ctx context.Context, after time.Time) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id
		FROM bookings
		WHERE start_time > $1
		  AND status IN ('pending', 'confirmed')
		  AND calendar_sync_status <> 'synced'
		ORDER BY start_time`, after)
	return ids, err
}
