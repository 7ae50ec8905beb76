package credit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNoCredits = errors.New("no session credits available")

const creditColumns = `id, customer_id, total_sessions, used_sessions, expires_at, external_ref, created_at`

// PostgresRepository works against a pool or an open transaction.
type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListForCustomer(ctx context.Context, customerID int) ([]Credit, error) {
	credits := []Credit{}
	err := sqlx.SelectContext(ctx, r.db, &credits, `
		SELECT `+creditColumns+`
		FROM session_credits
		WHERE customer_id = $1
		ORDER BY created_at, id`, customerID)
	return credits, err
}

func (r *PostgresRepository) Available(ctx context.Context, customerID int, at time.Time) (int, error) {
	var available int
	err := sqlx.GetContext(ctx, r.db, &available, `
		SELECT COALESCE(SUM(GREATEST(total_sessions - used_sessions, 0)), 0)
		FROM session_credits
		WHERE customer_id = $1 AND (expires_at IS NULL OR expires_at > $2)`, customerID, at)
	return available, err
}

func (r *PostgresRepository) ConsumeOldest(ctx context.Context, customerID int, at time.Time) (int, error) {
	var id int
	err := sqlx.GetContext(ctx, r.db, &id, `
		UPDATE session_credits
		SET used_sessions = used_sessions + 1
		WHERE id = (
			SELECT id FROM session_credits
			WHERE customer_id = $1
			  AND used_sessions < total_sessions
			  AND (expires_at IS NULL OR expires_at > $2)
			ORDER BY created_at, id
			LIMIT 1
		)
		AND used_sessions < total_sessions
		RETURNING id`, customerID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoCredits
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) Restore(ctx context.Context, creditID int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE session_credits
		SET used_sessions = used_sessions - 1
		WHERE id = $1 AND used_sessions > 0`, creditID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCredits
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, g Grant) (*Credit, bool, error) {
	var c Credit
	err := sqlx.GetContext(ctx, r.db, &c, `
		INSERT INTO session_credits (customer_id, total_sessions, expires_at, external_ref)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_ref) DO NOTHING
		RETURNING `+creditColumns, g.CustomerID, g.Sessions, g.ExpiresAt, g.ExternalRef)
	if err == nil {
		return &c, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || g.ExternalRef == nil {
		return nil, false, err
	}

	err = sqlx.GetContext(ctx, r.db, &c, `
		SELECT `+creditColumns+` FROM session_credits WHERE external_ref = $1`, *g.ExternalRef)
	if err != nil {
		return nil, false, err
	}
	return &c, false, nil
}
