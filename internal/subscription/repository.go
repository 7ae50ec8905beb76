package subscription

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("subscription not found")

const subscriptionColumns = `id, customer_id, tier, weekly_quota, status, current_period_start, current_period_end,
	external_id, external_customer_id, last_event_at, created_at, updated_at`

// PostgresRepository works against a pool or an open transaction.
type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetGrantingForCustomer(ctx context.Context, customerID int) (*Subscription, error) {
	return r.getOne(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE customer_id = $1 AND status = 'active'
		ORDER BY last_event_at DESC
		LIMIT 1`, customerID)
}

func (r *PostgresRepository) GetCurrentForCustomer(ctx context.Context, customerID int) (*Subscription, error) {
	return r.getOne(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE customer_id = $1 AND status <> 'cancelled'
		ORDER BY (status IN ('active', 'past_due')) DESC, last_event_at DESC
		LIMIT 1`, customerID)
}

func (r *PostgresRepository) Upsert(ctx context.Context, u Upsert) (bool, error) {
	var id int
	err := sqlx.GetContext(ctx, r.db, &id, `
		INSERT INTO subscriptions (customer_id, tier, weekly_quota, status, current_period_start,
			current_period_end, external_id, external_customer_id, last_event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    weekly_quota = EXCLUDED.weekly_quota,
		    status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    external_customer_id = EXCLUDED.external_customer_id,
		    last_event_at = EXCLUDED.last_event_at,
		    updated_at = NOW()
		WHERE subscriptions.last_event_at <= EXCLUDED.last_event_at
		RETURNING id`,
		u.CustomerID, u.Tier, u.WeeklyQuota, u.Status, u.PeriodStart,
		u.PeriodEnd, u.ExternalID, u.ExternalCustomerID, u.EventAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...interface{}) (*Subscription, error) {
	var sub Subscription
	err := sqlx.GetContext(ctx, r.db, &sub, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
