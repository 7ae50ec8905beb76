package payment

import (
	"context"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/db"
	"sessionbook/internal/subscription"

	"github.com/jmoiron/sqlx"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.InSerializableTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) RecordEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO payment_events (event_id, type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`, eventID, eventType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) MarkInvoicePaid(ctx context.Context, invoiceID int, checkoutID string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'paid', paid_at = $3, external_checkout_id = $2
		WHERE id = $1 AND status = 'pending'`, invoiceID, checkoutID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) Subscriptions() subscription.Repository {
	return subscription.NewRepository(t.tx)
}

func (t *pgTx) Credits() credit.Repository {
	return credit.NewRepository(t.tx)
}
