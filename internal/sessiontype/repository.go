package sessiontype

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const sessionTypeColumns = `id, name, description, duration_minutes, capacity, price, active, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*SessionType, error) {
	query := `
		INSERT INTO session_types (name, description, duration_minutes, capacity, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionTypeColumns

	var st SessionType
	err := r.db.GetContext(ctx, &st, query, req.Name, req.Description, req.DurationMinutes, req.Capacity, req.Price)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*SessionType, error) {
	query := `SELECT ` + sessionTypeColumns + ` FROM session_types WHERE id = $1`

	var st SessionType
	err := r.db.GetContext(ctx, &st, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *PostgresRepository) List(ctx context.Context, activeOnly bool) ([]SessionType, error) {
	query := `SELECT ` + sessionTypeColumns + ` FROM session_types`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC, id ASC`

	types := []SessionType{}
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, err
	}
	return types, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, req UpdateRequest) (*SessionType, error) {
	query := `
		UPDATE session_types
		SET description = COALESCE($2, description),
		    price = COALESCE($3, price),
		    active = COALESCE($4, active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionTypeColumns

	var st SessionType
	err := r.db.GetContext(ctx, &st, query, id, req.Description, req.Price, req.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
