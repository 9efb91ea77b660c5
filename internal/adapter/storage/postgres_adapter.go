package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	k          TEXT        PRIMARY KEY,
	v          JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresAdapter struct {
	pool *pgxpool.Pool
	key  string
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool, key: OrdersKey}
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	var data string
	err := p.pool.QueryRow(ctx, `SELECT v::text FROM kv_store WHERE k = $1`, p.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return DecodeOrders([]byte(data))
}

func (p *PostgresAdapter) SaveOrders(ctx context.Context, orders []domain.Order) error {
	data, err := EncodeOrders(orders)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO kv_store (k, v) VALUES ($1, ($2::text)::jsonb)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = now()`,
		p.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) DeleteOrders(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_store WHERE k = $1`, p.key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
