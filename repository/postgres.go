package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stock-dashboard/models"
	"stock-dashboard/observability"
)

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	email         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS holdings (
	username   TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	shares     NUMERIC NOT NULL,
	avg_price  NUMERIC NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (username, symbol)
);
CREATE TABLE IF NOT EXISTS trades (
	id          UUID PRIMARY KEY,
	username    TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	quantity    NUMERIC NOT NULL,
	price       NUMERIC NOT NULL,
	total_value NUMERIC NOT NULL,
	status      TEXT NOT NULL,
	executed_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_user_created ON trades (username, created_at DESC);
`

// PostgresMirror copies store writes into PostgreSQL
type PostgresMirror struct {
	pool    *pgxpool.Pool
	db      DBTX
	metrics *observability.Metrics
}

// NewPostgresMirror connects, pings and creates the schema
func NewPostgresMirror(ctx context.Context, connString string, metrics *observability.Metrics) (*PostgresMirror, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}

	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &PostgresMirror{pool: pool, db: pool, metrics: metrics}, nil
}

func (m *PostgresMirror) Name() string { return "postgres" }

// Close closes the database connection pool
func (m *PostgresMirror) Close() error {
	if m.pool != nil {
		m.pool.Close()
	}
	return nil
}

// Health checks if the database connection is healthy
func (m *PostgresMirror) Health(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

func (m *PostgresMirror) MirrorUser(ctx context.Context, user *models.User) error {
	defer m.metrics.NewTimer().ObserveDB("postgres", "users")

	_, err := m.db.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash
	`, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to mirror user: %w", err)
	}
	return nil
}

func (m *PostgresMirror) MirrorHolding(ctx context.Context, username string, h models.Holding) error {
	defer m.metrics.NewTimer().ObserveDB("postgres", "holdings")

	if h.Shares.IsZero() {
		_, err := m.db.Exec(ctx, `DELETE FROM holdings WHERE username = $1 AND symbol = $2`, username, h.Symbol)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	_, err := m.db.Exec(ctx, `
		INSERT INTO holdings (username, symbol, shares, avg_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username, symbol) DO UPDATE
		SET shares = EXCLUDED.shares, avg_price = EXCLUDED.avg_price, updated_at = EXCLUDED.updated_at
	`, username, h.Symbol, h.Shares, h.AvgPrice, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to mirror holding: %w", err)
	}
	return nil
}

func (m *PostgresMirror) MirrorTrade(ctx context.Context, trade *models.Trade) error {
	defer m.metrics.NewTimer().ObserveDB("postgres", "trades")

	_, err := m.db.Exec(ctx, `
		INSERT INTO trades (id, username, symbol, side, quantity, price, total_value, status, executed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, trade.ID, trade.Username, trade.Symbol, trade.Side, trade.Quantity, trade.Price, trade.TotalValue, trade.Status, trade.ExecutedAt, trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to mirror trade: %w", err)
	}
	return nil
}

// ListTrades reads the mirrored history for username, newest first
func (m *PostgresMirror) ListTrades(ctx context.Context, username string, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := m.db.Query(ctx, `
		SELECT id, username, symbol, side, quantity, price, total_value, status, executed_at, created_at
		FROM trades
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		err := rows.Scan(&t.ID, &t.Username, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.TotalValue, &t.Status, &t.ExecutedAt, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

