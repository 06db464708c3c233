package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"stock-dashboard/models"
	"stock-dashboard/observability"
)

// SQLiteMirror copies store writes into a local SQLite file
type SQLiteMirror struct {
	db      *sql.DB
	mu      sync.Mutex
	metrics *observability.Metrics
}

// NewSQLiteMirror opens (or creates) the database and runs migrations
func NewSQLiteMirror(path string, metrics *observability.Metrics) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	m := &SQLiteMirror{db: db, metrics: metrics}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	observability.Info("sqlite mirror opened", "path", path)
	return m, nil
}

func (m *SQLiteMirror) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			username   TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			shares     TEXT NOT NULL,
			avg_price  TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (username, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id          TEXT PRIMARY KEY,
			username    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    TEXT NOT NULL,
			price       TEXT NOT NULL,
			total_value TEXT NOT NULL,
			status      TEXT NOT NULL,
			executed_at INTEGER,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_created ON trades(username, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *SQLiteMirror) Name() string { return "sqlite" }

func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}

func (m *SQLiteMirror) MirrorUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.metrics.NewTimer().ObserveDB("sqlite", "users")

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET email = excluded.email, password_hash = excluded.password_hash`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("mirror user: %w", err)
	}
	return nil
}

func (m *SQLiteMirror) MirrorHolding(ctx context.Context, username string, h models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.metrics.NewTimer().ObserveDB("sqlite", "holdings")

	if h.Shares.IsZero() {
		if _, err := m.db.ExecContext(ctx, `DELETE FROM holdings WHERE username = ? AND symbol = ?`, username, h.Symbol); err != nil {
			return fmt.Errorf("delete holding: %w", err)
		}
		return nil
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO holdings (username, symbol, shares, avg_price, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username, symbol) DO UPDATE
		SET shares = excluded.shares, avg_price = excluded.avg_price, updated_at = excluded.updated_at`,
		username, h.Symbol, h.Shares.String(), h.AvgPrice.String(), h.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("mirror holding: %w", err)
	}
	return nil
}

func (m *SQLiteMirror) MirrorTrade(ctx context.Context, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.metrics.NewTimer().ObserveDB("sqlite", "trades")

	var executedAt sql.NullInt64
	if trade.ExecutedAt != nil {
		executedAt = sql.NullInt64{Int64: trade.ExecutedAt.Unix(), Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO trades (id, username, symbol, side, quantity, price, total_value, status, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		trade.ID.String(), trade.Username, trade.Symbol, string(trade.Side),
		trade.Quantity.String(), trade.Price.String(), trade.TotalValue.String(),
		string(trade.Status), executedAt, trade.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("mirror trade: %w", err)
	}
	return nil
}

// Holdings reads the mirrored portfolio for username, ordered by symbol
func (m *SQLiteMirror) Holdings(ctx context.Context, username string) ([]models.Holding, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT symbol, shares, avg_price, updated_at FROM holdings
		WHERE username = ? ORDER BY symbol`, username)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var out []models.Holding
	for rows.Next() {
		var (
			h                models.Holding
			shares, avgPrice string
			updatedAt        int64
		)
		if err := rows.Scan(&h.Symbol, &shares, &avgPrice, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		if h.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("parse shares: %w", err)
		}
		if h.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
			return nil, fmt.Errorf("parse avg price: %w", err)
		}
		h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListTrades reads the mirrored history for username, newest first
func (m *SQLiteMirror) ListTrades(ctx context.Context, username string) ([]models.Trade, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, symbol, side, quantity, price, total_value, status, executed_at, created_at
		FROM trades WHERE username = ? ORDER BY created_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t                 models.Trade
			id, side, status  string
			qty, price, total string
			executedAt        sql.NullInt64
			createdAt         int64
		)
		if err := rows.Scan(&id, &t.Symbol, &side, &qty, &price, &total, &status, &executedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse trade id: %w", err)
		}
		t.Username = username
		t.Side = models.TradeSide(side)
		t.Status = models.TradeStatus(status)
		t.Quantity, _ = decimal.NewFromString(qty)
		t.Price, _ = decimal.NewFromString(price)
		t.TotalValue, _ = decimal.NewFromString(total)
		if executedAt.Valid {
			at := time.Unix(executedAt.Int64, 0).UTC()
			t.ExecutedAt = &at
		}
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
