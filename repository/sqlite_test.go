package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"stock-dashboard/config"
	"stock-dashboard/models"
	"stock-dashboard/observability"
)

func newTestSQLite(t *testing.T) *SQLiteMirror {
	t.Helper()
	m, err := NewSQLiteMirror(filepath.Join(t.TempDir(), "dashboard.db"), observability.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("NewSQLiteMirror() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSQLiteMirror_Holdings(t *testing.T) {
	ctx := context.Background()
	m := newTestSQLite(t)

	if err := m.MirrorHolding(ctx, "alice", holding("MSFT", 5, 300.5)); err != nil {
		t.Fatalf("MirrorHolding() error = %v", err)
	}
	_ = m.MirrorHolding(ctx, "alice", holding("AAPL", 10, 150))
	_ = m.MirrorHolding(ctx, "alice", holding("AAPL", 12, 155))

	got, err := m.Holdings(ctx, "alice")
	if err != nil {
		t.Fatalf("Holdings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(got))
	}
	if got[0].Symbol != "AAPL" || !got[0].Shares.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected updated AAPL, got %+v", got[0])
	}
	if !got[1].AvgPrice.Equal(decimal.RequireFromString("300.5")) {
		t.Errorf("expected exact decimal round trip, got %s", got[1].AvgPrice)
	}

	_ = m.MirrorHolding(ctx, "alice", models.Holding{Symbol: "AAPL", UpdatedAt: time.Now()})
	got, _ = m.Holdings(ctx, "alice")
	if len(got) != 1 || got[0].Symbol != "MSFT" {
		t.Errorf("zero shares should delete the row, got %+v", got)
	}
}

func TestSQLiteMirror_TradesAndUsers(t *testing.T) {
	ctx := context.Background()
	m := newTestSQLite(t)

	if err := m.MirrorUser(ctx, newUser("alice")); err != nil {
		t.Fatalf("MirrorUser() error = %v", err)
	}
	if err := m.MirrorUser(ctx, newUser("alice")); err != nil {
		t.Fatalf("MirrorUser() should upsert: %v", err)
	}

	older := models.NewTrade("alice", "AAPL", models.TradeSideBuy, decimal.NewFromInt(1), decimal.NewFromInt(100))
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewTrade("alice", "MSFT", models.TradeSideSell, decimal.NewFromInt(2), decimal.NewFromInt(200))
	newer.MarkExecuted()

	for _, tr := range []*models.Trade{older, newer, newer} {
		if err := m.MirrorTrade(ctx, tr); err != nil {
			t.Fatalf("MirrorTrade() error = %v", err)
		}
	}

	trades, err := m.ListTrades(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("duplicate trade ids should be ignored, got %d trades", len(trades))
	}
	if trades[0].ID != newer.ID || trades[0].Status != models.TradeStatusExecuted || trades[0].ExecutedAt == nil {
		t.Errorf("unexpected newest trade %+v", trades[0])
	}
	if !trades[0].TotalValue.Equal(decimal.NewFromInt(400)) {
		t.Errorf("unexpected total %s", trades[0].TotalValue)
	}
	if trades[1].ExecutedAt != nil {
		t.Error("pending trade should have no execution time")
	}
}

func TestSQLiteMirror_BehindMirroredStore(t *testing.T) {
	ctx := context.Background()
	m := newTestSQLite(t)
	s := NewMirroredStore(NewMemoryStore(), observability.NewMetrics(prometheus.NewRegistry()), m)

	if err := Seed(ctx, s, config.DefaultFileConfig().Users, plainHash); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	trades, err := m.ListTrades(ctx, "admin")
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(trades) != 3 {
		t.Errorf("expected seeded trades mirrored, got %d", len(trades))
	}
	holdings, _ := m.Holdings(ctx, "user1")
	if len(holdings) != 1 || holdings[0].Symbol != "GOOGL" {
		t.Errorf("unexpected mirrored holdings %+v", holdings)
	}
}
