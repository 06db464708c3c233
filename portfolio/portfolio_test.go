package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"stock-dashboard/models"
	"stock-dashboard/observability"
	"stock-dashboard/repository"
)

// mockQuotes is a test double for QuoteSource
type mockQuotes struct {
	prices map[string]float64
	err    error
}

func (m *mockQuotes) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	d := decimal.NewFromFloat(p)
	return models.NewQuote(symbol, d, d, 0, time.Now()), nil
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newTestService(t *testing.T, quotes QuoteSource) (*Service, repository.Store, *observability.Metrics) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.CreateUser(ctx, &models.User{Username: "alice"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	m := observability.NewMetrics(prometheus.NewRegistry())
	return NewService(store, quotes, m), store, m
}

func TestService_Value(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, &mockQuotes{prices: map[string]float64{"AAPL": 180, "MSFT": 270}})
	_ = store.UpsertHolding(ctx, "alice", models.Holding{Symbol: "AAPL", Shares: d(10), AvgPrice: d(150)})
	_ = store.UpsertHolding(ctx, "alice", models.Holding{Symbol: "MSFT", Shares: d(5), AvgPrice: d(300)})
	_ = store.UpsertHolding(ctx, "alice", models.Holding{Symbol: "ZZZZ", Shares: d(2), AvgPrice: d(50)})

	sum, err := svc.Value(ctx, "alice")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if len(sum.Positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(sum.Positions))
	}

	aapl := sum.Positions[0]
	if !aapl.MarketValue.Equal(d(1800)) || !aapl.ProfitLoss.Equal(d(300)) || !aapl.ReturnPercent.Equal(d(20)) {
		t.Errorf("unexpected AAPL position %+v", aapl)
	}
	msft := sum.Positions[1]
	if !msft.ProfitLoss.Equal(d(-150)) || !msft.ReturnPercent.Equal(d(-10)) {
		t.Errorf("unexpected MSFT position %+v", msft)
	}
	zzzz := sum.Positions[2]
	if zzzz.PriceFromQuote || !zzzz.CurrentPrice.Equal(d(50)) || !zzzz.ProfitLoss.IsZero() {
		t.Errorf("unquoted holding should be valued at cost, got %+v", zzzz)
	}

	if !sum.TotalInvested.Equal(d(3100)) || !sum.TotalValue.Equal(d(3250)) || !sum.TotalProfitLoss.Equal(d(150)) {
		t.Errorf("unexpected totals %+v", sum)
	}
	if sum.BestPerformer != "AAPL" || !sum.BestReturnPercent.Equal(d(20)) {
		t.Errorf("unexpected best performer %s %s", sum.BestPerformer, sum.BestReturnPercent)
	}
}

func TestService_Value_Empty(t *testing.T) {
	svc, _, _ := newTestService(t, &mockQuotes{})

	sum, err := svc.Value(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if len(sum.Positions) != 0 || sum.BestPerformer != "N/A" || !sum.ReturnPercent.IsZero() {
		t.Errorf("unexpected empty summary %+v", sum)
	}
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, &mockQuotes{})

	if _, err := svc.Add(ctx, "alice", " aapl ", d(10), d(100)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	h, err := svc.Add(ctx, "alice", "AAPL", d(10), d(200))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !h.Shares.Equal(d(20)) || !h.AvgPrice.Equal(d(150)) {
		t.Errorf("expected merged holding 20@150, got %s@%s", h.Shares, h.AvgPrice)
	}

	holdings, _ := store.GetPortfolio(ctx, "alice")
	if len(holdings) != 1 || holdings[0].Symbol != "AAPL" {
		t.Errorf("unexpected holdings %+v", holdings)
	}

	tests := []struct {
		name    string
		symbol  string
		shares  float64
		price   float64
		wantErr error
	}{
		{"no symbol", " ", 1, 1, ErrInvalidSymbol},
		{"zero shares", "AAPL", 0, 1, ErrInvalidQuantity},
		{"negative price", "AAPL", 1, -1, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, "alice", tt.symbol, d(tt.shares), d(tt.price)); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_ExecuteTrade_BuyAveragesCost(t *testing.T) {
	ctx := context.Background()
	svc, store, metrics := newTestService(t, &mockQuotes{})
	_ = store.UpsertHolding(ctx, "alice", models.Holding{Symbol: "AAPL", Shares: d(10), AvgPrice: d(150)})

	trade, err := svc.ExecuteTrade(ctx, "alice", "aapl", models.TradeSideBuy, d(10), d(170))
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if trade.Status != models.TradeStatusExecuted || trade.ExecutedAt == nil || trade.Symbol != "AAPL" {
		t.Errorf("unexpected trade %+v", trade)
	}
	if !trade.TotalValue.Equal(d(1700)) {
		t.Errorf("unexpected total %s", trade.TotalValue)
	}

	holdings, _ := store.GetPortfolio(ctx, "alice")
	if !holdings[0].Shares.Equal(d(20)) || !holdings[0].AvgPrice.Equal(d(160)) {
		t.Errorf("expected 20@160, got %s@%s", holdings[0].Shares, holdings[0].AvgPrice)
	}

	history, _ := svc.History(ctx, "alice")
	if len(history) != 1 || history[0].ID != trade.ID {
		t.Errorf("trade should head the history, got %+v", history)
	}
	if got := testutil.ToFloat64(metrics.TradesTotal.WithLabelValues("buy", "executed")); got != 1 {
		t.Errorf("expected 1 executed buy, got %v", got)
	}
}

func TestService_ExecuteTrade_Sell(t *testing.T) {
	ctx := context.Background()
	svc, store, metrics := newTestService(t, &mockQuotes{})
	_ = store.UpsertHolding(ctx, "alice", models.Holding{Symbol: "AAPL", Shares: d(10), AvgPrice: d(150)})

	if _, err := svc.ExecuteTrade(ctx, "alice", "AAPL", models.TradeSideSell, d(11), d(160)); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares, got %v", err)
	}
	if _, err := svc.ExecuteTrade(ctx, "alice", "MSFT", models.TradeSideSell, d(1), d(160)); !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.TradesTotal.WithLabelValues("sell", "rejected")); got != 2 {
		t.Errorf("expected 2 rejected sells, got %v", got)
	}

	if _, err := svc.ExecuteTrade(ctx, "alice", "AAPL", models.TradeSideSell, d(4), d(160)); err != nil {
		t.Fatalf("partial sell error = %v", err)
	}
	holdings, _ := store.GetPortfolio(ctx, "alice")
	if !holdings[0].Shares.Equal(d(6)) || !holdings[0].AvgPrice.Equal(d(150)) {
		t.Errorf("sell should keep avg price, got %s@%s", holdings[0].Shares, holdings[0].AvgPrice)
	}

	if _, err := svc.ExecuteTrade(ctx, "alice", "AAPL", models.TradeSideSell, d(6), d(160)); err != nil {
		t.Fatalf("closing sell error = %v", err)
	}
	holdings, _ = store.GetPortfolio(ctx, "alice")
	if len(holdings) != 0 {
		t.Errorf("zeroed holding should be removed, got %+v", holdings)
	}

	history, _ := svc.History(ctx, "alice")
	if len(history) != 2 {
		t.Errorf("rejected trades should not be recorded, got %d", len(history))
	}
}

func TestService_ExecuteTrade_DefaultsToQuote(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &mockQuotes{prices: map[string]float64{"NVDA": 123.456}})

	trade, err := svc.ExecuteTrade(ctx, "alice", "NVDA", models.TradeSideBuy, d(2), decimal.Zero)
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if !trade.Price.Equal(d(123.46)) {
		t.Errorf("expected quote price rounded to cents, got %s", trade.Price)
	}

	if _, err := svc.ExecuteTrade(ctx, "alice", "ZZZZ", models.TradeSideBuy, d(1), decimal.Zero); err == nil {
		t.Error("expected error when no quote is available")
	}
}

func TestService_ExecuteTrade_KeepsExplicitPrice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &mockQuotes{})

	price := decimal.NewFromInt(1000).Div(decimal.NewFromInt(83))
	trade, err := svc.ExecuteTrade(ctx, "alice", "MSFT", models.TradeSideBuy, d(10), price)
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if !trade.Price.Equal(price) {
		t.Errorf("price = %s, want %s unrounded", trade.Price, price)
	}
	if got := trade.TotalValue.Mul(decimal.NewFromInt(83)).Round(2); !got.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("total in display terms = %s, want 10000", got)
	}
}

func TestService_ExecuteTrade_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t, &mockQuotes{})
	ctx := context.Background()

	tests := []struct {
		name   string
		symbol string
		side   models.TradeSide
		shares float64
		price  float64
	}{
		{"no symbol", "", models.TradeSideBuy, 1, 1},
		{"bad side", "AAPL", "hold", 1, 1},
		{"zero shares", "AAPL", models.TradeSideBuy, 0, 1},
		{"negative shares", "AAPL", models.TradeSideBuy, -2, 1},
		{"negative price", "AAPL", models.TradeSideBuy, 1, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ExecuteTrade(ctx, "alice", tt.symbol, tt.side, d(tt.shares), d(tt.price)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestService_ExecuteTrade_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, &mockQuotes{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ExecuteTrade(ctx, "alice", "AAPL", models.TradeSideBuy, d(1), d(100)); err != nil {
				t.Errorf("ExecuteTrade() error = %v", err)
			}
		}()
	}
	wg.Wait()

	holdings, _ := store.GetPortfolio(ctx, "alice")
	if len(holdings) != 1 || !holdings[0].Shares.Equal(d(20)) {
		t.Errorf("expected 20 shares, got %+v", holdings)
	}
}
