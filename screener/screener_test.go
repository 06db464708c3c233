package screener

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stock-dashboard/config"
	"stock-dashboard/indicators"
	"stock-dashboard/models"
	"stock-dashboard/observability"
	"stock-dashboard/services"
)

// MockSeriesSource implements SeriesSource for testing
type MockSeriesSource struct {
	FetchSeriesFunc func(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error)
}

func (m *MockSeriesSource) FetchSeries(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error) {
	if m.FetchSeriesFunc != nil {
		return m.FetchSeriesFunc(ctx, symbol, period)
	}
	return nil, services.Range{}, nil
}

func f(v float64) *float64 { return &v }

func seriesOf(closes ...float64) indicators.Series {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(indicators.Series, len(closes))
	for i, c := range closes {
		s[i] = models.Bar{Timestamp: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return s
}

// uptrend climbs 2 then falls 1.5, keeping RSI near 57
func uptrend(n int) indicators.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i/2)
		if i%2 == 1 {
			closes[i] += 2
		}
	}
	return seriesOf(closes...)
}

func downtrend(n int) indicators.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 200 - 0.5*float64(i/2)
		if i%2 == 1 {
			closes[i] -= 2
		}
	}
	return seriesOf(closes...)
}

func flat(n int) indicators.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 50
	}
	return seriesOf(closes...)
}

func testConfig() *config.ScreenerConfig {
	return &config.ScreenerConfig{Period: "3mo", TimeoutSec: 5, MaxConcurrent: 2}
}

func TestVote(t *testing.T) {
	tests := []struct {
		name      string
		close     float64
		sma20     *float64
		sma50     *float64
		rsi       *float64
		wantBuys  int
		wantSells int
	}{
		{"all bullish", 110, f(105), f(100), f(25), 3, 0},
		{"all bearish", 90, f(95), f(100), f(75), 0, 3},
		{"neutral rsi", 110, f(105), f(100), f(50), 2, 0},
		{"mixed", 110, f(95), f(100), f(50), 1, 1},
		{"no sma50", 110, f(105), nil, f(50), 1, 0},
		{"no sma20 skips both", 110, nil, f(100), f(50), 0, 0},
		{"no rsi", 90, f(95), f(100), nil, 0, 2},
		{"ties cast no vote", 100, f(100), f(100), f(30), 0, 0},
		{"rsi boundary 70", 100, nil, nil, f(70), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buys, sells := Vote(tt.close, tt.sma20, tt.sma50, tt.rsi)
			if buys != tt.wantBuys || sells != tt.wantSells {
				t.Errorf("Vote() = %d, %d, want %d, %d", buys, sells, tt.wantBuys, tt.wantSells)
			}
		})
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		buys, sells int
		want        Verdict
	}{
		{3, 0, VerdictStrongBuy},
		{2, 1, VerdictStrongBuy},
		{2, 2, VerdictStrongBuy},
		{1, 2, VerdictStrongSell},
		{0, 3, VerdictStrongSell},
		{1, 1, VerdictHold},
		{0, 0, VerdictHold},
	}

	for _, tt := range tests {
		if got := VerdictFor(tt.buys, tt.sells); got != tt.want {
			t.Errorf("VerdictFor(%d, %d) = %s, want %s", tt.buys, tt.sells, got, tt.want)
		}
	}
}

func TestPredict(t *testing.T) {
	p, ok := Predict("UP", indicators.Compute(uptrend(60)))
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Verdict != VerdictStrongBuy || p.BuyVotes != 2 || p.SellVotes != 0 {
		t.Errorf("unexpected uptrend prediction %+v", p)
	}
	if p.RSI == nil || *p.RSI < 30 || *p.RSI > 70 {
		t.Errorf("expected neutral RSI, got %v", p.RSI)
	}

	if _, ok := Predict("NONE", indicators.Compute(nil)); ok {
		t.Error("empty result should not predict")
	}
}

func TestScreener_WeeklyOutlook(t *testing.T) {
	source := &MockSeriesSource{
		FetchSeriesFunc: func(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error) {
			if period != "3mo" {
				t.Errorf("expected 3mo period, got %s", period)
			}
			switch symbol {
			case "UP1", "UP2":
				return uptrend(60), services.Range{}, nil
			case "DOWN":
				return downtrend(60), services.Range{}, nil
			case "FLAT":
				return flat(60), services.Range{}, nil
			case "EMPTY":
				return indicators.Series{}, services.Range{}, nil
			default:
				return nil, services.Range{}, errors.New("upstream down")
			}
		},
	}
	s := NewScreener(source, testConfig(), observability.NewMetrics(prometheus.NewRegistry()))

	out := s.WeeklyOutlook(context.Background(), []string{"UP2", "DOWN", "FLAT", "EMPTY", "BROKEN", "UP1"})

	if len(out.GoHigh) != 2 || out.GoHigh[0].Symbol != "UP1" || out.GoHigh[1].Symbol != "UP2" {
		t.Errorf("unexpected go-high bucket %+v", out.GoHigh)
	}
	if len(out.GoLow) != 1 || out.GoLow[0].Symbol != "DOWN" {
		t.Errorf("unexpected go-low bucket %+v", out.GoLow)
	}
	if len(out.Neutral) != 1 || out.Neutral[0].Symbol != "FLAT" {
		t.Errorf("unexpected neutral bucket %+v", out.Neutral)
	}
	if len(out.Skipped) != 2 || out.Skipped[0] != "BROKEN" || out.Skipped[1] != "EMPTY" {
		t.Errorf("unexpected skipped %v", out.Skipped)
	}
	if s.Latest() != out {
		t.Error("Latest() should return the last run")
	}
}

func TestScreener_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	source := &MockSeriesSource{
		FetchSeriesFunc: func(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return flat(5), services.Range{}, nil
		},
	}
	s := NewScreener(source, testConfig(), observability.NewMetrics(prometheus.NewRegistry()))

	out := s.WeeklyOutlook(context.Background(), []string{"A", "B", "C", "D", "E", "F"})
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("expected at most 2 concurrent fetches, saw %d", got)
	}
	if len(out.Neutral) != 6 {
		t.Errorf("expected 6 neutral predictions, got %d", len(out.Neutral))
	}
}

func TestScreener_Timeout(t *testing.T) {
	source := &MockSeriesSource{
		FetchSeriesFunc: func(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error) {
			<-ctx.Done()
			return nil, services.Range{}, ctx.Err()
		},
	}
	cfg := testConfig()
	cfg.TimeoutSec = 0
	s := NewScreener(source, cfg, observability.NewMetrics(prometheus.NewRegistry()))

	out := s.WeeklyOutlook(context.Background(), []string{"A", "B", "C"})
	if len(out.Skipped) != 3 {
		t.Errorf("expected all symbols skipped on timeout, got %+v", out)
	}
}

func TestScreener_LatestBeforeRun(t *testing.T) {
	s := NewScreener(&MockSeriesSource{}, testConfig(), observability.NewMetrics(prometheus.NewRegistry()))
	if s.Latest() != nil {
		t.Error("expected nil before first run")
	}
}
