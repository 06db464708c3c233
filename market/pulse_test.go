package market

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"stock-dashboard/config"
	"stock-dashboard/models"
	"stock-dashboard/observability"
)

type mockQuotes struct {
	mu      sync.Mutex
	changes map[string]float64
	calls   int
}

func (m *mockQuotes) LatestQuote(_ context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	chg, ok := m.changes[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	prev := decimal.NewFromInt(100)
	price := prev.Add(decimal.NewFromFloat(chg))
	return models.NewQuote(symbol, price, prev, 1000, time.Now()), nil
}

var testNow = time.Date(2025, time.March, 7, 15, 30, 0, 0, time.UTC)

func testPulseConfig() config.PulseConfig {
	return config.PulseConfig{
		Indices: []string{"SPY", "QQQ", "DIA"},
		Sectors: []config.SectorConfig{
			{Symbol: "XLK", Name: "Technology"},
			{Symbol: "XLE", Name: "Energy"},
		},
		Movers: []string{"AAPL", "MSFT", "TSLA", "NVDA"},
	}
}

func newTestService(t *testing.T, q QuoteSource) (*Service, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := NewService(q, testPulseConfig(), Currency{Factor: 83, Symbol: "₹"}, metrics)
	s.now = func() time.Time { return testNow }
	return s, metrics
}

func TestRefresh(t *testing.T) {
	q := &mockQuotes{changes: map[string]float64{
		"SPY": 1.5, "QQQ": 2.0, "DIA": 1.0,
		"XLK": 1.0,
		"AAPL": 0.5, "MSFT": -3.0, "TSLA": 2.0,
	}}
	s, metrics := newTestService(t, q)

	p := s.Refresh(context.Background())

	if p.Market.Label != LabelBullish {
		t.Errorf("market label = %s, want Bullish", p.Market.Label)
	}
	if p.IndexChange == nil || *p.IndexChange < 1.49 || *p.IndexChange > 1.51 {
		t.Errorf("index change = %v, want 1.5", p.IndexChange)
	}

	if len(p.Sectors) != 2 {
		t.Fatalf("sectors = %d, want 2", len(p.Sectors))
	}
	if p.Sectors[0].Name != "Technology" || p.Sectors[0].Label != LabelBullish {
		t.Errorf("technology = %+v", p.Sectors[0])
	}
	if p.Sectors[1].Label != LabelNeutral || p.Sectors[1].Score != 0.5 {
		t.Errorf("energy without data should be neutral, got %+v", p.Sectors[1])
	}

	wantOrder := []string{"MSFT", "TSLA", "AAPL"}
	if len(p.Movers) != len(wantOrder) {
		t.Fatalf("movers = %d, want %d", len(p.Movers), len(wantOrder))
	}
	for i, sym := range wantOrder {
		if p.Movers[i].Symbol != sym {
			t.Errorf("mover[%d] = %s, want %s", i, p.Movers[i].Symbol, sym)
		}
	}

	if len(p.Articles) != 3 {
		t.Fatalf("articles = %d, want 3", len(p.Articles))
	}
	if want := "Microsoft Corporation drops 3.0% - March 07, 2025"; p.Articles[0].Title != want {
		t.Errorf("title = %q, want %q", p.Articles[0].Title, want)
	}
	if !strings.Contains(p.Articles[0].Summary, "₹8051.00") {
		t.Errorf("summary should carry the display price: %q", p.Articles[0].Summary)
	}
	if want := "Tesla, Inc. rallies 2.0% in Latest Trading"; p.Articles[1].Title != want {
		t.Errorf("title = %q, want %q", p.Articles[1].Title, want)
	}
	if !strings.HasPrefix(p.Articles[2].Title, "Markets Close Higher") {
		t.Errorf("overview = %q", p.Articles[2].Title)
	}

	if got := testutil.ToFloat64(metrics.PulseRefreshTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok refreshes = %v, want 1", got)
	}
}

func TestRefresh_NoData(t *testing.T) {
	s, metrics := newTestService(t, &mockQuotes{})

	p := s.Refresh(context.Background())

	if p.Market.Label != LabelNeutral || p.Market.Score != 0.5 {
		t.Errorf("market = %+v, want neutral", p.Market)
	}
	if p.IndexChange != nil {
		t.Error("index change should be nil without quotes")
	}
	if len(p.Movers) != 0 {
		t.Errorf("movers = %d, want 0", len(p.Movers))
	}
	if len(p.Articles) != 1 || !strings.HasPrefix(p.Articles[0].Title, "Markets Trade Mixed") {
		t.Errorf("articles = %+v", p.Articles)
	}
	if got := testutil.ToFloat64(metrics.PulseRefreshTotal.WithLabelValues("empty")); got != 1 {
		t.Errorf("empty refreshes = %v, want 1", got)
	}
}

func TestCurrent_CachesSnapshot(t *testing.T) {
	q := &mockQuotes{changes: map[string]float64{"SPY": 1}}
	s, _ := newTestService(t, q)

	first := s.Current(context.Background())
	calls := q.calls
	second := s.Current(context.Background())

	if first != second {
		t.Error("Current should return the stored pulse")
	}
	if q.calls != calls {
		t.Errorf("quotes fetched again: %d calls, want %d", q.calls, calls)
	}
}

func TestNews(t *testing.T) {
	q := &mockQuotes{changes: map[string]float64{
		"SPY": -0.6, "QQQ": -0.8, "DIA": -0.4,
		"AAPL": 1.0, "MSFT": -2.0, "TSLA": 0.5, "NVDA": -4.0,
	}}
	s, _ := newTestService(t, q)

	articles := s.News(context.Background())

	if len(articles) != 4 {
		t.Fatalf("articles = %d, want 4", len(articles))
	}
	if !strings.HasPrefix(articles[0].Title, "NVIDIA Corporation drops 4.0%") {
		t.Errorf("first = %q", articles[0].Title)
	}
	if want := "Apple Inc. gains momentum as AAPL moves 1.0%"; articles[2].Title != want {
		t.Errorf("third = %q, want %q", articles[2].Title, want)
	}
	if !strings.HasPrefix(articles[3].Title, "Market Update: Bearish Sentiment Prevails") {
		t.Errorf("summary = %q", articles[3].Title)
	}
	for _, a := range articles {
		if a.Timestamp != "15:30" {
			t.Errorf("timestamp = %q, want 15:30", a.Timestamp)
		}
	}
}

func TestNews_Fallback(t *testing.T) {
	s, _ := newTestService(t, &mockQuotes{})

	articles := s.News(context.Background())

	if len(articles) != 1 || !strings.HasPrefix(articles[0].Title, "Market Update - ") {
		t.Errorf("articles = %+v, want single fallback", articles)
	}
}

func TestStartStop(t *testing.T) {
	s, _ := newTestService(t, &mockQuotes{})

	if err := s.Start("not a cron"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if err := s.Start("0 */5 * * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestCurrencyFormat(t *testing.T) {
	c := Currency{Factor: 83, Symbol: "₹"}
	if got := c.Format(10.5); got != "₹871.50" {
		t.Errorf("Format = %q, want ₹871.50", got)
	}
	if got := c.FormatDecimal(decimal.RequireFromString("150")); got != "₹12450.00" {
		t.Errorf("FormatDecimal = %q, want ₹12450.00", got)
	}
	if got := c.Convert(1.234); got != 102.42 {
		t.Errorf("Convert = %v, want 102.42", got)
	}
}
