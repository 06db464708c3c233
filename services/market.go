package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stock-dashboard/indicators"
	"stock-dashboard/models"
	"stock-dashboard/observability"
)

// ErrNoData is returned by LatestQuote when the provider has no bars for a symbol
var ErrNoData = errors.New("no market data")

// DefaultSnapshotBars is the length of the synthetic series behind a degraded snapshot
const DefaultSnapshotBars = 30

const maxQuoteConcurrency = 8

// Snapshot is one computed indicator view of a symbol
type Snapshot struct {
	Symbol    string            `json:"symbol"`
	Range     Range             `json:"range"`
	Quote     *models.Quote     `json:"quote"`
	Result    indicators.Result `json:"result"`
	Degraded  bool              `json:"degraded"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// MarketServiceConfig holds the tunables of a MarketService
type MarketServiceConfig struct {
	Retry        RetryConfig
	Breaker      BreakerConfig
	Pipeline     indicators.Pipeline
	DefaultPrice float64
	Seed         int64
}

// MarketService fetches bars through a guarded provider and runs the
// indicator pipeline over them.
type MarketService struct {
	provider MarketDataProvider
	breakers *BreakerRegistry
	retry    RetryConfig
	pipeline indicators.Pipeline
	price    float64
	metrics  *observability.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand

	now func() time.Time
}

// NewMarketService creates a service around provider
func NewMarketService(provider MarketDataProvider, cfg MarketServiceConfig, metrics *observability.Metrics) *MarketService {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MarketService{
		provider: provider,
		breakers: NewBreakerRegistry(cfg.Breaker, metrics),
		retry:    cfg.Retry,
		pipeline: cfg.Pipeline,
		price:    cfg.DefaultPrice,
		metrics:  metrics,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// Provider returns the wrapped provider's name
func (s *MarketService) Provider() string {
	return s.provider.Name()
}

// Breakers exposes the breaker registry for status reporting
func (s *MarketService) Breakers() *BreakerRegistry {
	return s.breakers
}

// Pipeline returns the pipeline tunables
func (s *MarketService) Pipeline() indicators.Pipeline {
	return s.pipeline
}

// fetch is one guarded, retried provider call for an exact range
func (s *MarketService) fetch(ctx context.Context, symbol string, r Range) (indicators.Series, error) {
	name := s.provider.Name()
	var bars []models.Bar

	err := WithRetry(ctx, s.retry, func() error {
		timer := s.metrics.NewTimer()
		got, err := guarded(ctx, s.breakers, name, func() ([]models.Bar, error) {
			return s.provider.GetBars(ctx, symbol, r)
		})
		timer.ObserveMarketData(name, "bars")
		if err != nil {
			s.metrics.RecordMarketDataError(name, "bars", errorType(err))
			if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
				return Permanent(err)
			}
			return err
		}
		bars = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, r, err)
	}
	return indicators.Normalize(bars), nil
}

// FetchSeries resolves period, fetches and normalizes the bars. An empty
// result is retried once over the fallback range; if that is empty too the
// empty series is returned with a nil error.
func (s *MarketService) FetchSeries(ctx context.Context, symbol, period string) (indicators.Series, Range, error) {
	r := ResolveRange(period)
	series, err := s.fetch(ctx, symbol, r)
	if err != nil {
		return nil, r, err
	}
	if len(series) > 0 || r == FallbackRange {
		return series, r, nil
	}

	observability.WithSymbol(symbol).Debug("empty range, retrying with fallback",
		"range", r.String(),
		"fallback", FallbackRange.String())
	series, err = s.fetch(ctx, symbol, FallbackRange)
	if err != nil {
		return nil, FallbackRange, err
	}
	return series, FallbackRange, nil
}

// Snapshot computes the full indicator view of a symbol. Upstream failures
// are absorbed into a degraded default snapshot; an unknown symbol yields a
// NoData result.
func (s *MarketService) Snapshot(ctx context.Context, symbol, period string) *Snapshot {
	series, r, err := s.FetchSeries(ctx, symbol, period)
	if err != nil {
		if ctx.Err() == nil {
			observability.WithSymbol(symbol).Warn("market data unavailable, using default snapshot",
				"period", period,
				"error", err)
		}
		s.metrics.RecordDegradedSnapshot("snapshot")
		return s.DefaultSnapshot(symbol)
	}

	timer := s.metrics.NewTimer()
	res := s.pipeline.Run(series)
	outcome := "ok"
	if res.NoData {
		outcome = "no_data"
	}
	timer.ObservePipeline(outcome)
	s.metrics.RecordSignal(string(res.Signal.Label))
	if len(res.Forecast) > 0 {
		s.metrics.RecordForecast("multi_day")
	}

	return &Snapshot{
		Symbol:    symbol,
		Range:     r,
		Quote:     models.QuoteFromBars(symbol, series),
		Result:    res,
		FetchedAt: s.now(),
	}
}

// DefaultSnapshot is the documented stand-in for an unreachable upstream:
// a flat series at the configured default price.
func (s *MarketService) DefaultSnapshot(symbol string) *Snapshot {
	series := DefaultSeries(s.price, DefaultSnapshotBars, s.now())
	res := s.pipeline.Run(series)
	res.Signal = res.Signal.WithCaveat("market data unavailable")

	q := models.NewQuote(symbol, decimal.NewFromFloat(s.price), decimal.NewFromFloat(s.price), 0, s.now())
	q.Degraded = true

	return &Snapshot{
		Symbol:    symbol,
		Range:     DefaultRange,
		Quote:     q,
		Result:    res,
		Degraded:  true,
		FetchedAt: s.now(),
	}
}

// DefaultSeries builds n flat daily bars at price, ending at end
func DefaultSeries(price float64, n int, end time.Time) indicators.Series {
	day := end.UTC().Truncate(24 * time.Hour)
	series := make(indicators.Series, n)
	for i := range series {
		series[i] = models.Bar{
			Timestamp: day.AddDate(0, 0, i-n+1),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    0,
		}
	}
	return series
}

// NextBar returns the stochastic one-step forecast for a computed snapshot
func (s *MarketService) NextBar(snap *Snapshot) (float64, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	price, ok := s.pipeline.NextBar(snap.Result, s.rng)
	if ok {
		s.metrics.RecordForecast("next_bar")
	}
	return price, ok
}

// LatestQuote returns the last price and change for symbol
func (s *MarketService) LatestQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	series, err := s.fetch(ctx, symbol, QuoteRange)
	if err != nil {
		return nil, err
	}
	q := models.QuoteFromBars(symbol, series)
	if q == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return q, nil
}

// QuoteOrDefault never fails: an unreachable or unknown symbol gets a
// degraded quote at the default price.
func (s *MarketService) QuoteOrDefault(ctx context.Context, symbol string) *models.Quote {
	q, err := s.LatestQuote(ctx, symbol)
	if err == nil {
		return q
	}
	observability.WithSymbol(symbol).Debug("quote unavailable, using default price", "error", err)
	s.metrics.RecordDegradedSnapshot("quote")
	d := models.NewQuote(symbol, decimal.NewFromFloat(s.price), decimal.NewFromFloat(s.price), 0, s.now())
	d.Degraded = true
	return d
}

// Quotes fetches quotes for symbols concurrently, preserving input order.
// Symbols that fail are returned degraded.
func (s *MarketService) Quotes(ctx context.Context, symbols []string) []*models.Quote {
	out := make([]*models.Quote, len(symbols))
	var g errgroup.Group
	g.SetLimit(maxQuoteConcurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			out[i] = s.QuoteOrDefault(ctx, sym)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case strings.Contains(err.Error(), "status"):
		return "status"
	default:
		return "upstream"
	}
}
