// Package screener produces the weekly outlook over a watchlist.
package screener

import (
	"context"
	"sort"
	"sync"
	"time"

	"stock-dashboard/config"
	"stock-dashboard/indicators"
	"stock-dashboard/observability"
	"stock-dashboard/services"
)

// SeriesSource fetches a normalized bar series for a symbol
type SeriesSource interface {
	FetchSeries(ctx context.Context, symbol, period string) (indicators.Series, services.Range, error)
}

type Verdict string

const (
	VerdictStrongBuy  Verdict = "Strong Buy"
	VerdictStrongSell Verdict = "Strong Sell"
	VerdictHold       Verdict = "Hold"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	votesNeeded   = 2
)

// Prediction is the vote tally for one symbol's latest bar
type Prediction struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"current_price"`
	SMA20     *float64 `json:"sma20"`
	SMA50     *float64 `json:"sma50"`
	RSI       *float64 `json:"rsi"`
	BuyVotes  int      `json:"buy_signals"`
	SellVotes int      `json:"sell_signals"`
	Verdict   Verdict  `json:"recommendation"`
}

// Outlook is one screener run, bucketed by verdict
type Outlook struct {
	GoHigh      []Prediction `json:"go_high"`
	GoLow       []Prediction `json:"go_low"`
	Neutral     []Prediction `json:"neutral"`
	Skipped     []string     `json:"skipped"`
	GeneratedAt time.Time    `json:"generated_at"`
	DurationMs  int64        `json:"duration_ms"`
}

// Screener runs the weekly outlook with bounded concurrency
type Screener struct {
	source  SeriesSource
	cfg     *config.ScreenerConfig
	metrics *observability.Metrics

	mu     sync.RWMutex
	latest *Outlook
}

func NewScreener(source SeriesSource, cfg *config.ScreenerConfig, metrics *observability.Metrics) *Screener {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Screener{source: source, cfg: cfg, metrics: metrics}
}

// Vote counts buy and sell votes for a bar. Absent inputs cast no vote.
func Vote(close float64, sma20, sma50, rsi *float64) (buys, sells int) {
	if sma20 != nil {
		switch {
		case close > *sma20:
			buys++
		case close < *sma20:
			sells++
		}
		if sma50 != nil {
			switch {
			case *sma20 > *sma50:
				buys++
			case *sma20 < *sma50:
				sells++
			}
		}
	}
	if rsi != nil {
		switch {
		case *rsi < rsiOversold:
			buys++
		case *rsi > rsiOverbought:
			sells++
		}
	}
	return buys, sells
}

// VerdictFor maps vote counts to a verdict; buy votes are checked first
func VerdictFor(buys, sells int) Verdict {
	switch {
	case buys >= votesNeeded:
		return VerdictStrongBuy
	case sells >= votesNeeded:
		return VerdictStrongSell
	default:
		return VerdictHold
	}
}

// Predict tallies the last bar of a computed result. ok is false for an
// empty result.
func Predict(symbol string, res indicators.Result) (Prediction, bool) {
	last := res.LastClose()
	if res.NoData || last == nil {
		return Prediction{}, false
	}
	i := len(res.Series) - 1
	p := Prediction{
		Symbol: symbol,
		Price:  *last,
		SMA20:  res.Frame[indicators.KeySMA20].At(i),
		SMA50:  res.Frame[indicators.KeySMA50].At(i),
		RSI:    res.Frame[indicators.KeyRSI14].At(i),
	}
	p.BuyVotes, p.SellVotes = Vote(p.Price, p.SMA20, p.SMA50, p.RSI)
	p.Verdict = VerdictFor(p.BuyVotes, p.SellVotes)
	return p, true
}

// WeeklyOutlook screens symbols concurrently. Symbols that fail to fetch or
// have no data are listed in Skipped.
func (s *Screener) WeeklyOutlook(ctx context.Context, symbols []string) *Outlook {
	timer := s.metrics.NewTimer()
	defer timer.ObserveScreener()

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSec)*time.Second)
	defer cancel()

	type result struct {
		symbol     string
		prediction Prediction
		ok         bool
	}

	results := make(chan result, len(symbols))
	sem := make(chan struct{}, max(s.cfg.MaxConcurrent, 1))
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				results <- result{symbol: sym}
				return
			}

			series, _, err := s.source.FetchSeries(runCtx, sym, s.cfg.Period)
			if err != nil {
				observability.Warn("screener fetch failed",
					"symbol", sym,
					"error", err)
				results <- result{symbol: sym}
				return
			}
			p, ok := Predict(sym, indicators.Compute(series))
			results <- result{symbol: sym, prediction: p, ok: ok}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &Outlook{
		GoHigh:  []Prediction{},
		GoLow:   []Prediction{},
		Neutral: []Prediction{},
		Skipped: []string{},
	}
	for r := range results {
		if !r.ok {
			out.Skipped = append(out.Skipped, r.symbol)
			continue
		}
		switch r.prediction.Verdict {
		case VerdictStrongBuy:
			out.GoHigh = append(out.GoHigh, r.prediction)
		case VerdictStrongSell:
			out.GoLow = append(out.GoLow, r.prediction)
		default:
			out.Neutral = append(out.Neutral, r.prediction)
		}
	}

	for _, bucket := range [][]Prediction{out.GoHigh, out.GoLow, out.Neutral} {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Symbol < bucket[j].Symbol })
	}
	sort.Strings(out.Skipped)
	out.GeneratedAt = time.Now()
	out.DurationMs = timer.Duration().Milliseconds()

	s.mu.Lock()
	s.latest = out
	s.mu.Unlock()

	observability.Info("weekly outlook completed",
		"symbols", len(symbols),
		"go_high", len(out.GoHigh),
		"go_low", len(out.GoLow),
		"neutral", len(out.Neutral),
		"skipped", len(out.Skipped))
	return out
}

// Latest returns the most recent outlook, or nil before the first run
func (s *Screener) Latest() *Outlook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
