package market

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stock-dashboard/config"
	"stock-dashboard/models"
	"stock-dashboard/observability"
)

const (
	maxPulseConcurrency = 6
	headlineDateLayout  = "January 02, 2006"
	headlineTimeLayout  = "15:04"
)

// QuoteSource provides the latest quote for a symbol
type QuoteSource interface {
	LatestQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Currency converts provider prices for display
type Currency struct {
	Factor float64
	Symbol string
}

// Convert returns a provider price in the display currency, rounded to cents
func (c Currency) Convert(price float64) float64 {
	return math.Round(price*c.Factor*100) / 100
}

// ConvertDecimal is Convert for money values
func (c Currency) ConvertDecimal(d decimal.Decimal) decimal.Decimal {
	return d.Mul(decimal.NewFromFloat(c.Factor)).Round(2)
}

// Format renders a provider price in the display currency
func (c Currency) Format(price float64) string {
	return fmt.Sprintf("%s%.2f", c.Symbol, price*c.Factor)
}

// FormatDecimal renders a money value in the display currency
func (c Currency) FormatDecimal(d decimal.Decimal) string {
	return c.Symbol + c.ConvertDecimal(d).StringFixed(2)
}

// SectorPulse is the sentiment of one sector ETF
type SectorPulse struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Sentiment
}

// Mover is a watched stock ranked by the size of its last move
type Mover struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// Pulse is the home page market overview
type Pulse struct {
	Market      Sentiment     `json:"market"`
	IndexChange *float64      `json:"index_change,omitempty"` // mean percent change, nil without index quotes
	Sectors     []SectorPulse `json:"sectors"`
	Movers      []Mover       `json:"movers"`
	Articles    []Article     `json:"articles"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

var companyNames = map[string]string{
	"AAPL":  "Apple Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
	"AMZN":  "Amazon.com, Inc.",
	"TSLA":  "Tesla, Inc.",
	"NVDA":  "NVIDIA Corporation",
	"META":  "Meta Platforms, Inc.",
	"NFLX":  "Netflix, Inc.",
	"AMD":   "Advanced Micro Devices, Inc.",
	"INTC":  "Intel Corporation",
}

// CompanyName returns the display name for symbol, or the symbol itself
func CompanyName(symbol string) string {
	if name, ok := companyNames[symbol]; ok {
		return name
	}
	return symbol
}

// RankMovers orders movers by absolute change, largest first
func RankMovers(movers []Mover) {
	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(movers[i].ChangePercent) > math.Abs(movers[j].ChangePercent)
	})
}

// MoverHeadlines writes up to n articles about the top of ranked movers
func MoverHeadlines(movers []Mover, n int, cur Currency, now time.Time) []Article {
	date := now.Format(headlineDateLayout)
	out := make([]Article, 0, n)
	for i, m := range movers {
		if i >= n {
			break
		}
		up := m.ChangePercent > 0
		abs := math.Abs(m.ChangePercent)
		price := cur.Format(m.Price)
		switch i {
		case 0:
			out = append(out, Article{
				Title:   fmt.Sprintf("%s %s %.1f%% - %s", m.Name, pick(up, "surges", "drops"), abs, date),
				Summary: fmt.Sprintf("%s (%s) shows significant movement with %.2f%% change. Current price: %s. Market analysts monitoring closely.", m.Name, m.Symbol, m.ChangePercent, price),
			})
		case 1:
			out = append(out, Article{
				Title:   fmt.Sprintf("%s %s %.1f%% in Latest Trading", m.Name, pick(up, "rallies", "declines"), abs),
				Summary: fmt.Sprintf("%s experiences %.2f%% %s at %s. Trading volume indicates strong investor interest.", m.Name, abs, pick(up, "gain", "loss"), price),
			})
		default:
			dir := pick(up, "gains", "loses")
			out = append(out, Article{
				Title:   fmt.Sprintf("%s %s momentum as %s moves %.1f%%", m.Name, dir, m.Symbol, abs),
				Summary: fmt.Sprintf("%s continues %s momentum with %.2f%% movement. Current valuation at %s attracts investor attention.", m.Name, dir, abs, price),
			})
		}
	}
	return out
}

// OverviewHeadline summarizes the market label as an article
func OverviewHeadline(market Sentiment, now time.Time) Article {
	date := now.Format(headlineDateLayout)
	switch market.Label {
	case LabelBullish:
		return Article{
			Title:   "Markets Close Higher - " + date,
			Summary: "Major indices show positive momentum with markets trending bullish. Technology and growth stocks lead the rally as investor sentiment remains strong.",
		}
	case LabelBearish:
		return Article{
			Title:   "Market Pullback Continues - " + date,
			Summary: "Indices face pressure with bearish sentiment prevailing. Investors rotating into defensive sectors amid market volatility.",
		}
	default:
		return Article{
			Title:   "Markets Trade Mixed - " + date,
			Summary: "Indices show mixed performance with neutral sentiment. Investors await key economic data and corporate earnings reports.",
		}
	}
}

// SummaryHeadline describes the mean index move. It uses the tighter
// sector threshold so the news feed reacts to smaller moves.
func SummaryHeadline(avgChange float64, now time.Time) Article {
	lbl := label(avgChange, sectorThreshold)
	lower := strings.ToLower(lbl)
	return Article{
		Title:   fmt.Sprintf("Market Update: %s Sentiment Prevails - %s", lbl, now.Format(headlineDateLayout)),
		Summary: fmt.Sprintf("Major indices show %s sentiment with average movement of %.2f%%. Investors remain %s on economic outlook.", lower, avgChange, lower),
	}
}

func fallbackHeadline(now time.Time) Article {
	return Article{
		Title:   "Market Update - " + now.Format(headlineDateLayout),
		Summary: "Markets are currently active. Check individual stocks for latest price movements and trading opportunities.",
	}
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// Service maintains the market pulse, refreshed on a cron schedule
type Service struct {
	quotes   QuoteSource
	cfg      config.PulseConfig
	currency Currency
	metrics  *observability.Metrics
	now      func() time.Time

	mu       sync.RWMutex
	snapshot *Pulse
	cron     *cron.Cron
}

// NewService creates a pulse service
func NewService(quotes QuoteSource, cfg config.PulseConfig, currency Currency, metrics *observability.Metrics) *Service {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Service{
		quotes:   quotes,
		cfg:      cfg,
		currency: currency,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Currency returns the display currency
func (s *Service) Currency() Currency {
	return s.currency
}

// changes fetches the percent change of each symbol concurrently.
// Symbols without a quote are absent from the result.
func (s *Service) changes(ctx context.Context, symbols []string) map[string]*models.Quote {
	out := make(map[string]*models.Quote, len(symbols))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxPulseConcurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			q, err := s.quotes.LatestQuote(ctx, sym)
			if err != nil || q == nil {
				observability.WithSymbol(sym).Debug("pulse quote unavailable", "error", err)
				return nil
			}
			mu.Lock()
			out[sym] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Refresh rebuilds the pulse from live quotes and stores it
func (s *Service) Refresh(ctx context.Context) *Pulse {
	symbols := make([]string, 0, len(s.cfg.Indices)+len(s.cfg.Sectors)+len(s.cfg.Movers))
	symbols = append(symbols, s.cfg.Indices...)
	for _, sec := range s.cfg.Sectors {
		symbols = append(symbols, sec.Symbol)
	}
	symbols = append(symbols, s.cfg.Movers...)
	quotes := s.changes(ctx, dedupe(symbols))

	now := s.now()
	p := &Pulse{UpdatedAt: now}

	var idx []float64
	for _, sym := range s.cfg.Indices {
		if q, ok := quotes[sym]; ok {
			idx = append(idx, q.ChangePercent.InexactFloat64())
		}
	}
	p.Market = IndexSentiment(idx)
	if len(idx) > 0 {
		avg := mean(idx)
		p.IndexChange = &avg
	}

	for _, sec := range s.cfg.Sectors {
		var chg *float64
		if q, ok := quotes[sec.Symbol]; ok {
			c := q.ChangePercent.InexactFloat64()
			chg = &c
		}
		p.Sectors = append(p.Sectors, SectorPulse{Name: sec.Name, Symbol: sec.Symbol, Sentiment: SectorSentiment(chg)})
	}

	for _, sym := range s.cfg.Movers {
		if q, ok := quotes[sym]; ok {
			p.Movers = append(p.Movers, Mover{
				Symbol:        sym,
				Name:          CompanyName(sym),
				Price:         q.Price.InexactFloat64(),
				ChangePercent: q.ChangePercent.InexactFloat64(),
			})
		}
	}
	RankMovers(p.Movers)

	p.Articles = append(MoverHeadlines(p.Movers, 2, s.currency, now), OverviewHeadline(p.Market, now))

	status := "ok"
	if len(quotes) == 0 {
		status = "empty"
	}
	s.metrics.RecordPulseRefresh(status)
	observability.Debug("market pulse refreshed", "quotes", len(quotes), "label", p.Market.Label)

	s.mu.Lock()
	s.snapshot = p
	s.mu.Unlock()
	return p
}

// Current returns the latest pulse, building one if none exists yet
func (s *Service) Current(ctx context.Context) *Pulse {
	s.mu.RLock()
	p := s.snapshot
	s.mu.RUnlock()
	if p != nil {
		return p
	}
	return s.Refresh(ctx)
}

// News returns timestamped headlines for the three biggest movers plus a
// market summary built from the current pulse.
func (s *Service) News(ctx context.Context) []Article {
	p := s.Current(ctx)
	now := s.now()

	articles := MoverHeadlines(p.Movers, 3, s.currency, now)
	if p.IndexChange != nil {
		articles = append(articles, SummaryHeadline(*p.IndexChange, now))
	}
	if len(articles) == 0 {
		articles = append(articles, fallbackHeadline(now))
	}

	stamp := now.Format(headlineTimeLayout)
	for i := range articles {
		articles[i].Timestamp = stamp
	}
	return articles
}

// Start schedules Refresh on spec, a six-field cron expression
func (s *Service) Start(spec string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Refresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule market pulse %q: %w", spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	observability.Info("market pulse scheduled", "spec", spec)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := symbols[:0:0]
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
