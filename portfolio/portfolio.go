// Package portfolio values holdings against live quotes and applies trades.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stock-dashboard/models"
	"stock-dashboard/observability"
	"stock-dashboard/repository"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrInvalidSymbol      = errors.New("symbol is required")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNotHeld            = errors.New("symbol not held")
)

const maxQuoteFetches = 5

// QuoteSource provides the latest price for a symbol
type QuoteSource interface {
	LatestQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Position is a holding valued at the current price
type Position struct {
	Symbol         string          `json:"symbol"`
	Shares         decimal.Decimal `json:"shares"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	MarketValue    decimal.Decimal `json:"market_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	ReturnPercent  decimal.Decimal `json:"return_percent"`
	PriceFromQuote bool            `json:"price_from_quote"`
}

// Summary is the valued portfolio of one user
type Summary struct {
	Username          string          `json:"username"`
	Positions         []Position      `json:"positions"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TotalProfitLoss   decimal.Decimal `json:"total_profit_loss"`
	ReturnPercent     decimal.Decimal `json:"return_percent"`
	BestPerformer     string          `json:"best_performer"`
	BestReturnPercent decimal.Decimal `json:"best_return_percent"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Service owns portfolio reads and trade execution
type Service struct {
	store   repository.Store
	quotes  QuoteSource
	metrics *observability.Metrics

	// serializes read-modify-write of holdings
	tradeMu sync.Mutex
}

func NewService(store repository.Store, quotes QuoteSource, metrics *observability.Metrics) *Service {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Service{store: store, quotes: quotes, metrics: metrics}
}

// Value prices every holding. A holding whose quote cannot be fetched is
// valued at its average price.
func (s *Service) Value(ctx context.Context, username string) (*Summary, error) {
	holdings, err := s.store.GetPortfolio(ctx, username)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxQuoteFetches)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			positions[i] = s.price(gctx, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{
		Username:          username,
		Positions:         positions,
		BestPerformer:     "N/A",
		BestReturnPercent: decimal.Zero,
		UpdatedAt:         time.Now(),
	}
	for i, p := range positions {
		sum.TotalInvested = sum.TotalInvested.Add(p.CostBasis)
		sum.TotalValue = sum.TotalValue.Add(p.MarketValue)
		if i == 0 || p.ReturnPercent.GreaterThan(sum.BestReturnPercent) {
			sum.BestPerformer = p.Symbol
			sum.BestReturnPercent = p.ReturnPercent
		}
	}
	sum.TotalProfitLoss = sum.TotalValue.Sub(sum.TotalInvested)
	sum.ReturnPercent = percentOf(sum.TotalProfitLoss, sum.TotalInvested)
	return sum, nil
}

func (s *Service) price(ctx context.Context, h models.Holding) Position {
	p := Position{
		Symbol:       h.Symbol,
		Shares:       h.Shares,
		AvgPrice:     h.AvgPrice,
		CurrentPrice: h.AvgPrice,
		CostBasis:    h.CostBasis(),
	}
	if q, err := s.quotes.LatestQuote(ctx, h.Symbol); err == nil && q.Price.IsPositive() {
		p.CurrentPrice = q.Price
		p.PriceFromQuote = true
	} else if err != nil {
		observability.WithSymbol(h.Symbol).Debug("valuing holding at average price", "error", err)
	}
	p.MarketValue = h.MarketValue(p.CurrentPrice)
	p.ProfitLoss = p.MarketValue.Sub(p.CostBasis)
	p.ReturnPercent = percentOf(p.ProfitLoss, p.CostBasis)
	return p
}

// Add records shares bought outside the dashboard. An existing holding of
// the same symbol is merged at the weighted average price.
func (s *Service) Add(ctx context.Context, username, symbol string, shares, avgPrice decimal.Decimal) (*models.Holding, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case symbol == "":
		return nil, ErrInvalidSymbol
	case !shares.IsPositive():
		return nil, ErrInvalidQuantity
	case !avgPrice.IsPositive():
		return nil, ErrInvalidPrice
	}

	s.tradeMu.Lock()
	defer s.tradeMu.Unlock()

	h, _, err := s.holding(ctx, username, symbol)
	if err != nil {
		return nil, err
	}
	h.Buy(shares, avgPrice)
	if err := s.store.UpsertHolding(ctx, username, h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ExecuteTrade applies a buy or sell to the user's holdings and records it
// as the newest history entry. A zero price fills at the latest quote.
func (s *Service) ExecuteTrade(ctx context.Context, username, symbol string, side models.TradeSide, shares, price decimal.Decimal) (*models.Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case symbol == "":
		return nil, ErrInvalidSymbol
	case side != models.TradeSideBuy && side != models.TradeSideSell:
		return nil, fmt.Errorf("invalid side %q", side)
	case !shares.IsPositive():
		return nil, ErrInvalidQuantity
	case price.IsNegative():
		return nil, ErrInvalidPrice
	}

	if price.IsZero() {
		q, err := s.quotes.LatestQuote(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("no price for %s: %w", symbol, err)
		}
		price = q.Price.Round(2)
	}

	s.tradeMu.Lock()
	defer s.tradeMu.Unlock()

	h, held, err := s.holding(ctx, username, symbol)
	if err != nil {
		return nil, err
	}

	switch side {
	case models.TradeSideBuy:
		h.Buy(shares, price)
		err = s.store.UpsertHolding(ctx, username, h)
	case models.TradeSideSell:
		if !held {
			s.metrics.RecordTrade(string(side), string(models.TradeStatusRejected))
			return nil, fmt.Errorf("%s: %w", symbol, ErrNotHeld)
		}
		if h.Shares.LessThan(shares) {
			s.metrics.RecordTrade(string(side), string(models.TradeStatusRejected))
			return nil, fmt.Errorf("you have %s shares of %s: %w", h.Shares, symbol, ErrInsufficientShares)
		}
		h.Shares = h.Shares.Sub(shares)
		h.UpdatedAt = time.Now()
		if h.Shares.IsZero() {
			err = s.store.DeleteHolding(ctx, username, symbol)
		} else {
			err = s.store.UpsertHolding(ctx, username, h)
		}
	}
	if err != nil {
		return nil, err
	}

	trade := models.NewTrade(username, symbol, side, shares, price)
	trade.MarkExecuted()
	if err := s.store.AppendTrade(ctx, trade); err != nil {
		return nil, err
	}

	s.metrics.RecordTrade(string(side), string(trade.Status))
	observability.WithUser(username).Info("trade executed",
		"symbol", symbol,
		"side", side,
		"shares", shares.String(),
		"price", price.String())
	return trade, nil
}

// History returns the user's trades, newest first
func (s *Service) History(ctx context.Context, username string) ([]models.Trade, error) {
	return s.store.ListTrades(ctx, username)
}

func (s *Service) holding(ctx context.Context, username, symbol string) (models.Holding, bool, error) {
	holdings, err := s.store.GetPortfolio(ctx, username)
	if err != nil {
		return models.Holding{}, false, err
	}
	for _, h := range holdings {
		if h.Symbol == symbol {
			return h, true, nil
		}
	}
	return models.Holding{Symbol: symbol}, false, nil
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
