package services

import (
	"context"

	"stock-dashboard/models"
)

// MarketDataProvider fetches raw OHLCV bars. An unknown symbol or an empty
// window is an empty slice with a nil error; an error means the upstream failed.
type MarketDataProvider interface {
	Name() string
	GetBars(ctx context.Context, symbol string, r Range) ([]models.Bar, error)
}

// Compile-time interface verification
var _ MarketDataProvider = (*YahooProvider)(nil)
var _ MarketDataProvider = (*AlpacaProvider)(nil)
