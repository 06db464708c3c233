package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stock-dashboard/models"
)

// AlpacaProvider reads bars from the Alpaca market data API
type AlpacaProvider struct {
	client *marketdata.Client
	feed   string
	now    func() time.Time
}

// NewAlpacaProvider creates a provider. feed is "iex" or "sip".
func NewAlpacaProvider(apiKey, apiSecret, feed string) *AlpacaProvider {
	return &AlpacaProvider{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		feed: feed,
		now:  time.Now,
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// GetBars fetches the bars covering r, ending now
func (p *AlpacaProvider) GetBars(ctx context.Context, symbol string, r Range) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf, err := alpacaTimeFrame(r.Interval)
	if err != nil {
		return nil, Permanent(err)
	}

	end := p.now()
	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     r.Start(end),
		End:       end,
		Feed:      marketdata.Feed(p.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
	}
	return convertAlpacaBars(bars), nil
}

// alpacaTimeFrame maps a chart interval such as "5m", "1d" or "1wk"
func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	units := []struct {
		suffix string
		unit   marketdata.TimeFrameUnit
	}{
		{"wk", marketdata.Week},
		{"mo", marketdata.Month},
		{"m", marketdata.Min},
		{"h", marketdata.Hour},
		{"d", marketdata.Day},
	}
	for _, u := range units {
		if !strings.HasSuffix(interval, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(interval, u.suffix))
		if err != nil || n <= 0 {
			break
		}
		return marketdata.NewTimeFrame(n, u.unit), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %q", interval)
}

func convertAlpacaBars(bars []marketdata.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, models.Bar{
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	return out
}
