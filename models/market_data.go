package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents OHLCV price data for a time period.
// Prices stay float64 because every indicator is float arithmetic.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Finite reports whether every numeric field is a real number
func (b Bar) Finite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Quote represents the latest price of a stock relative to the previous close
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
	Degraded      bool            `json:"degraded,omitempty"`
}

// NewQuote builds a quote and derives the change fields from the two prices
func NewQuote(symbol string, price, previousClose decimal.Decimal, volume int64, ts time.Time) *Quote {
	q := &Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: previousClose,
		Change:        price.Sub(previousClose),
		ChangePercent: decimal.Zero,
		Volume:        volume,
		Timestamp:     ts,
	}
	if !previousClose.IsZero() {
		q.ChangePercent = q.Change.Div(previousClose).Mul(decimal.NewFromInt(100))
	}
	return q
}

// QuoteFromBars derives a quote from the last two bars of a series.
// A single bar is treated as its own previous close.
func QuoteFromBars(symbol string, bars []Bar) *Quote {
	if len(bars) == 0 {
		return nil
	}
	last := bars[len(bars)-1]
	prev := last.Close
	if len(bars) > 1 {
		prev = bars[len(bars)-2].Close
	}
	return NewQuote(symbol, decimal.NewFromFloat(last.Close), decimal.NewFromFloat(prev), int64(last.Volume), last.Timestamp)
}
