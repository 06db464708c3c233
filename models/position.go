package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one symbol in a user's portfolio
type Holding struct {
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *Holding) CostBasis() decimal.Decimal {
	return h.Shares.Mul(h.AvgPrice)
}

func (h *Holding) MarketValue(price decimal.Decimal) decimal.Decimal {
	return h.Shares.Mul(price)
}

func (h *Holding) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return price.Sub(h.AvgPrice).Mul(h.Shares)
}

// UnrealizedPLPercent returns P/L relative to the cost basis, in percent
func (h *Holding) UnrealizedPLPercent(price decimal.Decimal) decimal.Decimal {
	cost := h.CostBasis()
	if cost.IsZero() {
		return decimal.Zero
	}
	return h.UnrealizedPL(price).Div(cost).Mul(decimal.NewFromInt(100))
}

// Buy adds shares at price and moves the average cost
func (h *Holding) Buy(shares, price decimal.Decimal) {
	total := h.Shares.Add(shares)
	if total.IsZero() {
		return
	}
	h.AvgPrice = h.CostBasis().Add(shares.Mul(price)).Div(total)
	h.Shares = total
	h.UpdatedAt = time.Now()
}
