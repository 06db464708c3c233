package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Trade struct {
	ID         uuid.UUID       `json:"id"`
	Username   string          `json:"username"`
	Symbol     string          `json:"symbol"`
	Side       TradeSide       `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"total_value"`
	Status     TradeStatus     `json:"status"`
	ExecutedAt *time.Time      `json:"executed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// ParseTradeSide accepts the side case-insensitively
func ParseTradeSide(s string) (TradeSide, bool) {
	switch s {
	case "buy", "BUY", "Buy":
		return TradeSideBuy, true
	case "sell", "SELL", "Sell":
		return TradeSideSell, true
	}
	return "", false
}

type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusExecuted TradeStatus = "executed"
	TradeStatusRejected TradeStatus = "rejected"
)

func NewTrade(username, symbol string, side TradeSide, quantity, price decimal.Decimal) *Trade {
	return &Trade{
		ID:         uuid.New(),
		Username:   username,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		TotalValue: quantity.Mul(price),
		Status:     TradeStatusPending,
		CreatedAt:  time.Now(),
	}
}

// MarkExecuted stamps the trade as filled now
func (t *Trade) MarkExecuted() {
	now := time.Now()
	t.Status = TradeStatusExecuted
	t.ExecutedAt = &now
}
