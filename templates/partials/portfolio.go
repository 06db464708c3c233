package partials

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"stock-dashboard/market"
	"stock-dashboard/models"
	"stock-dashboard/portfolio"
	"stock-dashboard/templates/components"
)

// Portfolio renders a valued portfolio with totals
func Portfolio(s *portfolio.Summary, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>Portfolio</h2>`)
		if len(s.Positions) == 0 {
			hw.Render(ctx, components.EmptyState("No holdings yet"))
			return hw.Err()
		}
		hw.Printf(`<table class="positions"><thead><tr><th>Symbol</th><th>Shares</th><th>Avg Price</th><th>Current</th><th>Value</th><th>P/L</th><th>Return</th></tr></thead><tbody>`)
		for _, p := range s.Positions {
			ret := p.ReturnPercent.InexactFloat64()
			hw.Printf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class="%s">%s</td><td class="%s">%s%%</td></tr>`,
				components.Esc(p.Symbol), p.Shares.String(),
				components.Esc(cur.FormatDecimal(p.AvgPrice)), components.Esc(cur.FormatDecimal(p.CurrentPrice)),
				components.Esc(cur.FormatDecimal(p.MarketValue)),
				components.SignClass(ret), components.Esc(cur.FormatDecimal(p.ProfitLoss)),
				components.SignClass(ret), p.ReturnPercent.StringFixed(2))
		}
		total := s.ReturnPercent.InexactFloat64()
		hw.Printf(`</tbody></table><dl class="totals">
<dt>Invested</dt><dd>%s</dd>
<dt>Value</dt><dd>%s</dd>
<dt>P/L</dt><dd class="%s">%s (%s%%)</dd>
<dt>Best performer</dt><dd>%s</dd>
</dl>`,
			components.Esc(cur.FormatDecimal(s.TotalInvested)), components.Esc(cur.FormatDecimal(s.TotalValue)),
			components.SignClass(total), components.Esc(cur.FormatDecimal(s.TotalProfitLoss)), s.ReturnPercent.StringFixed(2),
			components.Esc(s.BestPerformer))
		return hw.Err()
	})
}

// TradeHistory renders a user's trades, newest first
func TradeHistory(trades []models.Trade, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>Trading History</h2>`)
		if len(trades) == 0 {
			hw.Render(ctx, components.EmptyState("No trades yet"))
			return hw.Err()
		}
		hw.Printf(`<table class="trades"><thead><tr><th>Date</th><th>Symbol</th><th>Side</th><th>Qty</th><th>Price</th><th>Total</th><th>Status</th></tr></thead><tbody>`)
		for _, t := range trades {
			hw.Printf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				t.CreatedAt.Format("2006-01-02 15:04"), components.Esc(t.Symbol), components.Esc(string(t.Side)),
				t.Quantity.String(), components.Esc(cur.FormatDecimal(t.Price)),
				components.Esc(cur.FormatDecimal(t.TotalValue)), components.Esc(string(t.Status)))
		}
		hw.Printf(`</tbody></table>`)
		return hw.Err()
	})
}

// TradeConfirmation renders the result of an executed trade
func TradeConfirmation(t *models.Trade, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<div class="trade-confirmation"><p>%s %s %s at %s (total %s)</p></div>`,
			components.Esc(string(t.Side)), t.Quantity.String(), components.Esc(t.Symbol),
			components.Esc(cur.FormatDecimal(t.Price)), components.Esc(cur.FormatDecimal(t.TotalValue)))
		return hw.Err()
	})
}
