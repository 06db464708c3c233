package partials

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"stock-dashboard/indicators"
	"stock-dashboard/market"
	"stock-dashboard/screener"
	"stock-dashboard/services"
	"stock-dashboard/templates/components"
)

// Signal renders the trading signal of a snapshot
func Signal(snap *services.Snapshot, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		sig := snap.Result.Signal
		hw.Printf(`<div class="signal"><h3>%s</h3>`, components.Esc(snap.Symbol))
		hw.Render(ctx, components.Badge(string(sig.Label), strings.ToLower(string(sig.Label))))
		if last := snap.Result.LastClose(); last != nil {
			hw.Printf(` <span class="price">%s</span>`, components.Esc(cur.Format(*last)))
		}
		hw.Printf(`<p>%s</p>`, components.Esc(sig.Explain(cur.Format)))
		if snap.Degraded {
			hw.Printf(`<p class="degraded">Live data unavailable, showing defaults.</p>`)
		}
		hw.Printf(`</div>`)
		return hw.Err()
	})
}

// IndicatorStatuses renders the indicator status table
func IndicatorStatuses(symbol string, st indicators.Statuses) templ.Component {
	rows := [][2]string{
		{"Price vs SMA20", st.PriceVsSMA20},
		{"Price vs SMA50", st.PriceVsSMA50},
		{"Price vs SMA200", st.PriceVsSMA200},
		{"RSI", st.RSI},
		{"MACD", st.MACD},
		{"Stochastic", st.Stochastic},
		{"Bollinger Bands", st.Bollinger},
		{"Volume", st.Volume},
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h3>%s Indicators</h3><table class="indicators"><tbody>`, components.Esc(symbol))
		for _, r := range rows {
			hw.Printf(`<tr><th>%s</th><td>%s</td></tr>`, r[0], components.Esc(r[1]))
		}
		hw.Printf(`</tbody></table>`)
		return hw.Err()
	})
}

// Forecast renders the multi-day forecast of a snapshot
func Forecast(snap *services.Snapshot, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h3>%s Forecast</h3>`, components.Esc(snap.Symbol))
		if len(snap.Result.Forecast) == 0 {
			hw.Render(ctx, components.EmptyState("Not enough history to forecast"))
			return hw.Err()
		}
		hw.Printf(`<table class="forecast"><thead><tr><th>Day</th><th>Price</th></tr></thead><tbody>`)
		for _, p := range snap.Result.Forecast {
			hw.Printf(`<tr><td>+%d</td><td>%s</td></tr>`, p.Horizon, components.Esc(cur.Format(p.Price)))
		}
		hw.Printf(`</tbody></table><p class="note">Extrapolated from recent momentum. Not investment advice.</p>`)
		return hw.Err()
	})
}

// Outlook renders a weekly screener run as three buckets
func Outlook(o *screener.Outlook, cur market.Currency) templ.Component {
	buckets := []struct {
		title string
		preds []screener.Prediction
	}{
		{"Likely to go high", o.GoHigh},
		{"Likely to go low", o.GoLow},
		{"Neutral", o.Neutral},
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>Weekly Outlook</h2>`)
		for _, b := range buckets {
			hw.Printf(`<h3>%s</h3>`, b.title)
			if len(b.preds) == 0 {
				hw.Render(ctx, components.EmptyState("None"))
				continue
			}
			hw.Printf(`<table><thead><tr><th>Symbol</th><th>Price</th><th>Buy</th><th>Sell</th><th>Verdict</th></tr></thead><tbody>`)
			for _, p := range b.preds {
				hw.Printf(`<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
					components.Esc(p.Symbol), components.Esc(cur.Format(p.Price)),
					p.BuyVotes, p.SellVotes, components.Esc(string(p.Verdict)))
			}
			hw.Printf(`</tbody></table>`)
		}
		if len(o.Skipped) > 0 {
			hw.Printf(`<p class="skipped">No data: %s</p>`, components.Esc(strings.Join(o.Skipped, ", ")))
		}
		return hw.Err()
	})
}
