package partials

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"stock-dashboard/market"
	"stock-dashboard/models"
	"stock-dashboard/templates/components"
)

// MarketPulse renders the home page sentiment overview
func MarketPulse(p *market.Pulse, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>Market Pulse</h2><p>Market: `)
		hw.Render(ctx, sentimentBadge(p.Market))
		hw.Printf(` <small>score %.2f</small></p>`, p.Market.Score)

		hw.Printf(`<table class="sectors"><thead><tr><th>Sector</th><th>Sentiment</th><th>Score</th></tr></thead><tbody>`)
		for _, s := range p.Sectors {
			hw.Printf(`<tr><td>%s</td><td>`, components.Esc(s.Name))
			hw.Render(ctx, sentimentBadge(s.Sentiment))
			hw.Printf(`</td><td>%.2f</td></tr>`, s.Score)
		}
		hw.Printf(`</tbody></table>`)

		if len(p.Movers) > 0 {
			hw.Printf(`<h3>Top Movers</h3><ul class="movers">`)
			for _, m := range p.Movers {
				hw.Printf(`<li><strong>%s</strong> %s <span class="%s">%+.2f%%</span></li>`,
					components.Esc(m.Symbol), components.Esc(cur.Format(m.Price)),
					components.SignClass(m.ChangePercent), m.ChangePercent)
			}
			hw.Printf(`</ul>`)
		}

		hw.Render(ctx, Articles(p.Articles))
		hw.Printf(`<p class="updated">Updated %s</p>`, p.UpdatedAt.Format("15:04:05"))
		return hw.Err()
	})
}

// Articles renders a headline list
func Articles(articles []market.Article) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		if len(articles) == 0 {
			hw.Render(ctx, components.EmptyState("No news right now"))
			return hw.Err()
		}
		hw.Printf(`<ul class="articles">`)
		for _, a := range articles {
			hw.Printf(`<li><h4>%s</h4><p>%s</p>`, components.Esc(a.Title), components.Esc(a.Summary))
			if a.Timestamp != "" {
				hw.Printf(`<time>%s</time>`, components.Esc(a.Timestamp))
			}
			hw.Printf(`</li>`)
		}
		hw.Printf(`</ul>`)
		return hw.Err()
	})
}

// Sentiment renders the sample sentiment entry for one symbol
func Sentiment(s market.StockSentiment) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>%s Sentiment</h2><p>`, components.Esc(s.Symbol))
		hw.Render(ctx, sentimentBadge(s.Sentiment))
		hw.Printf(` <small>score %.2f</small></p>`, s.Score)
		hw.Render(ctx, Articles(s.Articles))
		return hw.Err()
	})
}

// Quotes renders watchlist quote cards
func Quotes(quotes []*models.Quote, cur market.Currency) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(`<h2>Watchlist</h2><table class="quotes"><thead><tr><th>Symbol</th><th>Name</th><th>Price</th><th>Change</th></tr></thead><tbody>`)
		for _, q := range quotes {
			pct := q.ChangePercent.InexactFloat64()
			hw.Printf(`<tr><td>%s</td><td>%s</td><td>%s</td><td class="%s">%s (%+.2f%%)</td></tr>`,
				components.Esc(q.Symbol), components.Esc(market.CompanyName(q.Symbol)),
				components.Esc(cur.FormatDecimal(q.Price)), components.SignClass(pct),
				components.Esc(cur.FormatDecimal(q.Change)), pct)
		}
		hw.Printf(`</tbody></table>`)
		return hw.Err()
	})
}

func sentimentBadge(s market.Sentiment) templ.Component {
	kind := "neutral"
	switch s.Label {
	case market.LabelBullish:
		kind = "bullish"
	case market.LabelBearish:
		kind = "bearish"
	}
	return components.Badge(s.Label, kind)
}
