package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"stock-dashboard/templates/components"
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#0f172a;color:#e2e8f0}
header{display:flex;justify-content:space-between;align-items:center;padding:1rem 2rem;background:#1e293b}
main{display:grid;grid-template-columns:repeat(auto-fit,minmax(340px,1fr));gap:1rem;padding:1rem 2rem}
section{background:#1e293b;border-radius:8px;padding:1rem}
table{width:100%%;border-collapse:collapse}td,th{padding:.25rem .5rem;text-align:left}
.up{color:#22c55e}.down{color:#ef4444}.flat{color:#94a3b8}
.badge{padding:.1rem .5rem;border-radius:4px;font-weight:600}
.badge-buy,.badge-bullish{background:#14532d}.badge-sell,.badge-bearish{background:#7f1d1d}
.badge-hold,.badge-neutral{background:#334155}
.error-state{color:#fca5a5}.empty-state{color:#94a3b8}
</style>
</head>
<body>
`

// Index is the dashboard shell. Each panel loads its partial over HTMX.
func Index() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(pageHead, "Stock Dashboard")
		hw.Printf(`<header><h1>Stock Dashboard</h1>
<form hx-post="/api/auth/logout" hx-swap="none"><button type="submit">Log out</button></form>
</header>
<main>
<section id="pulse" hx-get="/api/market/pulse" hx-trigger="load, every 300s"><p>Loading market pulse...</p></section>
<section id="news" hx-get="/api/news" hx-trigger="load"><p>Loading news...</p></section>
<section id="watchlist" hx-get="/api/stocks" hx-trigger="load, every 60s"><p>Loading watchlist...</p></section>
<section id="portfolio" hx-get="/api/portfolio" hx-trigger="load"><p>Loading portfolio...</p></section>
<section id="trade">
<h2>Trade</h2>
<form hx-post="/api/trades" hx-target="#trade-result">
<input name="symbol" placeholder="Symbol" required>
<input name="quantity" type="number" step="any" min="0" placeholder="Shares" required>
<input name="price" type="number" step="any" min="0" placeholder="Price (blank for market)">
<select name="side"><option value="buy">Buy</option><option value="sell">Sell</option></select>
<button type="submit">Execute</button>
</form>
<div id="trade-result"></div>
</section>
<section id="history" hx-get="/api/trades" hx-trigger="load"><p>Loading history...</p></section>
<section id="outlook" hx-get="/api/screener/weekly" hx-trigger="load"><p>Loading weekly outlook...</p></section>
</main>
</body>
</html>`)
		return hw.Err()
	})
}

// Login is the sign-in and sign-up page
func Login(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := components.NewWriter(w)
		hw.Printf(pageHead, "Sign in - Stock Dashboard")
		hw.Printf(`<main><section><h1>Sign in</h1>`)
		if message != "" {
			hw.Render(ctx, components.ErrorState(message))
		}
		hw.Printf(`<form method="post" action="/api/auth/login">
<input name="username" placeholder="Username" required>
<input name="password" type="password" placeholder="Password" required>
<button type="submit">Sign in</button>
</form>
<h2>Create an account</h2>
<form method="post" action="/api/auth/signup">
<input name="username" placeholder="Username" required>
<input name="email" type="email" placeholder="Email">
<input name="password" type="password" placeholder="Password" required>
<button type="submit">Sign up</button>
</form>
</section></main>
</body>
</html>`)
		return hw.Err()
	})
}
