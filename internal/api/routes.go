package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stock-dashboard/config"
	"stock-dashboard/observability"
)

// RouterOptions selects the metrics sinks. Zero values use the globals.
type RouterOptions struct {
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware(opts.Metrics))

	// Pages
	r.Get("/", h.HandleIndex)
	r.Get("/index.html", h.HandleIndex)
	r.Get("/login", h.HandleLoginPage)

	// Metrics endpoint for Prometheus
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	requireSession := RequireSession(h.app.Auth(), cfg.Session.CookieName)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.HandleSignup)
			r.Post("/login", h.HandleLogin)
			r.Post("/logout", h.HandleLogout)
		})

		// Market overview
		r.Get("/market/pulse", h.HandleMarketPulse)
		r.Get("/news", h.HandleNews)
		r.Get("/sentiment", h.HandleSentimentOverview)

		// Stocks
		r.Get("/stocks", h.HandleGetStocks)
		r.Route("/stocks/{symbol}", func(r chi.Router) {
			r.Get("/", h.HandleGetStock)
			r.Get("/chart", h.HandleGetChart)
			r.Get("/indicators", h.HandleGetIndicators)
			r.Get("/signal", h.HandleGetSignal)
			r.Get("/forecast", h.HandleGetForecast)
			r.Get("/forecast/next", h.HandleGetNextBar)
			r.Get("/sentiment", h.HandleGetSentiment)
		})

		r.Get("/screener/weekly", h.HandleWeeklyOutlook)

		// Account scoped
		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/portfolio", h.HandleGetPortfolio)
			r.Post("/portfolio", h.HandleAddHolding)
			r.Get("/trades", h.HandleGetTrades)
			r.Post("/trades", h.HandleExecuteTrade)
		})
	})

	return r
}
