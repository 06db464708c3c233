package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-dashboard/config"
	"stock-dashboard/indicators"
	"stock-dashboard/internal/auth"
	"stock-dashboard/market"
	"stock-dashboard/observability"
	"stock-dashboard/portfolio"
	"stock-dashboard/repository"
	"stock-dashboard/screener"
	"stock-dashboard/services"
)

// Periods used by the dashboard views
const (
	SignalPeriod   = "3mo"
	ForecastPeriod = "1mo"
	NextBarPeriod  = "1mo"
)

// Options carries the collaborators chosen at startup
type Options struct {
	Provider services.MarketDataProvider
	Store    repository.Store
	Sessions auth.SessionStore
	Mirrors  []repository.Mirror
	Metrics  *observability.Metrics
}

// healthChecker is implemented by mirrors that can report connectivity
type healthChecker interface {
	Health(ctx context.Context) error
}

// App wires the dashboard services together for the HTTP layer
type App struct {
	cfg       *config.Config
	data      *services.MarketService
	store     repository.Store
	mirrors   []repository.Mirror
	auth      *auth.Service
	portfolio *portfolio.Service
	screener  *screener.Screener
	pulse     *market.Service
	currency  market.Currency
}

// New builds the application. A nil store gets an in-memory one and nil
// sessions get in-memory sessions with the configured TTL.
func New(cfg *config.Config, opts Options) *App {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.GetMetrics()
	}

	retry := services.DefaultRetryConfig
	retry.MaxRetries = cfg.Market.MaxRetries
	ms := services.NewMarketService(opts.Provider, services.MarketServiceConfig{
		Retry:   retry,
		Breaker: services.DefaultBreakerConfig,
		Pipeline: indicators.Pipeline{
			Horizon:     cfg.Forecast.Horizon,
			Damping:     cfg.Forecast.Damping,
			NoiseFactor: cfg.Forecast.NoiseFactor,
		},
		DefaultPrice: cfg.Market.DefaultPrice,
	}, metrics)

	var store repository.Store = opts.Store
	if store == nil {
		store = repository.NewMemoryStore()
	}
	if len(opts.Mirrors) > 0 {
		store = repository.NewMirroredStore(store, metrics, opts.Mirrors...)
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = auth.NewMemorySessions(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	}

	currency := market.Currency{Factor: cfg.Market.CurrencyFactor, Symbol: cfg.Market.CurrencySymbol}

	return &App{
		cfg:       cfg,
		data:      ms,
		store:     store,
		mirrors:   opts.Mirrors,
		auth:      auth.NewService(store, sessions, metrics),
		portfolio: portfolio.NewService(store, ms, metrics),
		screener:  screener.NewScreener(ms, &cfg.Screener, metrics),
		pulse:     market.NewService(ms, cfg.File.Pulse, currency, metrics),
		currency:  currency,
	}
}

// Seed creates the demo accounts from the config file
func (a *App) Seed(ctx context.Context) error {
	if err := repository.Seed(ctx, a.store, a.cfg.File.Users, auth.HashPassword); err != nil {
		return fmt.Errorf("seed demo users: %w", err)
	}
	observability.Info("demo users seeded", "count", len(a.cfg.File.Users))
	return nil
}

// Start begins background work
func (a *App) Start() error {
	return a.pulse.Start(a.cfg.Market.PulseCron)
}

// Shutdown stops background work and closes the mirrors
func (a *App) Shutdown(ctx context.Context) error {
	a.pulse.Stop()
	var errs []error
	for _, m := range a.mirrors {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s mirror: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Market() *services.MarketService { return a.data }
func (a *App) Auth() *auth.Service { return a.auth }
func (a *App) Portfolio() *portfolio.Service { return a.portfolio }
func (a *App) Screener() *screener.Screener { return a.screener }
func (a *App) Pulse() *market.Service { return a.pulse }
func (a *App) Currency() market.Currency { return a.currency }

// Watchlist returns the configured screener and quote symbols
func (a *App) Watchlist() []string {
	return a.cfg.File.Watchlist
}

// WeeklyOutlook runs the screener over the watchlist
func (a *App) WeeklyOutlook(ctx context.Context) *screener.Outlook {
	return a.screener.WeeklyOutlook(ctx, a.Watchlist())
}

// NextBar computes a snapshot over the short range and draws a one-step
// forecast from it.
func (a *App) NextBar(ctx context.Context, symbol string) (*services.Snapshot, float64, bool) {
	snap := a.data.Snapshot(ctx, symbol, NextBarPeriod)
	price, ok := a.data.NextBar(snap)
	return snap, price, ok
}

// ComponentHealth is the status of one dependency
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health reports the provider breakers and mirror connectivity. The app is
// degraded, not down, when any of them is unhealthy.
func (a *App) Health(ctx context.Context) (string, []ComponentHealth, map[string]services.BreakerStatus) {
	status := "ok"
	var comps []ComponentHealth

	for _, m := range a.mirrors {
		c := ComponentHealth{Name: m.Name(), Status: "connected"}
		if hc, ok := m.(healthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				c.Status = "disconnected"
				c.Error = err.Error()
				status = "degraded"
			}
		}
		comps = append(comps, c)
	}

	breakers := a.data.Breakers().Status()
	for _, b := range breakers {
		if b.State == "open" {
			status = "degraded"
		}
	}
	return status, comps, breakers
}
