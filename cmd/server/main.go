// Package main runs the stock dashboard HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"stock-dashboard/config"
	"stock-dashboard/internal/api"
	"stock-dashboard/internal/app"
	"stock-dashboard/internal/auth"
	"stock-dashboard/observability"
	"stock-dashboard/repository"
	"stock-dashboard/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	metrics := observability.InitMetrics()

	ctx := context.Background()

	opts := app.Options{
		Provider: newProvider(cfg),
		Metrics:  metrics,
	}

	// Mirrors and shared sessions are optional; the dashboard runs on the
	// in-memory store when they are unavailable.
	if cfg.HasDatabase() {
		pg, err := repository.NewPostgresMirror(ctx, cfg.Database.URL, metrics)
		if err != nil {
			observability.Warn("postgres mirror disabled", "error", err)
		} else {
			opts.Mirrors = append(opts.Mirrors, pg)
			observability.Info("postgres mirror connected")
		}
	}
	if cfg.HasSQLite() {
		lite, err := repository.NewSQLiteMirror(cfg.Database.SQLitePath, metrics)
		if err != nil {
			observability.Warn("sqlite mirror disabled", "path", cfg.Database.SQLitePath, "error", err)
		} else {
			opts.Mirrors = append(opts.Mirrors, lite)
			observability.Info("sqlite mirror opened", "path", cfg.Database.SQLitePath)
		}
	}
	if cfg.HasRedis() {
		rdb, err := auth.DialRedis(ctx, cfg.Redis.URL)
		if err != nil {
			observability.Warn("redis sessions disabled, using memory", "error", err)
		} else {
			defer rdb.Close()
			opts.Sessions = auth.NewRedisSessions(rdb, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
			observability.Info("redis sessions enabled")
		}
	}

	application := app.New(cfg, opts)
	if err := application.Seed(ctx); err != nil {
		observability.Fatal("failed to seed demo data", "error", err)
	}
	if err := application.Start(); err != nil {
		observability.Fatal("failed to schedule market pulse", "error", err)
	}

	handler := api.NewHandler(application)
	router := api.NewRouter(handler, cfg, api.RouterOptions{
		Metrics:  metrics,
		Gatherer: prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		observability.Info("starting dashboard server",
			"port", cfg.HTTP.Port,
			"provider", cfg.Market.Provider,
			"url", fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down dashboard server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		observability.Warn("shutdown incomplete", "error", err)
	}
	observability.Info("dashboard server stopped")
}

func newProvider(cfg *config.Config) services.MarketDataProvider {
	if cfg.Market.Provider == config.ProviderAlpaca {
		return services.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.Feed)
	}
	return services.NewYahooProvider(cfg.Market.YahooBaseURL, time.Duration(cfg.Market.RequestTimeoutSec)*time.Second)
}
