package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// saveEnv saves current environment variables for restoration
func saveEnv(t *testing.T, keys []string) map[string]string {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range keys {
		saved[key] = os.Getenv(key)
	}
	return saved
}

// restoreEnv restores previously saved environment variables
func restoreEnv(t *testing.T, saved map[string]string) {
	t.Helper()
	for key, val := range saved {
		if val == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, val)
		}
	}
}

// clearEnv clears environment variables
func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

var allEnvKeys = []string{
	"CONFIG_FILE",
	"DATABASE_URL",
	"SQLITE_PATH",
	"REDIS_URL",
	"ALPACA_API_KEY",
	"ALPACA_API_SECRET",
	"ALPACA_DATA_FEED",
	"MARKET_DATA_PROVIDER",
	"YAHOO_BASE_URL",
	"MARKET_REQUEST_TIMEOUT_SEC",
	"MARKET_MAX_RETRIES",
	"MARKET_DEFAULT_PRICE",
	"DISPLAY_CURRENCY_FACTOR",
	"DISPLAY_CURRENCY_SYMBOL",
	"MARKET_PULSE_CRON",
	"FORECAST_HORIZON",
	"FORECAST_DAMPING",
	"FORECAST_NOISE_FACTOR",
	"SCREENER_PERIOD",
	"SCREENER_TIMEOUT_SEC",
	"SCREENER_MAX_CONCURRENT",
	"SESSION_TTL_MINUTES",
	"SESSION_COOKIE_NAME",
	"SESSION_COOKIE_SECURE",
	"PORT",
	"CORS_ALLOWED_ORIGINS",
	"LOG_JSON",
	"LOG_LEVEL",
}

func TestLoad_Defaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Market.Provider != ProviderYahoo {
		t.Errorf("expected Provider=yahoo, got %s", cfg.Market.Provider)
	}
	if cfg.Market.CurrencyFactor != 83.0 {
		t.Errorf("expected CurrencyFactor=83, got %f", cfg.Market.CurrencyFactor)
	}
	if cfg.Market.CurrencySymbol != "₹" {
		t.Errorf("expected CurrencySymbol=₹, got %s", cfg.Market.CurrencySymbol)
	}
	if cfg.Forecast.Horizon != 7 || cfg.Forecast.Damping != 0.8 || cfg.Forecast.NoiseFactor != 0.1 {
		t.Errorf("unexpected forecast defaults: %+v", cfg.Forecast)
	}
	if cfg.Screener.Period != "3mo" || cfg.Screener.MaxConcurrent != 5 {
		t.Errorf("unexpected screener defaults: %+v", cfg.Screener)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if len(cfg.File.Watchlist) != 10 {
		t.Errorf("expected 10 watchlist symbols, got %d", len(cfg.File.Watchlist))
	}
	if cfg.HasDatabase() || cfg.HasSQLite() || cfg.HasRedis() || cfg.HasAlpaca() {
		t.Error("no optional backends should be configured by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SQLITE_PATH", "/tmp/dash.db")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	os.Setenv("MARKET_DATA_PROVIDER", "Alpaca")
	os.Setenv("ALPACA_API_KEY", "test-key")
	os.Setenv("ALPACA_API_SECRET", "test-secret")
	os.Setenv("DISPLAY_CURRENCY_FACTOR", "1")
	os.Setenv("DISPLAY_CURRENCY_SYMBOL", "$")
	os.Setenv("FORECAST_HORIZON", "10")
	os.Setenv("FORECAST_DAMPING", "0.5")
	os.Setenv("PORT", "9090")
	os.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	os.Setenv("LOG_JSON", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with custom values failed: %v", err)
	}

	if !cfg.HasDatabase() || !cfg.HasSQLite() || !cfg.HasRedis() || !cfg.HasAlpaca() {
		t.Error("all optional backends should be configured")
	}
	if cfg.Market.Provider != ProviderAlpaca {
		t.Errorf("expected Provider=alpaca, got %s", cfg.Market.Provider)
	}
	if cfg.Market.CurrencyFactor != 1 || cfg.Market.CurrencySymbol != "$" {
		t.Errorf("unexpected currency: %f %s", cfg.Market.CurrencyFactor, cfg.Market.CurrencySymbol)
	}
	if cfg.Forecast.Horizon != 10 || cfg.Forecast.Damping != 0.5 {
		t.Errorf("unexpected forecast: %+v", cfg.Forecast)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.CORSAllowedOrigins != "http://localhost:3000" {
		t.Errorf("expected CORSAllowedOrigins='http://localhost:3000', got %s", cfg.HTTP.CORSAllowedOrigins)
	}
	if !cfg.Log.Production {
		t.Error("expected Log.Production=true")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("FORECAST_DAMPING", "1.5")
	os.Setenv("SCREENER_MAX_CONCURRENT", "-2")
	os.Setenv("SESSION_COOKIE_SECURE", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Forecast.Damping != 0.8 {
		t.Errorf("out-of-range damping should fall back to 0.8, got %f", cfg.Forecast.Damping)
	}
	if cfg.Screener.MaxConcurrent != 5 {
		t.Errorf("negative concurrency should fall back to 5, got %d", cfg.Screener.MaxConcurrent)
	}
	if cfg.Session.CookieSecure {
		t.Error("unparseable bool should fall back to false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"test config is valid", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Market.Provider = "bloomberg" }, "MARKET_DATA_PROVIDER"},
		{"alpaca without keys", func(c *Config) { c.Market.Provider = ProviderAlpaca }, "ALPACA_API_KEY"},
		{"alpaca with keys", func(c *Config) {
			c.Market.Provider = ProviderAlpaca
			c.Alpaca.APIKey, c.Alpaca.APISecret = "k", "s"
		}, ""},
		{"zero currency factor", func(c *Config) { c.Market.CurrencyFactor = 0 }, "DISPLAY_CURRENCY_FACTOR"},
		{"negative default price", func(c *Config) { c.Market.DefaultPrice = -1 }, "MARKET_DEFAULT_PRICE"},
		{"horizon too long", func(c *Config) { c.Forecast.Horizon = 31 }, "FORECAST_HORIZON"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "PORT"},
		{"empty watchlist", func(c *Config) { c.File.Watchlist = nil }, "watchlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		cfg, err := LoadFile("")
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(cfg.Pulse.Indices) != 3 || len(cfg.Pulse.Sectors) != 5 || len(cfg.Users) != 3 {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("missing file gives defaults", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(cfg.Watchlist) != 10 {
			t.Errorf("expected default watchlist, got %v", cfg.Watchlist)
		}
	})

	t.Run("overlay replaces listed keys only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dashboard.yaml")
		body := `
watchlist: [IBM, ORCL]
users:
  - username: praveen
    email: praveen@example.com
    password: "12"
    holdings:
      - {symbol: TSLA, shares: 3, avg_price: 700}
`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(cfg.Watchlist) != 2 || cfg.Watchlist[0] != "IBM" {
			t.Errorf("Watchlist = %v, want [IBM ORCL]", cfg.Watchlist)
		}
		if len(cfg.Users) != 1 || cfg.Users[0].Holdings[0].AvgPrice != 700 {
			t.Errorf("Users = %+v", cfg.Users)
		}
		if len(cfg.Pulse.Movers) != 7 {
			t.Errorf("Pulse should keep defaults, got %+v", cfg.Pulse)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("watchlist: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}
