package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Database configuration for the best-effort mirrors
	Database DatabaseConfig

	// Redis configuration for shared sessions
	Redis RedisConfig

	// External service configurations
	Alpaca AlpacaConfig
	Market MarketConfig

	// Indicator pipeline configuration
	Forecast ForecastConfig

	// Screener configuration
	Screener ScreenerConfig

	// Session configuration
	Session SessionConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig

	// Seed data and symbol lists, loaded from CONFIG_FILE
	File FileConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL        string
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca market data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	Feed      string
}

// MarketConfig holds market data and display configuration
type MarketConfig struct {
	Provider          string  // yahoo or alpaca
	YahooBaseURL      string  // chart API base, overridable for tests
	RequestTimeoutSec int     // per provider request
	MaxRetries        int     // retries per provider request
	DefaultPrice      float64 // price of the degraded snapshot, in provider currency
	CurrencyFactor    float64 // display multiplier applied at the HTTP boundary
	CurrencySymbol    string
	PulseCron         string // robfig/cron spec with seconds
}

// ForecastConfig holds forecast stage configuration
type ForecastConfig struct {
	Horizon     int
	Damping     float64
	NoiseFactor float64
}

// ScreenerConfig holds weekly outlook screener configuration
type ScreenerConfig struct {
	Period        string // history range per symbol (default: 3mo)
	TimeoutSec    int    // timeout for a full run in seconds (default: 60)
	MaxConcurrent int    // max concurrent symbol fetches (default: 5)
}

// SessionConfig holds login session configuration
type SessionConfig struct {
	TTLMinutes   int
	CookieName   string
	CookieSecure bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins string
	ReadTimeoutSec     int
	WriteTimeoutSec    int
	RequestTimeoutSec  int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Production bool
	Level      string
}

// Load loads configuration from environment variables, overlaid with the
// optional YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	file, err := LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:        os.Getenv("DATABASE_URL"),
			SQLitePath: os.Getenv("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			Feed:      getEnvString("ALPACA_DATA_FEED", "iex"),
		},
		Market: MarketConfig{
			Provider:          strings.ToLower(getEnvString("MARKET_DATA_PROVIDER", "yahoo")),
			YahooBaseURL:      getEnvString("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestTimeoutSec: getEnvInt("MARKET_REQUEST_TIMEOUT_SEC", 15),
			MaxRetries:        getEnvInt("MARKET_MAX_RETRIES", 2),
			DefaultPrice:      getEnvFloatUnbounded("MARKET_DEFAULT_PRICE", 100),
			CurrencyFactor:    getEnvFloatUnbounded("DISPLAY_CURRENCY_FACTOR", 83.0),
			CurrencySymbol:    getEnvString("DISPLAY_CURRENCY_SYMBOL", "₹"),
			PulseCron:         getEnvString("MARKET_PULSE_CRON", "0 */5 * * * *"),
		},
		Forecast: ForecastConfig{
			Horizon:     getEnvInt("FORECAST_HORIZON", 7),
			Damping:     getEnvFloatRange("FORECAST_DAMPING", 0.8, 0, 1),
			NoiseFactor: getEnvFloatRange("FORECAST_NOISE_FACTOR", 0.1, 0, 1),
		},
		Screener: ScreenerConfig{
			Period:        getEnvString("SCREENER_PERIOD", "3mo"),
			TimeoutSec:    getEnvInt("SCREENER_TIMEOUT_SEC", 60),
			MaxConcurrent: getEnvInt("SCREENER_MAX_CONCURRENT", 5),
		},
		Session: SessionConfig{
			TTLMinutes:   getEnvInt("SESSION_TTL_MINUTES", 720),
			CookieName:   getEnvString("SESSION_COOKIE_NAME", "dashboard_session"),
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("PORT", 8080),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			ReadTimeoutSec:     getEnvInt("HTTP_READ_TIMEOUT_SEC", 15),
			WriteTimeoutSec:    getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 90),
			RequestTimeoutSec:  getEnvInt("HTTP_REQUEST_TIMEOUT_SEC", 60),
		},
		Log: LogConfig{
			Production: getEnvBool("LOG_JSON", false),
			Level:      getEnvString("LOG_LEVEL", "info"),
		},
		File: *file,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Market.Provider {
	case ProviderYahoo:
	case ProviderAlpaca:
		if !c.HasAlpaca() {
			return fmt.Errorf("MARKET_DATA_PROVIDER=alpaca requires ALPACA_API_KEY and ALPACA_API_SECRET")
		}
	default:
		return fmt.Errorf("MARKET_DATA_PROVIDER must be yahoo or alpaca, got %q", c.Market.Provider)
	}

	if c.Market.CurrencyFactor <= 0 {
		return fmt.Errorf("DISPLAY_CURRENCY_FACTOR must be positive, got %.2f", c.Market.CurrencyFactor)
	}
	if c.Market.DefaultPrice <= 0 {
		return fmt.Errorf("MARKET_DEFAULT_PRICE must be positive, got %.2f", c.Market.DefaultPrice)
	}
	if c.Forecast.Horizon <= 0 || c.Forecast.Horizon > 30 {
		return fmt.Errorf("FORECAST_HORIZON must be between 1 and 30, got %d", c.Forecast.Horizon)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %d", c.HTTP.Port)
	}
	if len(c.File.Watchlist) == 0 {
		return fmt.Errorf("watchlist in CONFIG_FILE must not be empty")
	}

	return nil
}

// Provider names
const (
	ProviderYahoo  = "yahoo"
	ProviderAlpaca = "alpaca"
)

// HasDatabase returns true if a Postgres mirror is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasSQLite returns true if a SQLite mirror is configured
func (c *Config) HasSQLite() bool {
	return c.Database.SQLitePath != ""
}

// HasRedis returns true if sessions should be stored in Redis
func (c *Config) HasRedis() bool {
	return c.Redis.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Alpaca: AlpacaConfig{
			Feed: "iex",
		},
		Market: MarketConfig{
			Provider:          ProviderYahoo,
			YahooBaseURL:      "http://127.0.0.1:0",
			RequestTimeoutSec: 5,
			MaxRetries:        1,
			DefaultPrice:      100,
			CurrencyFactor:    83.0,
			CurrencySymbol:    "₹",
			PulseCron:         "0 */5 * * * *",
		},
		Forecast: ForecastConfig{
			Horizon:     7,
			Damping:     0.8,
			NoiseFactor: 0.1,
		},
		Screener: ScreenerConfig{
			Period:        "3mo",
			TimeoutSec:    10,
			MaxConcurrent: 3,
		},
		Session: SessionConfig{
			TTLMinutes: 60,
			CookieName: "dashboard_session",
		},
		HTTP: HTTPConfig{
			Port:               8080,
			CORSAllowedOrigins: "*",
			ReadTimeoutSec:     15,
			WriteTimeoutSec:    90,
			RequestTimeoutSec:  60,
		},
		Log: LogConfig{
			Level: "info",
		},
		File: DefaultFileConfig(),
	}
}
