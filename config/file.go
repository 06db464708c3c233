package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML overlay for symbol lists and demo accounts.
// Keys missing from the file keep their defaults.
type FileConfig struct {
	Watchlist []string    `yaml:"watchlist"`
	Pulse     PulseConfig `yaml:"pulse"`
	Users     []SeedUser  `yaml:"users"`
}

// PulseConfig lists the symbols behind the home page market pulse
type PulseConfig struct {
	Indices []string       `yaml:"indices"`
	Sectors []SectorConfig `yaml:"sectors"`
	Movers  []string       `yaml:"movers"`
}

// SectorConfig maps a sector ETF to a display name
type SectorConfig struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// SeedUser is a demo account created at startup
type SeedUser struct {
	Username string        `yaml:"username"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Holdings []SeedHolding `yaml:"holdings"`
	Trades   []SeedTrade   `yaml:"trades"`
}

type SeedHolding struct {
	Symbol   string  `yaml:"symbol"`
	Shares   float64 `yaml:"shares"`
	AvgPrice float64 `yaml:"avg_price"`
}

type SeedTrade struct {
	Date     string  `yaml:"date"` // 2006-01-02 15:04:05
	Symbol   string  `yaml:"symbol"`
	Side     string  `yaml:"side"`
	Quantity float64 `yaml:"quantity"`
	Price    float64 `yaml:"price"`
}

// LoadFile reads the YAML overlay at path. An empty path or a missing file
// yields the defaults.
func LoadFile(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	return &cfg, nil
}

// DefaultFileConfig returns the built-in watchlist, pulse symbols and demo users
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Watchlist: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "NFLX", "AMD", "INTC"},
		Pulse: PulseConfig{
			Indices: []string{"SPY", "QQQ", "DIA"},
			Sectors: []SectorConfig{
				{Symbol: "XLK", Name: "Technology"},
				{Symbol: "XLV", Name: "Healthcare"},
				{Symbol: "XLF", Name: "Financial"},
				{Symbol: "XLE", Name: "Energy"},
				{Symbol: "XLY", Name: "Consumer"},
			},
			Movers: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META"},
		},
		Users: []SeedUser{
			{
				Username: "admin",
				Email:    "admin@example.com",
				Password: "admin123",
				Holdings: []SeedHolding{
					{Symbol: "AAPL", Shares: 10, AvgPrice: 150},
					{Symbol: "MSFT", Shares: 5, AvgPrice: 300},
				},
				Trades: []SeedTrade{
					{Date: "2025-11-15 10:30:00", Symbol: "AAPL", Side: "buy", Quantity: 10, Price: 150},
					{Date: "2025-11-14 14:15:00", Symbol: "MSFT", Side: "buy", Quantity: 5, Price: 300},
					{Date: "2025-11-10 09:45:00", Symbol: "GOOGL", Side: "sell", Quantity: 3, Price: 2500},
				},
			},
			{
				Username: "user1",
				Email:    "user1@example.com",
				Password: "password123",
				Holdings: []SeedHolding{
					{Symbol: "GOOGL", Shares: 8, AvgPrice: 2500},
				},
				Trades: []SeedTrade{
					{Date: "2025-11-05 11:20:00", Symbol: "TSLA", Side: "buy", Quantity: 2, Price: 700},
				},
			},
			{
				Username: "praveen",
				Email:    "praveen@example.com",
				Password: "12",
				Holdings: []SeedHolding{
					{Symbol: "TSLA", Shares: 3, AvgPrice: 700},
				},
			},
		},
	}
}
