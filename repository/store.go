package repository

import (
	"context"
	"errors"

	"stock-dashboard/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Store is the authoritative account, portfolio and trade-history store
type Store interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// GetPortfolio returns the user's holdings ordered by symbol
	GetPortfolio(ctx context.Context, username string) ([]models.Holding, error)
	UpsertHolding(ctx context.Context, username string, h models.Holding) error
	DeleteHolding(ctx context.Context, username, symbol string) error

	// AppendTrade records a trade as the newest entry of the user's history
	AppendTrade(ctx context.Context, trade *models.Trade) error
	// ListTrades returns the user's history, newest first
	ListTrades(ctx context.Context, username string) ([]models.Trade, error)
}

// Mirror is a best-effort durable copy of store writes. A zero-share
// holding removes the mirrored row.
type Mirror interface {
	Name() string
	MirrorUser(ctx context.Context, user *models.User) error
	MirrorHolding(ctx context.Context, username string, h models.Holding) error
	MirrorTrade(ctx context.Context, trade *models.Trade) error
	Close() error
}

// Compile-time interface verification
var (
	_ Store  = (*MemoryStore)(nil)
	_ Store  = (*MirroredStore)(nil)
	_ Mirror = (*PostgresMirror)(nil)
	_ Mirror = (*SQLiteMirror)(nil)
)
