package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stock-dashboard/models"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	portfolios map[string]map[string]models.Holding
	trades     map[string][]models.Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		portfolios: make(map[string]map[string]models.Holding),
		trades:     make(map[string][]models.Trade),
	}
}

func (s *MemoryStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("%s: %w", user.Username, ErrUserExists)
	}
	s.users[user.Username] = *user
	s.portfolios[user.Username] = make(map[string]models.Holding)
	return nil
}

func (s *MemoryStore) GetPortfolio(ctx context.Context, username string) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]models.Holding, 0, len(s.portfolios[username]))
	for _, h := range s.portfolios[username] {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings, nil
}

func (s *MemoryStore) UpsertHolding(ctx context.Context, username string, h models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	s.portfolios[username][h.Symbol] = h
	return nil
}

func (s *MemoryStore) DeleteHolding(ctx context.Context, username, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.portfolios[username], symbol)
	return nil
}

func (s *MemoryStore) AppendTrade(ctx context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[trade.Username]; !ok {
		return fmt.Errorf("%s: %w", trade.Username, ErrUserNotFound)
	}
	history := s.trades[trade.Username]
	s.trades[trade.Username] = append([]models.Trade{*trade}, history...)
	return nil
}

func (s *MemoryStore) ListTrades(ctx context.Context, username string) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, len(s.trades[username]))
	copy(out, s.trades[username])
	return out, nil
}
