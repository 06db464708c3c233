package repository

import (
	"context"
	"errors"
	"time"

	"stock-dashboard/models"
	"stock-dashboard/observability"
)

const mirrorTimeout = 5 * time.Second

// MirroredStore forwards writes to a set of mirrors after the primary store
// accepts them. Mirror failures are logged and counted but never returned.
type MirroredStore struct {
	Store
	mirrors []Mirror
	metrics *observability.Metrics
}

func NewMirroredStore(primary Store, metrics *observability.Metrics, mirrors ...Mirror) *MirroredStore {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &MirroredStore{Store: primary, mirrors: mirrors, metrics: metrics}
}

func (s *MirroredStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return err
	}
	s.each(ctx, "user", func(ctx context.Context, m Mirror) error {
		return m.MirrorUser(ctx, user)
	})
	return nil
}

func (s *MirroredStore) UpsertHolding(ctx context.Context, username string, h models.Holding) error {
	if err := s.Store.UpsertHolding(ctx, username, h); err != nil {
		return err
	}
	s.each(ctx, "holding", func(ctx context.Context, m Mirror) error {
		return m.MirrorHolding(ctx, username, h)
	})
	return nil
}

func (s *MirroredStore) DeleteHolding(ctx context.Context, username, symbol string) error {
	if err := s.Store.DeleteHolding(ctx, username, symbol); err != nil {
		return err
	}
	s.each(ctx, "holding", func(ctx context.Context, m Mirror) error {
		return m.MirrorHolding(ctx, username, models.Holding{Symbol: symbol, UpdatedAt: time.Now()})
	})
	return nil
}

func (s *MirroredStore) AppendTrade(ctx context.Context, trade *models.Trade) error {
	if err := s.Store.AppendTrade(ctx, trade); err != nil {
		return err
	}
	s.each(ctx, "trade", func(ctx context.Context, m Mirror) error {
		return m.MirrorTrade(ctx, trade)
	})
	return nil
}

// Close closes every mirror
func (s *MirroredStore) Close() error {
	var errs []error
	for _, m := range s.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}

func (s *MirroredStore) each(ctx context.Context, entity string, write func(context.Context, Mirror) error) {
	// Detached from the request so a client disconnect does not drop the copy
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()

	for _, m := range s.mirrors {
		if err := write(ctx, m); err != nil {
			observability.WithContext(ctx).Warn("mirror write failed",
				"backend", m.Name(),
				"entity", entity,
				"error", err)
			s.metrics.RecordMirrorWrite(m.Name(), entity, "error")
			continue
		}
		s.metrics.RecordMirrorWrite(m.Name(), entity, "ok")
	}
}

func isExists(err error) bool {
	return errors.Is(err, ErrUserExists)
}
