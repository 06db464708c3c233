package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"stock-dashboard/observability"
)

var (
	// ErrCircuitOpen is returned while a provider's breaker is open
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrTooManyRequests is returned when the half-open probe budget is spent
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Breaker names, one per market data provider
const (
	BreakerYahoo  = "yahoo"
	BreakerAlpaca = "alpaca"
)

// BreakerConfig holds configuration for a provider breaker
type BreakerConfig struct {
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state window after which counts reset
	Timeout      time.Duration // open-state duration before half-open
	MinRequests  uint32        // requests seen before the failure ratio is considered
	FailureRatio float64
}

// DefaultBreakerConfig trips at half of five or more requests failing
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests:  3,
	Interval:     time.Minute,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.5,
}

// BreakerRegistry lazily creates one breaker per provider name
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	config   BreakerConfig
	metrics  *observability.Metrics
}

// NewBreakerRegistry creates a registry. A nil metrics uses the process-wide collectors.
func NewBreakerRegistry(config BreakerConfig, metrics *observability.Metrics) *BreakerRegistry {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		config:   config,
		metrics:  metrics,
	}
}

// Breaker returns (or creates) the breaker for name
func (r *BreakerRegistry) Breaker(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}

	cfg := r.config
	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.Warn("provider breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			r.metrics.SetCircuitBreakerState(name, stateToInt(to))
			if to == gobreaker.StateOpen {
				r.metrics.RecordCircuitBreakerTrip(name)
			}
		},
	})
	r.breakers[name] = cb
	return cb
}

// Execute runs fn through the named breaker, mapping rejections to the
// package sentinels.
func (r *BreakerRegistry) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	result, err := r.Breaker(name).Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return nil, fmt.Errorf("%s: %w", name, ErrCircuitOpen)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s: %w", name, ErrTooManyRequests)
	}
	return result, err
}

// BreakerStatus is a point-in-time view of one breaker
type BreakerStatus struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// Status reports every breaker created so far
func (r *BreakerRegistry) Status() map[string]BreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]BreakerStatus, len(r.breakers))
	for name, cb := range r.breakers {
		c := cb.Counts()
		out[name] = BreakerStatus{
			Name:                 name,
			State:                cb.State().String(),
			Requests:             c.Requests,
			TotalFailures:        c.TotalFailures,
			ConsecutiveFailures:  c.ConsecutiveFailures,
			ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		}
	}
	return out
}

// guarded runs a typed call through the registry
func guarded[T any](ctx context.Context, r *BreakerRegistry, name string, fn func() (T, error)) (T, error) {
	result, err := r.Execute(ctx, name, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// stateToInt converts a breaker state for the gauge: 0=closed, 1=half-open, 2=open
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
