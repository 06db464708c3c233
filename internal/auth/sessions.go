package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// Session ties an opaque id to a logged-in user
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore creates and resolves login sessions
type SessionStore interface {
	Create(ctx context.Context, username string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Compile-time interface verification
var (
	_ SessionStore = (*MemorySessions)(nil)
	_ SessionStore = (*RedisSessions)(nil)
)

// MemorySessions keeps sessions in process memory. Expired entries are
// dropped lazily on lookup.
type MemorySessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
	now      func() time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		ttl:      ttl,
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemorySessions) Create(ctx context.Context, username string) (Session, error) {
	s := Session{ID: uuid.NewString(), Username: username, ExpiresAt: m.now().Add(m.ttl)}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemorySessions) Get(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

const redisSessionPrefix = "dashboard:session:"

// RedisSessions stores sessions as JSON values with a Redis TTL
type RedisSessions struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *goredis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

// DialRedis parses url, connects and pings
func DialRedis(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (r *RedisSessions) Create(ctx context.Context, username string) (Session, error) {
	s := Session{ID: uuid.NewString(), Username: username, ExpiresAt: time.Now().Add(r.ttl)}
	data, err := json.Marshal(s)
	if err != nil {
		return Session{}, err
	}
	if err := r.rdb.Set(ctx, redisSessionPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.rdb.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, redisSessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
