// Package auth handles dashboard accounts and login sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stock-dashboard/models"
	"stock-dashboard/observability"
	"stock-dashboard/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid signup input")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// HashPassword returns a bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Service signs users up and in
type Service struct {
	users    repository.Store
	sessions SessionStore
	metrics  *observability.Metrics
}

func NewService(users repository.Store, sessions SessionStore, metrics *observability.Metrics) *Service {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Service{users: users, sessions: sessions, metrics: metrics}
}

// Sessions returns the backing session store
func (s *Service) Sessions() SessionStore {
	return s.sessions
}

// Signup creates an account. A taken username returns repository.ErrUserExists.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) || password == "" {
		s.metrics.RecordAuthAttempt("signup", "invalid")
		return nil, ErrInvalidInput
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		s.metrics.RecordAuthAttempt("signup", "rejected")
		return nil, err
	}

	s.metrics.RecordAuthAttempt("signup", "ok")
	observability.WithUser(username).Info("user signed up")
	return user, nil
}

// Login checks the password and opens a session
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.RecordAuthAttempt("login", "rejected")
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.metrics.RecordAuthAttempt("login", "rejected")
		return Session{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.Username)
	if err != nil {
		return Session{}, err
	}
	s.metrics.RecordAuthAttempt("login", "ok")
	s.metrics.SessionStarted()
	return sess, nil
}

// Logout ends a session. Unknown ids are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.SessionEnded()
	return nil
}

// Authenticate resolves a session id to its username
func (s *Service) Authenticate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.Username, nil
}

type ctxKey struct{}

// WithUsername returns a context carrying the authenticated username
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKey{}, username)
}

// UsernameFrom returns the authenticated username, if any
func UsernameFrom(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(ctxKey{}).(string)
	return u, ok && u != ""
}
