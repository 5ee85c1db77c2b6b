// Package session owns the operator's login state. A Manager is the token
// source of the API client and is expired by it when the server answers 403.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotLoggedIn        = errors.New("not logged in")
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Store persists the session between runs.
type Store interface {
	Save(ctx context.Context, sess *domain.Session) error
	Load(ctx context.Context) (*domain.Session, error)
	Clear(ctx context.Context) error
}

type loginAPI interface {
	PostJSONAnonymous(ctx context.Context, path string, body, out any) error
}

type Manager struct {
	api    loginAPI
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *domain.Session
}

func NewManager(api loginAPI, store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: api, store: store, logger: logger, now: time.Now}
}

// Restore loads a saved session. An expired one is cleared and the manager
// stays unauthenticated.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return Unauthenticated, fmt.Errorf("failed to restore session: %w", err)
	}
	if sess == nil || sess.Token == "" {
		return Unauthenticated, nil
	}
	if sess.Expired(m.now()) {
		m.logger.Info("saved session expired", "username", sess.Username, "expired_at", sess.ExpiresAt)
		if err := m.store.Clear(ctx); err != nil {
			return Unauthenticated, fmt.Errorf("failed to clear expired session: %w", err)
		}
		return Unauthenticated, nil
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return Authenticated, nil
}

func (m *Manager) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	var resp struct {
		Token string `json:"token"`
	}
	err := m.api.PostJSONAnonymous(ctx, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to log in: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("failed to log in: server returned no token")
	}

	sess := &domain.Session{
		Token:     resp.Token,
		Username:  username,
		ExpiresAt: TokenExpiry(resp.Token),
		SavedAt:   m.now(),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	m.logger.Info("logged in", "username", username)
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token returns the raw token, or "" when logged out or past expiry.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Expired(m.now()) {
		return ""
	}
	return m.current.Token
}

// Expire drops the session after the server rejected it.
func (m *Manager) Expire(ctx context.Context) {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear expired session", "error", err)
	}
}

func (m *Manager) State() State {
	if m.Token() == "" {
		return Unauthenticated
	}
	return Authenticated
}

// Current returns a copy of the live session, or nil.
func (m *Manager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Expired(m.now()) {
		return nil
	}
	cp := *m.current
	return &cp
}

// TokenExpiry reads the exp claim of a JWT without verifying it; the server
// owns verification. Opaque tokens and tokens without exp yield zero.
func TokenExpiry(token string) time.Time {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
