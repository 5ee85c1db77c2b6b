package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/logging"
)

type memStore struct {
	sess    *domain.Session
	cleared int
}

func (s *memStore) Save(_ context.Context, sess *domain.Session) error {
	cp := *sess
	s.sess = &cp
	return nil
}

func (s *memStore) Load(context.Context) (*domain.Session, error) { return s.sess, nil }

func (s *memStore) Clear(context.Context) error {
	s.cleared++
	s.sess = nil
	return nil
}

type stubLogin struct {
	token string
	err   error
	got   map[string]string
}

func (s *stubLogin) PostJSONAnonymous(_ context.Context, path string, body, out any) error {
	s.got = body.(map[string]string)
	if s.err != nil {
		return s.err
	}
	data, _ := json.Marshal(map[string]string{"token": s.token})
	return json.Unmarshal(data, out)
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "librarian",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func TestLoginStoresToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	api := &stubLogin{token: signed(t, exp)}
	store := &memStore{}
	m := NewManager(api, store, logging.Discard())

	require.NoError(t, m.Login(context.Background(), " librarian ", "pw"))

	assert.Equal(t, "librarian", api.got["username"])
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, api.token, m.Token())
	require.NotNil(t, store.sess)
	assert.True(t, exp.Equal(store.sess.ExpiresAt))
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := &stubLogin{err: &apiclient.APIError{StatusCode: 401, Message: "bad"}}
	m := NewManager(api, &memStore{}, logging.Discard())

	err := m.Login(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, Unauthenticated, m.State())

	assert.ErrorIs(t, m.Login(context.Background(), "", "y"), ErrInvalidCredentials)
}

func TestLoginServerFailureIsNotCredentials(t *testing.T) {
	api := &stubLogin{err: errors.New("connection refused")}
	m := NewManager(api, &memStore{}, logging.Discard())

	err := m.Login(context.Background(), "x", "y")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpireClearsStore(t *testing.T) {
	store := &memStore{}
	m := NewManager(&stubLogin{token: "opaque"}, store, logging.Discard())
	require.NoError(t, m.Login(context.Background(), "a", "b"))

	m.Expire(context.Background())

	assert.Empty(t, m.Token())
	assert.Nil(t, m.Current())
	assert.Nil(t, store.sess)
	assert.Equal(t, 1, store.cleared)
}

func TestRestore(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		store := &memStore{sess: &domain.Session{Token: "t", ExpiresAt: now.Add(time.Minute)}}
		m := NewManager(nil, store, logging.Discard())
		m.now = func() time.Time { return now }

		state, err := m.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Authenticated, state)
		assert.Equal(t, "t", m.Token())
	})

	t.Run("expired", func(t *testing.T) {
		store := &memStore{sess: &domain.Session{Token: "t", ExpiresAt: now.Add(-time.Minute)}}
		m := NewManager(nil, store, logging.Discard())
		m.now = func() time.Time { return now }

		state, err := m.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unauthenticated, state)
		assert.Equal(t, 1, store.cleared)
	})

	t.Run("none", func(t *testing.T) {
		m := NewManager(nil, &memStore{}, logging.Discard())
		state, err := m.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unauthenticated, state)
	})
}

func TestTokenPastExpiryIsAbsent(t *testing.T) {
	now := time.Now()
	m := NewManager(&stubLogin{token: signed(t, now.Add(time.Minute))}, &memStore{}, logging.Discard())
	require.NoError(t, m.Login(context.Background(), "a", "b"))

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Empty(t, m.Token())
	assert.Equal(t, Unauthenticated, m.State())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, exp.Equal(TokenExpiry(signed(t, exp))))
	assert.True(t, exp.Equal(TokenExpiry("Bearer "+signed(t, exp))))
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())
}
