package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// SessionStore keeps at most one saved session, so the operator stays
// logged in across runs until the server rejects the token.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	var expires sql.NullInt64
	if !sess.ExpiresAt.IsZero() {
		expires = sql.NullInt64{Int64: sess.ExpiresAt.Unix(), Valid: true}
	}
	savedAt := sess.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, username, expires_at, saved_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at
	`, sess.Token, sess.Username, expires, savedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns nil, nil when no session is saved.
func (s *SessionStore) Load(ctx context.Context) (*domain.Session, error) {
	var (
		sess    domain.Session
		expires sql.NullInt64
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, username, expires_at, saved_at FROM session WHERE id = 1
	`).Scan(&sess.Token, &sess.Username, &expires, &savedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if expires.Valid {
		sess.ExpiresAt = time.Unix(expires.Int64, 0)
	}
	sess.SavedAt = time.Unix(savedAt, 0)
	return &sess, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
