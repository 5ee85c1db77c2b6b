package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/db"
	"github.com/vbonduro/librarydesk/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSessionStoreLoadEmpty(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	sess, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionStoreSaveOverwrites(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, &domain.Session{Token: "first", Username: "ana"}))
	require.NoError(t, s.Save(ctx, &domain.Session{Token: "second", Username: "ben", ExpiresAt: exp}))

	sess, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "second", sess.Token)
	assert.Equal(t, "ben", sess.Username)
	assert.True(t, exp.Equal(sess.ExpiresAt))
	assert.False(t, sess.SavedAt.IsZero())
}

func TestSessionStoreNoExpiry(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Session{Token: "opaque"}))
	sess, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.IsZero())
	assert.False(t, sess.Expired(time.Now()))
}

func TestSessionStoreClear(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Session{Token: "tok"}))
	require.NoError(t, s.Clear(ctx))

	sess, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Clearing twice is fine.
	assert.NoError(t, s.Clear(ctx))
}

func TestSettingsStore(t *testing.T) {
	s := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	_, ok, err := s.Get(ctx, SettingLanguage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, SettingLanguage, "he"))
	require.NoError(t, s.Set(ctx, SettingLanguage, "en"))
	require.NoError(t, s.Set(ctx, SettingTab, "loans"))

	v, ok, err := s.Get(ctx, SettingLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"language": "en", "tab": "loans"}, all)
}
