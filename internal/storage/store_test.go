package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreSetGetDelete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Open(filepath.Join(t.TempDir(), "nested", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Get(ctx, "token")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "token", "abc"))
	require.NoError(t, s.Set(ctx, "token", "def"))
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, "token"))
	require.NoError(t, s.Delete(ctx, "token"))
	_, err = s.Get(ctx, "token")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "token", "persisted"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "persisted", v)
}

func TestMigrateIsRepeatableAndReportsClosedDB(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Close())
	require.Error(t, Migrate(db))
}
