package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "caldora.db"), WithTimeout(10*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return newSQLite(t)
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CALDORA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CALDORA_TEST_POSTGRES_DSN not set")
	}
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s, err := OpenPostgres(dsn)
		require.NoError(t, err)
		for _, table := range []string{"shares", "events", "calendars", "users"} {
			_, err := s.db.Exec("DELETE FROM " + table)
			require.NoError(t, err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = ? AND b = ?"},
		{"postgres numbered", Postgres, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = $1 AND b = $2"},
		{"postgres no params", Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{dialect: tt.dialect}
			assert.Equal(t, tt.want, s.rebind(tt.in))
		})
	}
}

func TestSQLiteTimeoutIsTransient(t *testing.T) {
	s := newSQLite(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.GetCalendar(ctx, "anything")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestSQLiteRoundTripsOptionalFields(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &storage.User{ID: "alice", Username: "alice", Email: "a@example.com", PasswordHash: "x"}))
	require.NoError(t, s.CreateCalendar(ctx, &storage.Calendar{ID: "work", OwnerID: "alice", Name: "Work"}))

	empty := ""
	start := time.Date(2025, 3, 1, 9, 0, 0, 123456789, time.FixedZone("CET", 3600))
	ev := &storage.Event{ID: "e1", CalendarID: "work", Title: "Review", Description: &empty, Start: start, End: start.Add(time.Hour)}
	created, err := s.PutEvent(ctx, ev, func(*storage.Event) error { return nil })
	require.NoError(t, err)
	assert.True(t, created)

	got, err := s.GetEvent(ctx, "work", "e1")
	require.NoError(t, err)
	require.NotNil(t, got.Description, "empty description differs from an absent one")
	assert.Equal(t, "", *got.Description)
	assert.Nil(t, got.Location)
	assert.True(t, got.Start.Equal(start.Truncate(time.Microsecond)))
	assert.Equal(t, time.UTC, got.Start.Location())
	assert.Equal(t, ev.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, int64(1), got.Version)
}
