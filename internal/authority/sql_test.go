// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/clocksync/internal/persistence/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "clock.db"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQL_DefaultQuery(t *testing.T) {
	a := NewSQL(openTestDB(t), "", "")
	assert.Equal(t, "sql", a.Name())

	got, err := a.FetchTime(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got, 5*time.Second)
	assert.Equal(t, time.UTC, got.Location())
}

func TestSQL_ValueFormats(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name  string
		query string
		want  time.Time
	}{
		{"unix seconds", "SELECT 1700000000", time.Unix(1700000000, 0)},
		{"unix seconds text", "SELECT '1700000000'", time.Unix(1700000000, 0)},
		{"fractional seconds", "SELECT 1700000000.5", time.Unix(1700000000, 500_000_000)},
		{"sqlite datetime", "SELECT '2024-05-01 10:20:30.5'", time.Date(2024, 5, 1, 10, 20, 30, 500_000_000, time.UTC)},
		{"rfc3339 with zone", "SELECT '2024-05-01T10:20:30+02:00'", time.Date(2024, 5, 1, 8, 20, 30, 0, time.UTC)},
		{"iso without zone", "SELECT '2024-05-01T10:20:30'", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSQL(db, tt.query, "test").FetchTime(context.Background())
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSQL_ProtocolErrors(t *testing.T) {
	db := openTestDB(t)

	for _, query := range []string{
		"SELECT NULL",
		"SELECT 'yesterday'",
		"SELECT 1 WHERE 0",
	} {
		t.Run(query, func(t *testing.T) {
			_, err := NewSQL(db, query, "test").FetchTime(context.Background())
			require.ErrorIs(t, err, ErrProtocol)
			assert.NotErrorIs(t, err, ErrUnreachable)
		})
	}
}

func TestSQL_ClosedDatabaseIsUnreachable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Close())

	_, err := NewSQL(db, "", "test").FetchTime(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestSQL_CloseRespectsOwnership(t *testing.T) {
	db := openTestDB(t)

	borrowed := NewSQL(db, "", "test")
	require.NoError(t, borrowed.Close())
	require.NoError(t, db.PingContext(context.Background()))

	owned := NewSQL(db, "", "test")
	owned.owned = true
	require.NoError(t, owned.Close())
	assert.Error(t, db.PingContext(context.Background()))
}
