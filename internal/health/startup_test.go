// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/clocksync/internal/config"
)

func TestPerformStartupChecks_SQLDirectoryWritable(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthoritySQL
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "clocksync.db")

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_SQLDirectoryMissing(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthoritySQL
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "missing", "clocksync.db")

	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory does not exist")
}

func TestPerformStartupChecks_ReadOnlyRequiresFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthoritySQL
	cfg.Authority.SQL.ReadOnly = true
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "clocksync.db")
	require.Error(t, PerformStartupChecks(context.Background(), cfg))

	require.NoError(t, os.WriteFile(cfg.Authority.SQL.Path, nil, 0o600))
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_AddressCollision(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthorityNTP
	cfg.Server.MetricsAddr = cfg.Server.ListenAddr

	err := PerformStartupChecks(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}

func TestPerformStartupChecks_NonSQLSkipsDatabase(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthorityRedis
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "missing", "clocksync.db")

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_MySQLSkipsDatabasePath(t *testing.T) {
	cfg := config.Defaults()
	cfg.Authority.Kind = config.AuthoritySQL
	cfg.Authority.SQL.Driver = config.SQLDriverMySQL
	cfg.Authority.SQL.DSN = "clock@tcp(db.example.com:3306)/clocks"
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "missing", "clocksync.db")

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}
