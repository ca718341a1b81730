// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/clocksync/internal/config"
	"github.com/ManuGH/clocksync/internal/log"
)

// PerformStartupChecks validates the environment before any authority is
// contacted.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str(log.FieldEvent, "startup.checks_begin").Msg("running pre-flight startup checks")

	if cfg.Server.MetricsAddr != "" && cfg.Server.MetricsAddr == cfg.Server.ListenAddr {
		return fmt.Errorf("metrics address %q collides with the API listen address", cfg.Server.MetricsAddr)
	}

	if cfg.Authority.LocalDatabase() {
		if err := checkDatabasePath(logger, cfg.Authority.SQL); err != nil {
			return fmt.Errorf("authority database check failed: %w", err)
		}
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

// checkDatabasePath requires an existing file for read-only databases and a
// writable directory otherwise.
func checkDatabasePath(logger zerolog.Logger, cfg config.SQLAuthorityConfig) error {
	if cfg.ReadOnly {
		if err := checkFileReadable(cfg.Path); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Path).Msg("authority database is readable")
		return nil
	}

	dir := filepath.Dir(cfg.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", dir, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", dir).Msg("authority database directory is writable")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
