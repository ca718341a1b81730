// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command clocksyncd serves authority-synchronized time over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/config"
	"github.com/ManuGH/clocksync/internal/daemon"
	"github.com/ManuGH/clocksync/internal/log"
	"github.com/ManuGH/clocksync/internal/version"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitStartupSync = 3
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(exitOK)
	}

	os.Exit(run(strings.TrimSpace(*configPath)))
}

func run(configPath string) int {
	// Safe defaults until the config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: daemon.ServiceName,
		Version: version.Version,
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Precedence: ENV > File > Defaults
	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str(log.FieldConfigPath, configPath).
			Msg("failed to load configuration")
		return exitFailure
	}

	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: daemon.ServiceName,
		Version: cfg.Version,
	})
	logger = log.WithComponent("main")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", source).
		Str(log.FieldConfigPath, configPath).
		Str("authority_kind", cfg.Authority.Kind).
		Msg("configuration loaded")

	holder := config.NewConfigHolder(cfg, loader)

	app, err := daemon.Bootstrap(ctx, holder)
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "startup.failed").
			Msg("daemon startup failed")
		if errors.Is(err, clock.ErrStartupSync) {
			return exitStartupSync
		}
		return exitFailure
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "daemon.failed").
			Msg("daemon exited with error")
		return exitFailure
	}

	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return exitOK
}
