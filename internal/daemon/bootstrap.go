// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/clocksync/internal/api"
	"github.com/ManuGH/clocksync/internal/authority"
	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/config"
	"github.com/ManuGH/clocksync/internal/health"
	"github.com/ManuGH/clocksync/internal/log"
	"github.com/ManuGH/clocksync/internal/telemetry"
)

// ServiceName identifies the daemon in logs and traces.
const ServiceName = "clocksync"

// Bootstrap wires every component from the current configuration and runs
// the startup synchronization. With startup.fail_fast the returned error
// wraps clock.ErrStartupSync when no authority answered; otherwise the
// daemon starts unready and the watchdog keeps trying.
func Bootstrap(ctx context.Context, holder *config.ConfigHolder) (_ *App, err error) {
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	// Resources acquired below are released in reverse order on failure.
	var cleanups []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			err = errors.Join(err, cleanups[i](context.WithoutCancel(ctx)))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cleanups = append(cleanups, tp.Shutdown)

	auth, err := authority.Open(ctx, cfg.Authority)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, func(context.Context) error { return auth.Close() })
	if cfg.Authority.LocalDatabase() {
		logger.Warn().
			Str(log.FieldEvent, "authority.local_clock").
			Str("authority", auth.Name()).
			Msg("sqlite authority measures the local host clock; use the mysql driver or another kind for a remote reference")
	}

	opts := cfg.Sync.Options()
	clk := clock.New(clock.NewSystemSource(), opts.MaxAcceptableStaleness)

	clockLogger := log.WithComponent("clock")
	logObserver := clock.NewLogObserver(clockLogger, cfg.Sync.DegradedLogInterval)
	observer := clock.MultiObserver{logObserver, clock.NewMetricsObserver(clk, auth.Name())}

	syncer := clock.NewSynchronizer(auth, clk,
		clock.WithLogger(clockLogger),
		clock.WithTracer(telemetry.Tracer("clocksync/clock")),
	)

	if err := initialSync(ctx, cfg, syncer, clk, observer); err != nil {
		return nil, err
	}

	watchdog, err := clock.NewWatchdog(syncer, clk, opts, observer, clockLogger)
	if err != nil {
		return nil, err
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewClockChecker(clk))
	hm.RegisterChecker(health.NewWatchdogChecker(watchdog))
	if cfg.Authority.LocalDatabase() {
		hm.RegisterChecker(health.NewFileChecker("authority_db", cfg.Authority.SQL.Path))
	}

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = ServiceName
	}
	apiServer := api.New(api.Config{
		RateLimitEnabled:  cfg.Server.RateLimit.Enabled,
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		TracingService:    tracingService,
	}, clk, watchdog, hm)

	mgr, err := NewManager(cfg.Server, Deps{
		Logger:         logger,
		APIHandler:     apiServer.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		return nil, err
	}
	// Registered first so they run last, after the watchdog has stopped.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("authority", func(context.Context) error { return auth.Close() })

	return NewApp(logger, mgr, holder, watchdog, logObserver), nil
}

func initialSync(ctx context.Context, cfg config.AppConfig, syncer *clock.Synchronizer, clk *clock.Clock, observer clock.Observer) error {
	startupCtx, cancel := context.WithTimeout(ctx, cfg.Startup.Timeout)
	defer cancel()

	startup := clock.NewStartup(syncer, clk, observer, log.WithComponent("clock"))
	if _, err := startup.EnsureInitialClock(startupCtx, cfg.Sync.Options()); err != nil {
		if cfg.Startup.FailFast {
			return err
		}
		logger := log.WithComponent("daemon")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "clock.startup_deferred").
			Msg("initial clock synchronization failed; serving unready until the watchdog succeeds")
	}
	return nil
}
