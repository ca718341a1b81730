// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the runtime lifecycle of the clock service.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/config"
	"github.com/ManuGH/clocksync/internal/log"
)

// App owns the long-lived runtime lifecycle (watchdog, config reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	watchdog     *clock.Watchdog
	logObserver  *clock.LogObserver
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and logObserver may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, watchdog *clock.Watchdog, logObserver *clock.LogObserver) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		watchdog:     watchdog,
		logObserver:  logObserver,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts the watchdog and all owned background subsystems and blocks
// until ctx is cancelled or a fatal error occurs. Stopping the watchdog is a
// shutdown hook, so it always completes before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.watchdog == nil {
		return ErrMissingWatchdog
	}

	g, ctx := errgroup.WithContext(ctx)

	if err := a.watchdog.Start(ctx); err != nil {
		return err
	}
	a.manager.RegisterShutdownHook("clock-watchdog", a.watchdog.Stop)

	if a.cfgHolder != nil {
		// Best-effort: a missing watcher only disables hot reload.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		a.manager.RegisterShutdownHook("config-watcher", func(context.Context) error {
			a.cfgHolder.Stop()
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hupChan := make(chan os.Signal, 1)
				signal.Notify(hupChan, a.reloadSignal)
				defer signal.Stop(hupChan)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(log.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.cfgHolder.Reload(ctx); err != nil {
							a.logger.Warn().
								Err(err).
								Str(log.FieldEvent, "config.reload_failed").
								Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}

// applyConfig pushes hot-reloadable settings into the running components.
// Settings that need a restart are reported by the config holder.
func (a *App) applyConfig(cfg config.AppConfig) {
	opts := cfg.Sync.Options()
	if err := a.watchdog.UpdateOptions(opts); err != nil {
		a.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.apply_failed").
			Msg("reloaded sync options rejected, keeping previous ones")
		return
	}
	if a.logObserver != nil {
		a.logObserver.SetDegradedInterval(cfg.Sync.DegradedLogInterval)
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		a.logger.Warn().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level in reloaded config")
	}

	a.logger.Info().
		Str(log.FieldEvent, "config.applied").
		Dur("interval", opts.Interval).
		Dur("max_staleness", opts.MaxAcceptableStaleness).
		Str("regression_policy", string(opts.RegressionPolicy)).
		Msg("applied reloaded configuration")
}
