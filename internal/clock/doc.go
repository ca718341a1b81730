// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package clock maintains an application-wide notion of "now" that tracks an
// external authoritative time source instead of trusting the host clock.
//
// A Synchronizer measures the offset between the authority and the local
// monotonic clock. The resulting Offset values are published into a Clock,
// whose Now method never blocks and never touches the network. Startup performs
// the first synchronization before the application declares readiness, and a
// Watchdog refreshes the offset in the background until it is stopped.
//
//	clk := clock.New(clock.NewSystemSource(), opts.MaxAcceptableStaleness)
//	syncer := clock.NewSynchronizer(authority, clk)
//	if err := clock.NewStartup(syncer, clk, observer, logger).EnsureInitialClock(ctx, opts); err != nil {
//		// abort startup or run degraded
//	}
//	wd, _ := clock.NewWatchdog(syncer, clk, opts, observer, logger)
//	_ = wd.Start(ctx)
//	defer wd.Stop(context.Background())
package clock
