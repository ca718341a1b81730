// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/clocksync/internal/clock"
)

// Default values that are not derived from clock.DefaultOptions.
const (
	DefaultListenAddr          = ":8080"
	DefaultMetricsAddr         = ":9090"
	DefaultSQLPath             = "clocksync.db"
	DefaultNTPServer           = "pool.ntp.org"
	DefaultDegradedLogInterval = time.Minute
)

// Defaults returns a fully populated configuration.
func Defaults() AppConfig {
	opts := clock.DefaultOptions()
	return AppConfig{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			MetricsAddr:     DefaultMetricsAddr,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
			},
		},
		Sync: SyncConfig{
			Interval:               opts.Interval,
			PerAttemptTimeout:      opts.PerAttemptTimeout,
			MaxRetries:             opts.MaxRetries,
			RetryBackoff:           opts.RetryBackoff,
			BackoffMultiplier:      opts.BackoffMultiplier,
			MaxBackoff:             opts.MaxBackoff,
			MaxAcceptableStaleness: opts.MaxAcceptableStaleness,
			RegressionPolicy:       string(opts.RegressionPolicy),
			RegressionTolerance:    opts.RegressionTolerance,
			DegradedLogInterval:    DefaultDegradedLogInterval,
		},
		Authority: AuthorityConfig{
			Kind: AuthorityNTP,
			NTP: NTPAuthorityConfig{
				Server:  DefaultNTPServer,
				Version: 4,
				TTL:     0,
			},
			HTTP: HTTPAuthorityConfig{
				Method:  "HEAD",
				Timeout: 5 * time.Second,
			},
			Redis: RedisAuthorityConfig{
				Addr: "localhost:6379",
			},
			// An empty query selects the driver's built-in query.
			SQL: SQLAuthorityConfig{
				Driver: SQLDriverSQLite,
				Path:   DefaultSQLPath,
			},
			Breaker: CircuitBreakerConfig{
				Enabled:      false,
				Threshold:    5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Startup: StartupConfig{
			FailFast: true,
			Timeout:  time.Minute,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Insecure:     true,
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
