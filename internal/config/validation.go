// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/metrics"
	"github.com/ManuGH/clocksync/internal/persistence/mysql"
	"github.com/ManuGH/clocksync/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package.
// Only the settings of the selected authority kind are checked.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log.level", cfg.Log.Level, validate.LogLevels)
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	v.ListenAddr("server.listen_addr", cfg.Server.ListenAddr)
	if cfg.Server.MetricsAddr != "" {
		v.ListenAddr("server.metrics_addr", cfg.Server.MetricsAddr)
	}
	v.PositiveDuration("server.read_timeout", cfg.Server.ReadTimeout)
	v.PositiveDuration("server.write_timeout", cfg.Server.WriteTimeout)
	v.PositiveDuration("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	if cfg.Server.RateLimit.Enabled {
		v.Positive("server.rate_limit.requests_per_minute", cfg.Server.RateLimit.RequestsPerMinute)
	}

	validateSync(v, cfg.Sync)
	validateAuthority(v, cfg.Authority)

	v.PositiveDuration("startup.timeout", cfg.Startup.Timeout)
	if v.IsValid() {
		if maxCycle := cfg.Sync.Options().MaxCycleDuration(); cfg.Startup.Timeout < maxCycle {
			v.AddError("startup.timeout",
				fmt.Sprintf("must be at least one full sync cycle (%s)", maxCycle),
				cfg.Startup.Timeout)
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.sampling_rate", cfg.Telemetry.SamplingRate)
	}

	if err := v.Err(); err != nil {
		metrics.IncConfigValidationError()
		return err
	}
	return nil
}

func validateSync(v *validate.Validator, s SyncConfig) {
	v.PositiveDuration("sync.interval", s.Interval)
	v.PositiveDuration("sync.per_attempt_timeout", s.PerAttemptTimeout)
	v.NonNegative("sync.max_retries", s.MaxRetries)
	v.NonNegativeDuration("sync.retry_backoff", s.RetryBackoff)
	v.AtLeast("sync.backoff_multiplier", s.BackoffMultiplier, 1)
	v.NonNegativeDuration("sync.max_backoff", s.MaxBackoff)
	v.PositiveDuration("sync.max_acceptable_staleness", s.MaxAcceptableStaleness)
	v.OneOf("sync.regression_policy", s.RegressionPolicy, []string{
		string(clock.RegressionAccept),
		string(clock.RegressionClamp),
		string(clock.RegressionReject),
	})
	v.NonNegativeDuration("sync.regression_tolerance", s.RegressionTolerance)
	v.NonNegativeDuration("sync.degraded_log_interval", s.DegradedLogInterval)

	// Cross-field rules live with the options type.
	if v.IsValid() {
		if err := s.Options().Validate(); err != nil {
			v.AddError("sync", err.Error(), s)
		}
	}
}

func validateAuthority(v *validate.Validator, a AuthorityConfig) {
	v.OneOf("authority.kind", a.Kind, AuthorityKinds)

	switch a.Kind {
	case AuthorityNTP:
		v.HostPort("authority.ntp.server", a.NTP.Server, 123)
		v.Range("authority.ntp.version", a.NTP.Version, 2, 4)
		v.Range("authority.ntp.ttl", a.NTP.TTL, 0, 255)
	case AuthorityHTTP:
		v.URL("authority.http.url", a.HTTP.URL, []string{"http", "https"})
		v.OneOf("authority.http.method", strings.ToUpper(a.HTTP.Method), []string{"GET", "HEAD"})
		v.NonNegativeDuration("authority.http.timeout", a.HTTP.Timeout)
	case AuthorityRedis:
		v.HostPort("authority.redis.addr", a.Redis.Addr, 6379)
		v.Range("authority.redis.db", a.Redis.DB, 0, 15)
	case AuthoritySQL:
		v.OneOf("authority.sql.driver", a.SQL.Driver, SQLDrivers)
		switch a.SQL.Driver {
		case SQLDriverSQLite:
			v.NotEmpty("authority.sql.path", a.SQL.Path)
		case SQLDriverMySQL:
			if a.SQL.DSN == "" {
				v.NotEmpty("authority.sql.dsn", a.SQL.DSN)
			} else if _, err := mysql.ParseDSN(a.SQL.DSN); err != nil {
				v.AddError("authority.sql.dsn", "must be a valid MySQL DSN", mysql.Redact(a.SQL.DSN))
			}
		}
	}

	if a.Breaker.Enabled {
		v.Positive("authority.breaker.threshold", a.Breaker.Threshold)
		v.PositiveDuration("authority.breaker.reset_timeout", a.Breaker.ResetTimeout)
	}
}
