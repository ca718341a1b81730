// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/validate"
)

func invalidFields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr), "got %T: %v", err, err)
	return verr.Fields()
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad log level", func(c *AppConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *AppConfig) { c.Log.Format = "xml" }, "log.format"},
		{"listen without port", func(c *AppConfig) { c.Server.ListenAddr = "localhost" }, "server.listen_addr"},
		{"zero shutdown timeout", func(c *AppConfig) { c.Server.ShutdownTimeout = 0 }, "server.shutdown_timeout"},
		{"rate limit without budget", func(c *AppConfig) { c.Server.RateLimit.RequestsPerMinute = 0 }, "server.rate_limit.requests_per_minute"},
		{"negative retries", func(c *AppConfig) { c.Sync.MaxRetries = -1 }, "sync.max_retries"},
		{"zero attempt timeout", func(c *AppConfig) { c.Sync.PerAttemptTimeout = 0 }, "sync.per_attempt_timeout"},
		{"zero staleness", func(c *AppConfig) { c.Sync.MaxAcceptableStaleness = 0 }, "sync.max_acceptable_staleness"},
		{"unknown regression policy", func(c *AppConfig) { c.Sync.RegressionPolicy = "ignore" }, "sync.regression_policy"},
		{"negative tolerance", func(c *AppConfig) { c.Sync.RegressionTolerance = -time.Second }, "sync.regression_tolerance"},
		{"unknown authority", func(c *AppConfig) { c.Authority.Kind = "gps" }, "authority.kind"},
		{"ntp with scheme", func(c *AppConfig) {
			c.Authority.Kind = AuthorityNTP
			c.Authority.NTP.Server = "udp://pool.ntp.org"
		}, "authority.ntp.server"},
		{"ntp version", func(c *AppConfig) {
			c.Authority.Kind = AuthorityNTP
			c.Authority.NTP.Version = 5
		}, "authority.ntp.version"},
		{"http without url", func(c *AppConfig) { c.Authority.Kind = AuthorityHTTP }, "authority.http.url"},
		{"http post", func(c *AppConfig) {
			c.Authority.Kind = AuthorityHTTP
			c.Authority.HTTP.URL = "https://example.com"
			c.Authority.HTTP.Method = "POST"
		}, "authority.http.method"},
		{"redis db", func(c *AppConfig) {
			c.Authority.Kind = AuthorityRedis
			c.Authority.Redis.DB = 16
		}, "authority.redis.db"},
		{"sql without path", func(c *AppConfig) {
			c.Authority.Kind = AuthoritySQL
			c.Authority.SQL.Path = " "
		}, "authority.sql.path"},
		{"unknown sql driver", func(c *AppConfig) {
			c.Authority.Kind = AuthoritySQL
			c.Authority.SQL.Driver = "oracle"
		}, "authority.sql.driver"},
		{"mysql without dsn", func(c *AppConfig) {
			c.Authority.Kind = AuthoritySQL
			c.Authority.SQL.Driver = SQLDriverMySQL
		}, "authority.sql.dsn"},
		{"mysql malformed dsn", func(c *AppConfig) {
			c.Authority.Kind = AuthoritySQL
			c.Authority.SQL.Driver = SQLDriverMySQL
			c.Authority.SQL.DSN = "db.example.com:3306"
		}, "authority.sql.dsn"},
		{"breaker threshold", func(c *AppConfig) {
			c.Authority.Breaker.Enabled = true
			c.Authority.Breaker.Threshold = 0
		}, "authority.breaker.threshold"},
		{"startup timeout", func(c *AppConfig) { c.Startup.Timeout = 0 }, "startup.timeout"},
		{"startup shorter than a sync cycle", func(c *AppConfig) {
			c.Sync.MaxRetries = 7
		}, "startup.timeout"},
		{"sampling rate", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.SamplingRate = 2
		}, "telemetry.sampling_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Contains(t, invalidFields(t, Validate(cfg)), tt.field)
		})
	}
}

func TestDefaults_AuthorityIsRemote(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, AuthorityNTP, cfg.Authority.Kind)
	assert.False(t, cfg.Authority.LocalDatabase())

	cfg.Authority.Kind = AuthoritySQL
	assert.True(t, cfg.Authority.LocalDatabase())
	cfg.Authority.SQL.Driver = SQLDriverMySQL
	assert.False(t, cfg.Authority.LocalDatabase())
}

func TestValidate_MySQLAuthority(t *testing.T) {
	cfg := Defaults()
	cfg.Authority.Kind = AuthoritySQL
	cfg.Authority.SQL.Driver = SQLDriverMySQL
	cfg.Authority.SQL.DSN = "clock:secret@tcp(db.example.com:3306)/clocks"
	cfg.Authority.SQL.Path = ""
	require.NoError(t, Validate(cfg))
}

func TestValidate_StartupTimeoutCoversSyncCycle(t *testing.T) {
	cfg := Defaults()
	cfg.Sync.MaxRetries = 7
	cfg.Startup.Timeout = cfg.Sync.Options().MaxCycleDuration()
	require.NoError(t, Validate(cfg))

	cfg.Startup.Timeout -= time.Millisecond
	err := Validate(cfg)
	assert.Equal(t, []string{"startup.timeout"}, invalidFields(t, err))
	assert.Contains(t, err.Error(), "1m15.5s")
}

func TestValidate_OnlySelectedAuthorityChecked(t *testing.T) {
	cfg := Defaults()
	cfg.Authority.Kind = AuthoritySQL
	cfg.Authority.HTTP.URL = "not a url"
	cfg.Authority.Redis.Addr = ""
	require.NoError(t, Validate(cfg))
}

func TestValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := Defaults()
	cfg.Server.MetricsAddr = ""
	cfg.Server.RateLimit = RateLimitConfig{}
	cfg.Telemetry = TelemetryConfig{Exporter: "carrier"}
	require.NoError(t, Validate(cfg))
}

func TestSyncConfig_Options(t *testing.T) {
	cfg := Defaults()
	opts := cfg.Sync.Options()
	require.NoError(t, opts.Validate())
	assert.Equal(t, clock.DefaultOptions(), opts)

	cfg.Sync.RegressionPolicy = "reject"
	assert.Equal(t, clock.RegressionReject, cfg.Sync.Options().RegressionPolicy)
}
