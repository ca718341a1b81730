// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/clocksync/internal/clock"
)

// Authority kinds.
const (
	AuthorityNTP   = "ntp"
	AuthorityHTTP  = "http"
	AuthorityRedis = "redis"
	AuthoritySQL   = "sql"
)

// AuthorityKinds lists the supported authority kinds.
var AuthorityKinds = []string{AuthorityNTP, AuthorityHTTP, AuthorityRedis, AuthoritySQL}

// SQL authority drivers.
const (
	SQLDriverSQLite = "sqlite"
	SQLDriverMySQL  = "mysql"
)

// SQLDrivers lists the supported SQL authority drivers.
var SQLDrivers = []string{SQLDriverSQLite, SQLDriverMySQL}

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Sync      SyncConfig      `yaml:"sync"`
	Authority AuthorityConfig `yaml:"authority"`
	Startup   StartupConfig   `yaml:"startup"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig controls the HTTP API and metrics listeners.
type ServerConfig struct {
	ListenAddr      string          `yaml:"listen_addr"`
	MetricsAddr     string          `yaml:"metrics_addr"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits API requests per client IP.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// SyncConfig mirrors clock.Options plus logging knobs for the watchdog.
type SyncConfig struct {
	Interval               time.Duration `yaml:"interval"`
	PerAttemptTimeout      time.Duration `yaml:"per_attempt_timeout"`
	MaxRetries             int           `yaml:"max_retries"`
	RetryBackoff           time.Duration `yaml:"retry_backoff"`
	BackoffMultiplier      float64       `yaml:"backoff_multiplier"`
	MaxBackoff             time.Duration `yaml:"max_backoff"`
	MaxAcceptableStaleness time.Duration `yaml:"max_acceptable_staleness"`
	RegressionPolicy       string        `yaml:"regression_policy"`
	RegressionTolerance    time.Duration `yaml:"regression_tolerance"`
	DegradedLogInterval    time.Duration `yaml:"degraded_log_interval"`
}

// Options converts the section into synchronizer options.
func (s SyncConfig) Options() clock.Options {
	return clock.Options{
		Interval:               s.Interval,
		PerAttemptTimeout:      s.PerAttemptTimeout,
		MaxRetries:             s.MaxRetries,
		RetryBackoff:           s.RetryBackoff,
		BackoffMultiplier:      s.BackoffMultiplier,
		MaxBackoff:             s.MaxBackoff,
		MaxAcceptableStaleness: s.MaxAcceptableStaleness,
		RegressionPolicy:       clock.RegressionPolicy(s.RegressionPolicy),
		RegressionTolerance:    s.RegressionTolerance,
	}
}

// AuthorityConfig selects and configures the time authority.
type AuthorityConfig struct {
	Kind    string               `yaml:"kind"`
	NTP     NTPAuthorityConfig   `yaml:"ntp"`
	HTTP    HTTPAuthorityConfig  `yaml:"http"`
	Redis   RedisAuthorityConfig `yaml:"redis"`
	SQL     SQLAuthorityConfig   `yaml:"sql"`
	Breaker CircuitBreakerConfig `yaml:"breaker"`
}

// NTPAuthorityConfig configures an SNTP server authority.
type NTPAuthorityConfig struct {
	Server  string `yaml:"server"`
	Version int    `yaml:"version"`
	TTL     int    `yaml:"ttl"`
}

// HTTPAuthorityConfig configures an authority reading the HTTP Date header.
type HTTPAuthorityConfig struct {
	URL     string        `yaml:"url"`
	Method  string        `yaml:"method"`
	Timeout time.Duration `yaml:"timeout"`
	Tracing bool          `yaml:"tracing"`
}

// RedisAuthorityConfig configures a Redis TIME authority.
type RedisAuthorityConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SQLAuthorityConfig configures a database clock authority.
//
// The mysql driver reads the clock of the server named by DSN. The sqlite
// driver runs in-process and therefore reports the local host clock; it is
// meant for tests and single-host setups.
type SQLAuthorityConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Path     string `yaml:"path"`
	Query    string `yaml:"query"`
	ReadOnly bool   `yaml:"read_only"`
}

// LocalDatabase reports whether the authority reads an in-process SQLite file.
func (a AuthorityConfig) LocalDatabase() bool {
	return a.Kind == AuthoritySQL && a.SQL.Driver == SQLDriverSQLite
}

// CircuitBreakerConfig wraps the authority in a circuit breaker when enabled.
type CircuitBreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Threshold    int           `yaml:"threshold"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// StartupConfig controls the initial synchronization.
type StartupConfig struct {
	// FailFast aborts startup when the initial sync fails. When false the
	// daemon starts unready and the watchdog keeps trying.
	FailFast bool          `yaml:"fail_fast"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}
