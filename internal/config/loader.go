// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path (empty when running from ENV only).
func (l *Loader) Path() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: Defaults -> Parse File (Strict) -> Apply Env -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file onto cfg with STRICT parsing.
// Keys absent from the file keep their current (default) values.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// mergeEnvConfig applies CLOCKSYNC_* overrides on top of file and defaults.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = l.envString("LOG_FORMAT", cfg.Log.Format)

	cfg.Server.ListenAddr = l.envString("SERVER_LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.MetricsAddr = l.envString("SERVER_METRICS_ADDR", cfg.Server.MetricsAddr)
	cfg.Server.ReadTimeout = l.envDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.RateLimit.Enabled = l.envBool("SERVER_RATE_LIMIT_ENABLED", cfg.Server.RateLimit.Enabled)
	cfg.Server.RateLimit.RequestsPerMinute = l.envInt("SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE", cfg.Server.RateLimit.RequestsPerMinute)

	cfg.Sync.Interval = l.envDuration("SYNC_INTERVAL", cfg.Sync.Interval)
	cfg.Sync.PerAttemptTimeout = l.envDuration("SYNC_PER_ATTEMPT_TIMEOUT", cfg.Sync.PerAttemptTimeout)
	cfg.Sync.MaxRetries = l.envInt("SYNC_MAX_RETRIES", cfg.Sync.MaxRetries)
	cfg.Sync.RetryBackoff = l.envDuration("SYNC_RETRY_BACKOFF", cfg.Sync.RetryBackoff)
	cfg.Sync.BackoffMultiplier = l.envFloat("SYNC_BACKOFF_MULTIPLIER", cfg.Sync.BackoffMultiplier)
	cfg.Sync.MaxBackoff = l.envDuration("SYNC_MAX_BACKOFF", cfg.Sync.MaxBackoff)
	cfg.Sync.MaxAcceptableStaleness = l.envDuration("SYNC_MAX_ACCEPTABLE_STALENESS", cfg.Sync.MaxAcceptableStaleness)
	cfg.Sync.RegressionPolicy = l.envString("SYNC_REGRESSION_POLICY", cfg.Sync.RegressionPolicy)
	cfg.Sync.RegressionTolerance = l.envDuration("SYNC_REGRESSION_TOLERANCE", cfg.Sync.RegressionTolerance)
	cfg.Sync.DegradedLogInterval = l.envDuration("SYNC_DEGRADED_LOG_INTERVAL", cfg.Sync.DegradedLogInterval)

	cfg.Authority.Kind = l.envString("AUTHORITY_KIND", cfg.Authority.Kind)
	cfg.Authority.NTP.Server = l.envString("AUTHORITY_NTP_SERVER", cfg.Authority.NTP.Server)
	cfg.Authority.NTP.Version = l.envInt("AUTHORITY_NTP_VERSION", cfg.Authority.NTP.Version)
	cfg.Authority.NTP.TTL = l.envInt("AUTHORITY_NTP_TTL", cfg.Authority.NTP.TTL)
	cfg.Authority.HTTP.URL = l.envString("AUTHORITY_HTTP_URL", cfg.Authority.HTTP.URL)
	cfg.Authority.HTTP.Method = l.envString("AUTHORITY_HTTP_METHOD", cfg.Authority.HTTP.Method)
	cfg.Authority.HTTP.Timeout = l.envDuration("AUTHORITY_HTTP_TIMEOUT", cfg.Authority.HTTP.Timeout)
	cfg.Authority.HTTP.Tracing = l.envBool("AUTHORITY_HTTP_TRACING", cfg.Authority.HTTP.Tracing)
	cfg.Authority.Redis.Addr = l.envString("AUTHORITY_REDIS_ADDR", cfg.Authority.Redis.Addr)
	cfg.Authority.Redis.Username = l.envString("AUTHORITY_REDIS_USERNAME", cfg.Authority.Redis.Username)
	cfg.Authority.Redis.Password = l.envString("AUTHORITY_REDIS_PASSWORD", cfg.Authority.Redis.Password)
	cfg.Authority.Redis.DB = l.envInt("AUTHORITY_REDIS_DB", cfg.Authority.Redis.DB)
	cfg.Authority.SQL.Driver = l.envString("AUTHORITY_SQL_DRIVER", cfg.Authority.SQL.Driver)
	cfg.Authority.SQL.DSN = l.envString("AUTHORITY_SQL_DSN", cfg.Authority.SQL.DSN)
	cfg.Authority.SQL.Path = l.envString("AUTHORITY_SQL_PATH", cfg.Authority.SQL.Path)
	cfg.Authority.SQL.Query = l.envString("AUTHORITY_SQL_QUERY", cfg.Authority.SQL.Query)
	cfg.Authority.SQL.ReadOnly = l.envBool("AUTHORITY_SQL_READ_ONLY", cfg.Authority.SQL.ReadOnly)
	cfg.Authority.Breaker.Enabled = l.envBool("AUTHORITY_BREAKER_ENABLED", cfg.Authority.Breaker.Enabled)
	cfg.Authority.Breaker.Threshold = l.envInt("AUTHORITY_BREAKER_THRESHOLD", cfg.Authority.Breaker.Threshold)
	cfg.Authority.Breaker.ResetTimeout = l.envDuration("AUTHORITY_BREAKER_RESET_TIMEOUT", cfg.Authority.Breaker.ResetTimeout)

	cfg.Startup.FailFast = l.envBool("STARTUP_FAIL_FAST", cfg.Startup.FailFast)
	cfg.Startup.Timeout = l.envDuration("STARTUP_TIMEOUT", cfg.Startup.Timeout)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = l.envBool("TELEMETRY_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}
