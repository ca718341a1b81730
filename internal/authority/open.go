// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/clocksync/internal/config"
	"github.com/ManuGH/clocksync/internal/persistence/mysql"
	"github.com/ManuGH/clocksync/internal/persistence/sqlite"
)

// Open builds the configured authority wrapped with metrics and, when
// enabled, a circuit breaker.
func Open(ctx context.Context, cfg config.AuthorityConfig) (Authority, error) {
	var (
		a   Authority
		err error
	)

	switch cfg.Kind {
	case config.AuthorityNTP:
		a = NewNTP(NTPConfig{
			Server:  cfg.NTP.Server,
			Version: cfg.NTP.Version,
			TTL:     cfg.NTP.TTL,
		})
	case config.AuthorityHTTP:
		a, err = NewHTTP(HTTPConfig{
			URL:     cfg.HTTP.URL,
			Method:  strings.ToUpper(cfg.HTTP.Method),
			Timeout: cfg.HTTP.Timeout,
			Tracing: cfg.HTTP.Tracing,
		})
	case config.AuthorityRedis:
		a = NewRedis(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.AuthoritySQL:
		a, err = openSQL(ctx, cfg.SQL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled {
		a = WithCircuitBreaker(a, cfg.Breaker.Threshold, cfg.Breaker.ResetTimeout)
	}
	return WithMetrics(a), nil
}

func openSQL(ctx context.Context, cfg config.SQLAuthorityConfig) (Authority, error) {
	if cfg.Driver == config.SQLDriverMySQL {
		return openMySQL(cfg)
	}

	sqlCfg := sqlite.DefaultConfig()
	sqlCfg.ReadOnly = cfg.ReadOnly
	db, err := sqlite.Open(ctx, cfg.Path, sqlCfg)
	if err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	a := NewSQL(db, cfg.Query, "sql:"+cfg.Path)
	a.owned = true
	return a, nil
}

// openMySQL does not contact the server; connection failures are reported
// by FetchTime as unreachable errors.
func openMySQL(cfg config.SQLAuthorityConfig) (Authority, error) {
	db, err := mysql.Open(cfg.DSN, mysql.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	query := cfg.Query
	if strings.TrimSpace(query) == "" {
		query = DefaultMySQLQuery
	}
	a := NewSQL(db, query, "mysql:"+mysql.Addr(cfg.DSN))
	a.owned = true
	return a, nil
}
