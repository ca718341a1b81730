// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mysql opens connection pools to MySQL-compatible database servers.
package mysql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

const redacted = "***"

// Config defines pool parameters.
type Config struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the recommended configuration for time queries.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ParseDSN parses a go-sql-driver DSN
// ("[user[:password]@][net[(addr)]]/dbname[?params]") and maps date/time
// columns to time.Time in UTC.
func ParseDSN(dsn string) (*mysql.Config, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c, nil
}

// Open creates a connection pool. The server is not contacted until the
// first query, so an unreachable server surfaces as a query error.
func Open(dsn string, cfg Config) (*sql.DB, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	mc, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector for %s: %w", mc.Addr, err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// Addr returns the server address of dsn, or "" when dsn does not parse.
func Addr(dsn string) string {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ""
	}
	return c.Addr
}

// Redact masks the password of dsn. A DSN that does not parse is masked
// entirely.
func Redact(dsn string) string {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return redacted
	}
	if c.Passwd != "" {
		c.Passwd = redacted
	}
	return c.FormatDSN()
}
