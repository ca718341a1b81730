// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSQLQuery asks SQLite for the current UTC time with millisecond precision.
const DefaultSQLQuery = `SELECT strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// DefaultMySQLQuery asks a MySQL server for its UTC time with microsecond precision.
const DefaultMySQLQuery = `SELECT UTC_TIMESTAMP(6)`

var sqlTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// SQL reads the current time from a database with a single-value query.
// The value may be a TIMESTAMP, an RFC 3339 or "YYYY-MM-DD HH:MM:SS[.fff]"
// string (UTC when no zone is given) or an integer of unix seconds.
type SQL struct {
	db    *sql.DB
	query string
	name  string
	owned bool
}

// NewSQL wraps db. The caller keeps ownership of db.
func NewSQL(db *sql.DB, query, name string) *SQL {
	if strings.TrimSpace(query) == "" {
		query = DefaultSQLQuery
	}
	if name == "" {
		name = "sql"
	}
	return &SQL{db: db, query: query, name: name}
}

func (a *SQL) Name() string { return a.name }

// FetchTime runs the query and interprets the first column of the first row.
func (a *SQL) FetchTime(ctx context.Context) (time.Time, error) {
	var v any
	if err := a.db.QueryRowContext(ctx, a.query).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, protocolf(a.name, "query returned no rows")
		}
		return time.Time{}, Unreachable(a.name, err)
	}
	return a.parse(v)
}

func (a *SQL) parse(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case int64:
		return time.Unix(val, 0).UTC(), nil
	case float64:
		sec := int64(val)
		return time.Unix(sec, int64((val-float64(sec))*1e9)).UTC(), nil
	case []byte:
		return a.parseString(string(val))
	case string:
		return a.parseString(val)
	case nil:
		return time.Time{}, protocolf(a.name, "query returned NULL")
	default:
		return time.Time{}, protocolf(a.name, "unsupported column type %T", v)
	}
}

func (a *SQL) parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sqlTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, protocolf(a.name, "unparseable time %q", s)
}

// Close releases the database when the authority owns it.
func (a *SQL) Close() error {
	if !a.owned {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", a.name, err)
	}
	return nil
}
