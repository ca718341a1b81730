// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"fmt"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/clocksync/internal/persistence/mysql"
	platformnet "github.com/ManuGH/clocksync/internal/platform/net"
)

const redacted = "***"

// sensitiveKeywords mark environment keys whose values must never be logged.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
}

// Redacted returns a copy of cfg that is safe to print or log.
func Redacted(cfg AppConfig) AppConfig {
	if cfg.Authority.Redis.Password != "" {
		cfg.Authority.Redis.Password = redacted
	}
	if cfg.Authority.SQL.DSN != "" {
		cfg.Authority.SQL.DSN = mysql.Redact(cfg.Authority.SQL.DSN)
	}
	if cfg.Authority.HTTP.URL != "" {
		cfg.Authority.HTTP.URL = platformnet.SanitizeURL(cfg.Authority.HTTP.URL)
	}
	return cfg
}

// Marshal renders cfg as YAML with secrets redacted. The output is accepted
// by the strict loader.
func Marshal(cfg AppConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Redacted(cfg)); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile atomically writes the redacted YAML form of cfg to path.
func WriteFile(path string, cfg AppConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}
