// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the clocksync daemon
// configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys and multiple documents are rejected. Environment keys carry
// the CLOCKSYNC_ prefix and mirror the YAML path, e.g. sync.max_retries is
// CLOCKSYNC_SYNC_MAX_RETRIES.
package config
