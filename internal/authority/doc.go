// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package authority implements clock.Authority on top of remote time sources:
// NTP servers, HTTP Date headers, the Redis TIME command and SQL databases.
//
// Every implementation honors context deadlines and classifies failures as
// ErrUnreachable (transport, timeout) or ErrProtocol (malformed replies), so the
// synchronizer can retry them uniformly. Decorators add circuit breaking and
// Prometheus metrics.
package authority
