// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/clocksync/internal/clock"
)

var (
	// ErrUnreachable marks transport and timeout failures.
	ErrUnreachable = clock.ErrAuthorityUnreachable
	// ErrProtocol marks replies that could not be interpreted as a time.
	ErrProtocol = clock.ErrAuthorityProtocol
	// ErrUnknownKind is returned by Open for unsupported authority kinds.
	ErrUnknownKind = errors.New("authority: unknown kind")
)

// Unreachable classifies err from the named authority as ErrUnreachable.
// Context cancellation is returned unchanged.
func Unreachable(name string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnreachable, name, err)
}

// Protocol classifies err from the named authority as ErrProtocol.
func Protocol(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProtocol, name, err)
}

func protocolf(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrProtocol, name, fmt.Sprintf(format, args...))
}

// outcome maps an error to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "unreachable"
	}
}
