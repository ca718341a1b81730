// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

const defaultNTPTimeout = 5 * time.Second

// NTPConfig configures an NTP authority.
type NTPConfig struct {
	Server  string // host or host:port
	Version int    // protocol version 2-4; 0 selects 4
	TTL     int    // IP time-to-live; 0 uses the system default
}

// NTP queries an NTP server. The returned time is the local wall clock
// corrected by the server's symmetric-delay offset.
type NTP struct {
	cfg   NTPConfig
	name  string
	query func(host string, opts ntp.QueryOptions) (*ntp.Response, error)
	now   func() time.Time
}

// NewNTP creates an NTP authority for cfg.Server.
func NewNTP(cfg NTPConfig) *NTP {
	return &NTP{
		cfg:   cfg,
		name:  "ntp:" + cfg.Server,
		query: ntp.QueryWithOptions,
		now:   time.Now,
	}
}

func (a *NTP) Name() string { return a.name }

// FetchTime performs one NTP exchange. The exchange runs on its own
// goroutine because the library only supports a fixed timeout.
func (a *NTP) FetchTime(ctx context.Context) (time.Time, error) {
	opts := ntp.QueryOptions{
		Timeout: defaultNTPTimeout,
		Version: a.cfg.Version,
		TTL:     a.cfg.TTL,
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return time.Time{}, Unreachable(a.name, context.DeadlineExceeded)
		}
		opts.Timeout = remaining
	}

	type result struct {
		resp *ntp.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := a.query(a.cfg.Server, opts)
		ch <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return time.Time{}, Unreachable(a.name, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return time.Time{}, Unreachable(a.name, r.err)
		}
		if err := r.resp.Validate(); err != nil {
			return time.Time{}, Protocol(a.name, err)
		}
		return a.now().Add(r.resp.ClockOffset).UTC(), nil
	}
}

// Close is a no-op; NTP queries are connectionless.
func (a *NTP) Close() error { return nil }
