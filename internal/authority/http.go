// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/clocksync/internal/platform/httpx"
	platformnet "github.com/ManuGH/clocksync/internal/platform/net"
)

// HTTPConfig configures an HTTP Date authority.
type HTTPConfig struct {
	URL     string
	Method  string // HEAD (default) or GET
	Timeout time.Duration
	Tracing bool
}

// HTTP reads the Date response header of a web server. The header has
// one-second resolution, so this authority suits coarse synchronization only.
type HTTP struct {
	client *http.Client
	url    string
	method string
	name   string
}

// NewHTTP validates cfg.URL and builds the client.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	u, ok := platformnet.ParseDirectHTTPURL(cfg.URL)
	if !ok {
		return nil, fmt.Errorf("authority: invalid http url %q", platformnet.SanitizeURL(cfg.URL))
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodHead
	}
	if method != http.MethodHead && method != http.MethodGet {
		return nil, fmt.Errorf("authority: unsupported http method %q", method)
	}

	var opts []httpx.Option
	if cfg.Tracing {
		opts = append(opts, httpx.WithTracing())
	}
	return &HTTP{
		client: httpx.NewClient(cfg.Timeout, opts...),
		url:    u.String(),
		method: method,
		name:   "http:" + u.Host,
	}, nil
}

func (a *HTTP) Name() string { return a.name }

func (a *HTTP) FetchTime(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, a.method, a.url, nil)
	if err != nil {
		return time.Time{}, protocolf(a.name, "build request: %v", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.client.Do(req)
	if err != nil {
		return time.Time{}, Unreachable(a.name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return time.Time{}, Unreachable(a.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	date := resp.Header.Get("Date")
	if date == "" {
		return time.Time{}, protocolf(a.name, "response has no Date header")
	}
	t, err := http.ParseTime(date)
	if err != nil {
		return time.Time{}, protocolf(a.name, "invalid Date header %q", date)
	}
	return t.UTC(), nil
}

// Close drops idle connections.
func (a *HTTP) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
