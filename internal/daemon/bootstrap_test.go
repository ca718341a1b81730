// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/clocksync/internal/clock"
	"github.com/ManuGH/clocksync/internal/config"
)

func bootstrapConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Server.MetricsAddr = ""
	cfg.Authority.Kind = config.AuthoritySQL
	cfg.Authority.SQL.Path = filepath.Join(t.TempDir(), "authority.db")
	cfg.Startup.Timeout = 5 * time.Second
	return cfg
}

func holderFor(cfg config.AppConfig) *config.ConfigHolder {
	return config.NewConfigHolder(cfg, config.NewLoader("", cfg.Version))
}

func TestBootstrap_SQLAuthorityServesTime(t *testing.T) {
	cfg := bootstrapConfig(t)

	app, err := Bootstrap(context.Background(), holderFor(cfg))
	require.NoError(t, err)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	mgr := app.manager.(*manager)
	require.Eventually(t, func() bool { return mgr.APIAddr() != nil }, 2*time.Second, 5*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + mgr.APIAddr().String() + "/api/v1/time")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "sql:"+cfg.Authority.SQL.Path, payload["authority"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func unreachableRedisConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := bootstrapConfig(t)
	cfg.Authority.Kind = config.AuthorityRedis
	cfg.Authority.Redis.Addr = "127.0.0.1:1"
	cfg.Sync.MaxRetries = 0
	cfg.Sync.PerAttemptTimeout = 200 * time.Millisecond
	return cfg
}

func TestBootstrap_FailFastWithoutAuthority(t *testing.T) {
	cfg := unreachableRedisConfig(t)
	cfg.Startup.FailFast = true

	app, err := Bootstrap(context.Background(), holderFor(cfg))
	require.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, clock.ErrStartupSync)
}

func TestBootstrap_DeferredStartupWithoutAuthority(t *testing.T) {
	cfg := unreachableRedisConfig(t)
	cfg.Startup.FailFast = false

	app, err := Bootstrap(context.Background(), holderFor(cfg))
	require.NoError(t, err)
	require.NotNil(t, app)
	app.reloadSignal = nil

	// The daemon still starts; readiness stays false until a sync succeeds.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	mgr := app.manager.(*manager)
	require.Eventually(t, func() bool { return mgr.APIAddr() != nil }, 2*time.Second, 5*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + mgr.APIAddr().String() + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestBootstrap_MetricsAddressCollision(t *testing.T) {
	cfg := bootstrapConfig(t)
	cfg.Server.ListenAddr = "127.0.0.1:18080"
	cfg.Server.MetricsAddr = "127.0.0.1:18080"

	_, err := Bootstrap(context.Background(), holderFor(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}
