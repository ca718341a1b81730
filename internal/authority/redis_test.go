// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_FetchTime(t *testing.T) {
	mr := miniredis.RunT(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)
	mr.SetTime(fixed)

	a := NewRedis(RedisConfig{Addr: mr.Addr()})
	defer func() { _ = a.Close() }()
	assert.Equal(t, "redis:"+mr.Addr(), a.Name())

	got, err := a.FetchTime(context.Background())
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got), "want %s, got %s", fixed, got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestRedis_ServerErrorIsProtocol(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedis(RedisConfig{Addr: mr.Addr()})
	defer func() { _ = a.Close() }()

	mr.SetError("ERR clock unavailable")
	_, err := a.FetchTime(context.Background())
	require.ErrorIs(t, err, ErrProtocol)
}

func TestRedis_DownIsUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	a := NewRedis(RedisConfig{Addr: addr})
	defer func() { _ = a.Close() }()

	_, err := a.FetchTime(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestRedis_CanceledContextPassesThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedis(RedisConfig{Addr: mr.Addr()})
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.FetchTime(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestRedis_BorrowedClientNotClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	a := NewRedisFromClient(client, "")
	assert.Equal(t, "redis", a.Name())
	require.NoError(t, a.Close())
	require.NoError(t, client.Ping(context.Background()).Err())
}
