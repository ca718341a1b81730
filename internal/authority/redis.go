// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authority

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Username string // ACL user (optional)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// Redis reads the server clock with the TIME command.
type Redis struct {
	client redis.UniversalClient
	name   string
	owned  bool
}

// NewRedis creates a client for cfg. Connection problems surface on the first
// FetchTime so an unavailable server never blocks construction.
func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     2,
		MaxRetries:   -1, // the synchronizer owns retries
	})
	return &Redis{client: client, name: "redis:" + cfg.Addr, owned: true}
}

// NewRedisFromClient wraps an existing client. The caller keeps ownership.
func NewRedisFromClient(client redis.UniversalClient, name string) *Redis {
	if name == "" {
		name = "redis"
	}
	return &Redis{client: client, name: name}
}

func (a *Redis) Name() string { return a.name }

func (a *Redis) FetchTime(ctx context.Context) (time.Time, error) {
	t, err := a.client.Time(ctx).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return time.Time{}, Unreachable(a.name, ctxErr)
		}
		var rerr redis.Error
		if errors.As(err, &rerr) {
			return time.Time{}, Protocol(a.name, err)
		}
		return time.Time{}, Unreachable(a.name, err)
	}
	return t.UTC(), nil
}

// Close closes the client when the authority owns it.
func (a *Redis) Close() error {
	if !a.owned {
		return nil
	}
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("close %s: %w", a.name, err)
	}
	return nil
}
