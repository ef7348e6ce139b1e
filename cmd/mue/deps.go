// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/backend"
	"github.com/muemud/mue/internal/backend/memory"
	"github.com/muemud/mue/internal/backend/redis"
	"github.com/muemud/mue/internal/config"
)

// Backend bundles the storage and pub/sub halves of a configured backend.
type Backend struct {
	Storage backend.Storage
	PubSub  backend.PubSub
	close   func() error
}

// Close releases backend connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// BackendFactory opens the backend described by cfg.
type BackendFactory func(ctx context.Context, cfg config.BackendConfig) (*Backend, error)

// backendFactory is replaced in tests.
var backendFactory BackendFactory = openBackend

func openBackend(ctx context.Context, cfg config.BackendConfig) (*Backend, error) {
	switch cfg.Kind {
	case config.BackendMemory:
		slog.Warn("using the in-memory backend; world state is lost on exit and not shared between processes")
		b := memory.New()
		return &Backend{Storage: b.Storage, PubSub: b.PubSub}, nil
	case config.BackendRedis:
		b, err := redis.Connect(ctx, redis.Options{
			Addr:           cfg.Redis.Addr,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			ConnectTimeout: cfg.ConnectTimeout,
			ConnectRetries: cfg.ConnectRetries,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return &Backend{Storage: b, PubSub: b, close: b.Close}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "backend.kind").
			Errorf("unknown backend kind %q", cfg.Kind)
	}
}
