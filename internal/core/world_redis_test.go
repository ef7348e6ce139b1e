// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/muemud/mue/internal/backend/redis"
	"github.com/muemud/mue/internal/core"
)

func TestWorld_CloseReleasesRedisSubscription(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	srv, err := miniredis.Run()
	require.NoError(t, err)
	defer srv.Close()

	b, err := redis.Connect(ctx, redis.Options{Addr: srv.Addr(), ConnectRetries: 1})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	w := core.New(b, b, core.WithHasher(cheapHasher))
	require.NoError(t, w.Init(ctx))

	active, err := w.GetActiveServers(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), active)

	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Close(ctx), "close is idempotent")
	assert.Equal(t, core.StateShutdown, w.State())

	count, err := b.SubscriberCount(ctx, core.ControlChannel)
	require.NoError(t, err)
	assert.Zero(t, count)
}
