// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muemud/mue/internal/auth"
	"github.com/muemud/mue/internal/backend/memory"
	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/world"
)

var frozen = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

var cheapHasher = auth.NewArgon2idHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1})

type published struct {
	topic   string
	payload string
}

// recordingPubSub remembers everything published through it.
type recordingPubSub struct {
	*memory.PubSub

	mu   sync.Mutex
	sent []published
}

func (r *recordingPubSub) Publish(ctx context.Context, topic, payload string) error {
	r.mu.Lock()
	r.sent = append(r.sent, published{topic: topic, payload: payload})
	r.mu.Unlock()
	return r.PubSub.Publish(ctx, topic, payload)
}

func (r *recordingPubSub) on(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.sent {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

func (r *recordingPubSub) reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

type testCluster struct {
	store  *memory.Storage
	pubsub *recordingPubSub
}

func newCluster() *testCluster {
	return &testCluster{
		store:  memory.NewStorage(),
		pubsub: &recordingPubSub{PubSub: memory.NewPubSub()},
	}
}

func (c *testCluster) world(opts ...core.Option) *core.World {
	opts = append([]core.Option{
		core.WithClock(func() time.Time { return frozen }),
		core.WithHasher(cheapHasher),
	}, opts...)
	return core.New(c.store, c.pubsub, opts...)
}

func (c *testCluster) running(t *testing.T, opts ...core.Option) *core.World {
	t.Helper()
	w := c.world(opts...)
	require.NoError(t, w.Init(context.Background()))
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return w
}

// bootstrap creates the root objects and pointers the way `mue init` does.
func bootstrap(t *testing.T, w *core.World) (*object.Room, *object.Player, *object.Room) {
	t.Helper()
	ctx := context.Background()

	root, err := object.CreateRootRoom(ctx, w, "The Void")
	require.NoError(t, err)
	god, err := object.CreateRootPlayer(ctx, w, "God", "")
	require.NoError(t, err)
	start, err := object.CreateRoom(ctx, w, "Town Square", god.ID(), root.ID(), world.EmptyID)
	require.NoError(t, err)

	store := w.Storage()
	require.NoError(t, store.SetRootValue(ctx, world.RootRoom, root.ID().ID()))
	require.NoError(t, store.SetRootValue(ctx, world.God, god.ID().ID()))
	require.NoError(t, store.SetRootValue(ctx, world.StartRoom, start.ID().ID()))
	return root, god, start
}
