// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muemud/mue/internal/auth"
	"github.com/muemud/mue/internal/backend/memory"
	"github.com/muemud/mue/internal/cache"
	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/storage"
	"github.com/muemud/mue/internal/world"
)

type firedEvent struct {
	scope   world.Scope
	id      world.ObjectID
	event   string
	payload world.UpdateResult
}

type sentMessage struct {
	text   string
	target world.ObjectID
}

// testHost is a single-process world over the memory backend that records
// what it would have broadcast.
type testHost struct {
	backend *memory.Storage
	store   *storage.Manager
	cache   *cache.Cache
	hasher  auth.PasswordHasher

	mu       sync.Mutex
	events   []firedEvent
	messages []sentMessage
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	return newTestHostOn(memory.NewStorage())
}

func newTestHostOn(backend *memory.Storage) *testHost {
	h := &testHost{
		backend: backend,
		store:   storage.NewManager(backend),
		hasher:  auth.NewArgon2idHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1}),
	}
	h.cache = cache.New(h.store, h)
	return h
}

func (h *testHost) Storage() *storage.Manager { return h.store }
func (h *testHost) Cache() *cache.Cache { return h.cache }
func (h *testHost) Hasher() auth.PasswordHasher { return h.hasher }

func (h *testHost) FireObjectEvent(_ context.Context, id world.ObjectID, event string, payload world.UpdateResult) error {
	h.record(firedEvent{scope: world.ScopeObject, id: id, event: event, payload: payload})
	return nil
}

func (h *testHost) FirePlayerEvent(_ context.Context, id world.ObjectID, event string, payload world.UpdateResult) error {
	h.record(firedEvent{scope: world.ScopePlayer, id: id, event: event, payload: payload})
	return nil
}

func (h *testHost) PublishMessage(_ context.Context, msg world.Message, target world.Entity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, sentMessage{text: msg.Text, target: target.ID()})
	return nil
}

func (h *testHost) record(e firedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *testHost) eventsFor(id world.ObjectID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var names []string
	for _, e := range h.events {
		if e.id == id {
			names = append(names, e.event)
		}
	}
	return names
}

func (h *testHost) sent() []sentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentMessage(nil), h.messages...)
}

// fixture is a bootstrapped world: root room r:0, god p:0 and a start room.
type fixture struct {
	host  *testHost
	root  *object.Room
	god   *object.Player
	start *object.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	h := newTestHost(t)

	root, err := object.CreateRootRoom(ctx, h, "The Void")
	require.NoError(t, err)
	god, err := object.CreateRootPlayer(ctx, h, "God", "")
	require.NoError(t, err)
	start, err := object.CreateRoom(ctx, h, "Town Square", god.ID(), root.ID(), world.EmptyID)
	require.NoError(t, err)

	return &fixture{host: h, root: root, god: god, start: start}
}
