// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessCommand(ctx context.Context, player *object.Player, req core.CommandRequest) (bool, error) {
	args := m.Called(ctx, player, req)
	return args.Bool(0), args.Error(1)
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	c := newCluster()
	w := c.world()
	assert.Equal(t, core.StateUninitialized, w.State())

	require.NoError(t, w.Init(ctx))
	t.Cleanup(func() { _ = w.Close(ctx) })

	assert.Equal(t, core.StateRunning, w.State())
	want := `{"instance_id":"` + w.InstanceID() + `","event_name":"joined","event_time":"2026-01-02T03:04:05Z","meta":{"version":"1.0.0"}}`
	assert.Equal(t, []string{want}, c.pubsub.on(core.ControlChannel))

	active, err := w.GetActiveServers(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), active)

	t.Run("second init is a no-op", func(t *testing.T) {
		require.NoError(t, w.Init(ctx))
		assert.Len(t, c.pubsub.on(core.ControlChannel), 1)
	})
}

func TestLifecycleEnforcement(t *testing.T) {
	ctx := context.Background()
	room := world.MustParseID("r:test")

	calls := map[string]func(w *core.World) error{
		"PublishMessage": func(w *core.World) error {
			return w.PublishMessage(ctx, world.Text("hi"), nil)
		},
		"Subscribe": func(w *core.World) error {
			_, err := w.Subscribe(ctx, nil, func(context.Context, string, string) {})
			return err
		},
		"PlayerCommand": func(w *core.World) error {
			_, err := w.PlayerCommand(ctx, nil, core.CommandRequest{Command: "look"})
			return err
		},
		"GetPlayerByName": func(w *core.World) error {
			_, _, err := w.GetPlayerByName(ctx, "god")
			return err
		},
		"GetRootRoom": func(w *core.World) error {
			_, err := w.GetRootRoom(ctx)
			return err
		},
		"GetObjectByID": func(w *core.World) error {
			_, _, err := w.GetObjectByID(ctx, room, world.KindInvalid)
			return err
		},
		"GetObjectsByID": func(w *core.World) error {
			_, err := w.GetObjectsByID(ctx, []world.ObjectID{room})
			return err
		},
		"GetActiveServers": func(w *core.World) error {
			_, err := w.GetActiveServers(ctx)
			return err
		},
		"GetActiveRoomIDs": func(w *core.World) error {
			_, err := w.GetActiveRoomIDs(ctx)
			return err
		},
		"GetConnectedPlayerIDs": func(w *core.World) error {
			_, err := w.GetConnectedPlayerIDs(ctx)
			return err
		},
		"InvalidateScriptCache": func(w *core.World) error {
			_, err := w.InvalidateScriptCache(ctx)
			return err
		},
		"FireObjectEvent": func(w *core.World) error {
			return w.FireObjectEvent(ctx, room, world.EventInvalidate, world.EmptyResult{})
		},
	}

	for name, call := range calls {
		t.Run(name+" before init", func(t *testing.T) {
			err := call(newCluster().world())
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, core.CodeNotInitialized)
		})

		t.Run(name+" after shutdown", func(t *testing.T) {
			w := newCluster().world()
			require.NoError(t, w.Init(ctx))
			require.NoError(t, w.Shutdown(ctx))
			require.NoError(t, w.Shutdown(ctx), "shutdown is idempotent")
			t.Cleanup(func() { _ = w.Close(ctx) })

			err := call(w)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, core.CodeShutdown)
		})
	}

	t.Run("init after shutdown", func(t *testing.T) {
		w := newCluster().world()
		require.NoError(t, w.Shutdown(ctx))
		err := w.Init(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, core.CodeShutdown)
	})
}

func TestPublishMessage(t *testing.T) {
	ctx := context.Background()
	c := newCluster()
	w := c.running(t)
	_, god, start := bootstrap(t, w)

	t.Run("untargeted goes to the world channel", func(t *testing.T) {
		require.NoError(t, w.PublishMessage(ctx, world.Text("Sample message"), nil))
		assert.Equal(t, []string{`{"message":"Sample message"}`}, c.pubsub.on(core.WorldChannel))
	})

	t.Run("room target", func(t *testing.T) {
		require.NoError(t, w.PublishMessage(ctx, world.Text("Sample message"), start))
		assert.Equal(t, []string{`{"message":"Sample message"}`}, c.pubsub.on("c:"+start.ID().ID()))
	})

	t.Run("items use their container's channel", func(t *testing.T) {
		lamp, err := object.CreateItem(ctx, w, "lamp", god.ID(), start.ID())
		require.NoError(t, err)
		c.pubsub.reset()

		require.NoError(t, w.PublishMessage(ctx, world.Text("flicker"), lamp))
		assert.Len(t, c.pubsub.on(core.ChannelFor(start.ID())), 1)
		assert.Empty(t, c.pubsub.on(core.ChannelFor(lamp.ID())))
	})

	t.Run("subscribers receive the JSON message", func(t *testing.T) {
		got := make(chan string, 1)
		sub, err := w.Subscribe(ctx, god, func(_ context.Context, _ string, payload string) { got <- payload })
		require.NoError(t, err)
		defer func() { _ = sub.Unsubscribe(ctx) }()

		require.NoError(t, god.SendMessage(ctx, world.Message{Text: "psst", ThirdPerson: "whispers"}))
		select {
		case payload := <-got:
			assert.JSONEq(t, `{"message":"psst","third_person":"whispers"}`, payload)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	})
}

func TestPlayerCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the processor", func(t *testing.T) {
		proc := &mockProcessor{}
		w := newCluster().running(t, core.WithCommandProcessor(proc))
		_, god, _ := bootstrap(t, w)
		req := core.CommandRequest{Command: "Hello world!"}
		proc.On("ProcessCommand", mock.Anything, god, req).Return(true, nil)

		ok, err := w.PlayerCommand(ctx, god, req)
		require.NoError(t, err)
		assert.True(t, ok)
		proc.AssertExpectations(t)
	})

	t.Run("logs the verb", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		proc := &mockProcessor{}
		w := newCluster().running(t, core.WithCommandProcessor(proc), core.WithLogger(logger))
		_, god, _ := bootstrap(t, w)
		req := core.CommandRequest{Command: "  LOOK here"}
		proc.On("ProcessCommand", mock.Anything, god, req).Return(true, nil)

		_, err := w.PlayerCommand(ctx, god, req)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"verb":"look"`)
	})

	t.Run("fails without a processor", func(t *testing.T) {
		w := newCluster().running(t)
		_, god, _ := bootstrap(t, w)

		_, err := w.PlayerCommand(ctx, god, core.CommandRequest{Command: "look"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, core.CodeNoProcessor)
	})
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	w := newCluster().running(t)
	root, god, start := bootstrap(t, w)

	t.Run("roots", func(t *testing.T) {
		gotRoot, err := w.GetRootRoom(ctx)
		require.NoError(t, err)
		assert.Same(t, root, gotRoot)

		gotStart, err := w.GetStartRoom(ctx)
		require.NoError(t, err)
		assert.Same(t, start, gotStart)

		gotGod, err := w.GetRootPlayer(ctx)
		require.NoError(t, err)
		assert.Same(t, god, gotGod)

		_, err = w.GetPlayerRoot(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, core.CodeRootNotFound)
	})

	t.Run("root pointing at a missing object", func(t *testing.T) {
		require.NoError(t, w.Storage().SetRootValue(ctx, world.PlayerRoot, "r:gone"))
		_, err := w.GetPlayerRoot(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, core.CodeRootNotFound)
	})

	t.Run("player by name", func(t *testing.T) {
		p, ok, err := w.GetPlayerByName(ctx, "GOD")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, god, p)

		_, ok, err = w.GetPlayerByName(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("object by id", func(t *testing.T) {
		obj, ok, err := w.GetObjectByID(ctx, start.ID(), world.KindInvalid)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, start, obj)

		_, ok, err = w.GetObjectByID(ctx, start.ID(), world.KindPlayer)
		require.NoError(t, err)
		assert.False(t, ok, "kind mismatch")

		_, ok, err = w.GetObjectByID(ctx, world.EmptyID, world.KindInvalid)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = w.GetObjectByID(ctx, world.MustParseID("r:gone"), world.KindInvalid)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("objects by id", func(t *testing.T) {
		objs, err := w.GetObjectsByID(ctx, []world.ObjectID{god.ID(), world.EmptyID, world.MustParseID("i:gone"), root.ID()})
		require.NoError(t, err)
		require.Len(t, objs, 4)
		assert.Same(t, god, objs[0])
		assert.Nil(t, objs[1])
		assert.Nil(t, objs[2])
		assert.Same(t, root, objs[3])
	})
}

func TestPresenceQueries(t *testing.T) {
	ctx := context.Background()
	w := newCluster().running(t)
	root, god, start := bootstrap(t, w)

	noop := func(context.Context, string, string) {}
	for _, target := range []world.Entity{root, start, god} {
		sub, err := w.Subscribe(ctx, target, noop)
		require.NoError(t, err)
		t.Cleanup(func() { _ = sub.Unsubscribe(ctx) })
	}

	rooms, err := w.GetActiveRoomIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []world.ObjectID{root.ID(), start.ID()}, rooms)

	players, err := w.GetConnectedPlayerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []world.ObjectID{god.ID()}, players)
}

func TestFireEvent(t *testing.T) {
	ctx := context.Background()
	c := newCluster()
	w := c.running(t)
	events := w.Events().Subscribe()
	c.pubsub.reset()

	id := world.MustParseID("r:test")
	result := world.MoveResult{OldLocation: world.MustParseID("r:a"), NewLocation: world.MustParseID("r:b")}
	require.NoError(t, w.FireObjectEvent(ctx, id, world.EventMove, result))

	select {
	case ev := <-events:
		assert.Equal(t, world.ScopeObject, ev.Scope)
		assert.Equal(t, id, ev.ObjectID)
		assert.Equal(t, world.EventMove, ev.Name)
		assert.Equal(t, result, ev.Payload)
		assert.Equal(t, frozen, ev.Time)
	case <-time.After(time.Second):
		t.Fatal("no local event")
	}

	sent := c.pubsub.on(core.ControlChannel)
	require.Len(t, sent, 1)
	var msg core.InterServerMessage
	require.NoError(t, json.Unmarshal([]byte(sent[0]), &msg))
	assert.Equal(t, core.ISCUpdateObject, msg.EventName)
	assert.Equal(t, w.InstanceID(), msg.InstanceID)
	assert.Equal(t, map[string]string{
		"id":           "r:test",
		"message":      "move",
		"old_location": "r:a",
		"new_location": "r:b",
	}, msg.Meta)

	t.Run("local only", func(t *testing.T) {
		c.pubsub.reset()
		require.NoError(t, w.FireEvent(ctx, world.ScopePlayer, world.MustParseID("p:x"), world.EventQuit, world.QuitResult{}, true))
		ev := <-events
		assert.Equal(t, world.ScopePlayer, ev.Scope)
		assert.Empty(t, c.pubsub.on(core.ControlChannel))
	})

	t.Run("player connections", func(t *testing.T) {
		c.pubsub.reset()
		player := world.MustParseID("p:alice")
		conn := core.NewULID()
		require.NoError(t, w.PlayerConnected(ctx, player, conn))
		require.NoError(t, w.PlayerDisconnected(ctx, player, conn))

		sent := c.pubsub.on(core.ControlChannel)
		require.Len(t, sent, 2)
		var last core.InterServerMessage
		require.NoError(t, json.Unmarshal([]byte(sent[1]), &last))
		assert.Equal(t, core.ISCUpdatePlayer, last.EventName)
		assert.Equal(t, "disconnect", last.Meta["message"])
		assert.Equal(t, "0", last.Meta["remaining_connections"])
	})
}

// inject publishes a control message as if another instance sent it.
func inject(t *testing.T, c *testCluster, msg core.InterServerMessage) {
	t.Helper()
	if msg.InstanceID == "" {
		msg.InstanceID = "other-instance"
	}
	if msg.EventTime.IsZero() {
		msg.EventTime = frozen
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, c.pubsub.Publish(context.Background(), core.ControlChannel, string(data)))
}

func TestInterServerHandling(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	c := newCluster()
	w := c.running(t, core.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	_, _, start := bootstrap(t, w)

	renamed := func() {
		t.Helper()
		md := start.Meta().Base()
		md.Name = "Renamed Square"
		require.NoError(t, w.Storage().UpdateMeta(ctx, start.ID(), md))
	}

	t.Run("own messages are ignored", func(t *testing.T) {
		inject(t, c, core.InterServerMessage{
			InstanceID: w.InstanceID(),
			EventName:  core.ISCUpdateObject,
			Meta:       map[string]string{"id": start.ID().ID(), "message": "destroyed"},
		})
		assert.True(t, w.Cache().Contains(start.ID()))
	})

	t.Run("invalidate reloads the cached object", func(t *testing.T) {
		renamed()
		assert.Equal(t, "Town Square", start.Name())

		inject(t, c, core.InterServerMessage{
			EventName: core.ISCUpdateObject,
			Meta:      map[string]string{"id": start.ID().ID(), "message": "invalidate"},
		})
		assert.Equal(t, "Renamed Square", start.Name())
	})

	t.Run("malformed messages are dropped", func(t *testing.T) {
		require.NoError(t, c.pubsub.Publish(ctx, core.ControlChannel, "not json"))
		require.NoError(t, c.pubsub.Publish(ctx, core.ControlChannel, `{"instance_id":"x"}`))
		assert.Contains(t, logs.String(), "dropping malformed message")
	})

	t.Run("peer with another major version", func(t *testing.T) {
		inject(t, c, core.InterServerMessage{
			EventName: core.ISCJoined,
			Meta:      map[string]string{"version": "2.0.0"},
		})
		assert.Contains(t, logs.String(), "incompatible protocol version")
	})

	t.Run("player connectivity is re-emitted locally", func(t *testing.T) {
		events := w.Events().Subscribe()
		defer w.Events().Unsubscribe(events)

		inject(t, c, core.InterServerMessage{
			EventName: core.ISCUpdatePlayer,
			Meta:      map[string]string{"id": "p:alice", "message": "connect", "remaining_connections": "2"},
		})
		inject(t, c, core.InterServerMessage{
			EventName: core.ISCUpdatePlayer,
			Meta:      map[string]string{"id": "p:alice", "message": "disconnect"},
		})

		first := <-events
		assert.Equal(t, world.EventConnect, first.Name)
		assert.Equal(t, world.PlayerConnectionResult{RemainingConnections: 2}, first.Payload)
		second := <-events
		assert.Equal(t, world.EventDisconnect, second.Name)
		assert.Equal(t, world.PlayerConnectionResult{RemainingConnections: world.UnknownConnections}, second.Payload)
	})

	t.Run("destroyed evicts without touching storage", func(t *testing.T) {
		inject(t, c, core.InterServerMessage{
			EventName: core.ISCUpdateObject,
			Meta:      map[string]string{"id": start.ID().ID(), "message": "destroyed"},
		})
		assert.False(t, w.Cache().Contains(start.ID()))

		exists, err := w.Storage().DoesObjectExist(ctx, start.ID())
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestInvalidateScriptCache(t *testing.T) {
	ctx := context.Background()
	c := newCluster()
	w := c.running(t)
	_, god, _ := bootstrap(t, w)

	script, err := object.CreateScript(ctx, w, "greet", god.ID(), world.EmptyID, "v1")
	require.NoError(t, err)
	require.NoError(t, w.Storage().SetScriptCode(ctx, script.ID(), "v2"))
	c.pubsub.reset()

	results, err := w.InvalidateScriptCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[world.ObjectID]bool{script.ID(): true}, results)
	assert.Equal(t, "v2", script.Code())

	sent := c.pubsub.on(core.ControlChannel)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `"event_name":"invalidate_script"`)
}
