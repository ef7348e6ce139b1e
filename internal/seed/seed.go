// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package seed

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/world"
)

// World is what a bootstrap needs from a running world coordinator.
type World interface {
	object.Host
	GetActiveServers(ctx context.Context) (uint, error)
}

// Result lists the objects a bootstrap created.
type Result struct {
	RootRoom   world.ObjectID
	God        world.ObjectID
	StartRoom  world.ObjectID
	PlayerRoot world.ObjectID
	Player     world.ObjectID
	Scripts    map[string]world.ObjectID
}

// Run creates the objects in def and records the root pointers.
// It refuses to run while any other instance is connected, or when the
// storage already holds a root room.
func Run(ctx context.Context, w World, def *Definition) (*Result, error) {
	if def == nil {
		def = Default()
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	servers, err := w.GetActiveServers(ctx)
	if err != nil {
		return nil, oops.In("seed").Wrap(err)
	}
	if servers > 1 {
		return nil, oops.Code("SEED_CLUSTER_ACTIVE").
			With("active_servers", servers).
			Errorf("refusing to initialize while %d other instance(s) are running", servers-1)
	}

	store := w.Storage()
	if existing, ok, err := store.GetRootValue(ctx, world.RootRoom); err != nil {
		return nil, oops.In("seed").Wrap(err)
	} else if ok {
		return nil, oops.Code("SEED_ALREADY_INITIALIZED").
			With("root_room", existing).
			Errorf("world is already initialized")
	}

	res := &Result{Scripts: map[string]world.ObjectID{}}

	root, err := object.CreateRootRoom(ctx, w, def.RootRoom.Name)
	if err != nil {
		return nil, oops.In("seed").With("step", "root_room").Wrap(err)
	}
	res.RootRoom = root.ID()

	god, err := object.CreateRootPlayer(ctx, w, def.God.Name, def.God.Password)
	if err != nil {
		return nil, oops.In("seed").With("step", "god").Wrap(err)
	}
	res.God = god.ID()

	start, err := object.CreateRoom(ctx, w, def.StartRoom.Name, god.ID(), root.ID(), world.EmptyID)
	if err != nil {
		return nil, oops.In("seed").With("step", "start_room").Wrap(err)
	}
	res.StartRoom = start.ID()

	playerRoot, err := object.CreateRoom(ctx, w, def.PlayerRoot.Name, god.ID(), root.ID(), world.EmptyID)
	if err != nil {
		return nil, oops.In("seed").With("step", "player_root").Wrap(err)
	}
	res.PlayerRoot = playerRoot.ID()

	// God starts in the start room.
	if _, err := god.Move(ctx, start.ID()); err != nil {
		return nil, oops.In("seed").With("step", "god_move").Wrap(err)
	}

	roots := []struct {
		field world.RootField
		id    world.ObjectID
	}{
		{world.RootRoom, root.ID()},
		{world.God, god.ID()},
		{world.StartRoom, start.ID()},
		{world.PlayerRoot, playerRoot.ID()},
	}
	for _, r := range roots {
		if err := store.SetRootValue(ctx, r.field, r.id.ID()); err != nil {
			return nil, oops.In("seed").With("step", "root_pointer").With("field", r.field).Wrap(err)
		}
	}

	if def.Player != nil {
		p, err := object.CreatePlayer(ctx, w, def.Player.Name, def.Player.Password, god.ID(), playerRoot.ID(), start.ID())
		if err != nil {
			return nil, oops.In("seed").With("step", "player").Wrap(err)
		}
		res.Player = p.ID()
	}

	placements := map[string]world.ObjectID{
		"":           god.ID(),
		OnGod:        god.ID(),
		OnRootRoom:   root.ID(),
		OnStartRoom:  start.ID(),
		OnPlayerRoot: playerRoot.ID(),
		OnPlayer:     res.Player,
	}
	for _, s := range def.Scripts {
		sc, err := object.CreateScript(ctx, w, s.Name, god.ID(), placements[s.On], s.Code)
		if err != nil {
			return nil, oops.In("seed").With("step", "script").With("script", s.Name).Wrap(err)
		}
		res.Scripts[s.Name] = sc.ID()
	}

	slog.InfoContext(ctx, "world initialized",
		"root_room", res.RootRoom,
		"god", res.God,
		"start_room", res.StartRoom,
		"player_root", res.PlayerRoot,
		"scripts", len(res.Scripts),
	)
	return res, nil
}
