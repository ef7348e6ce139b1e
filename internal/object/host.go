// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package object implements the game object kinds: rooms, players, items,
// scripts and actions.
//
// Objects are created and materialized through the object cache, so a
// process holds at most one instance per id. Metadata is replaced whole on
// every change and never edited in place.
package object

import (
	"context"
	"slices"

	"github.com/muemud/mue/internal/auth"
	"github.com/muemud/mue/internal/cache"
	"github.com/muemud/mue/internal/storage"
	"github.com/muemud/mue/internal/world"
)

// Host is the world capability objects are built on.
type Host interface {
	Storage() *storage.Manager
	Cache() *cache.Cache
	Hasher() auth.PasswordHasher

	FireObjectEvent(ctx context.Context, id world.ObjectID, event string, payload world.UpdateResult) error
	FirePlayerEvent(ctx context.Context, id world.ObjectID, event string, payload world.UpdateResult) error
	PublishMessage(ctx context.Context, msg world.Message, target world.Entity) error
}

// Fixed ids of the objects created when a world is bootstrapped.
var (
	RootRoomID   = world.MustParseID("r:0")
	RootPlayerID = world.MustParseID("p:0")
)

var locationKinds = map[world.Kind][]world.Kind{
	world.KindRoom:   {world.KindRoom},
	world.KindPlayer: {world.KindRoom},
	world.KindItem:   world.ContainerKinds,
	world.KindScript: world.ContainerKinds,
	world.KindAction: world.ContainerKinds,
}

var parentKinds = map[world.Kind][]world.Kind{
	world.KindRoom:   {world.KindRoom},
	world.KindPlayer: {world.KindRoom},
	world.KindItem:   world.ContainerKinds,
	world.KindScript: world.ContainerKinds,
	world.KindAction: world.ContainerKinds,
}

// CanLocate reports whether an object of kind may be located inside container.
func CanLocate(kind, container world.Kind) bool {
	return slices.Contains(locationKinds[kind], container)
}

// CanParent reports whether an object of kind may have a parent of kind parent.
func CanParent(kind, parent world.Kind) bool {
	return slices.Contains(parentKinds[kind], parent)
}
