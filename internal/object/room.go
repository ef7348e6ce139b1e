// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"

	"github.com/muemud/mue/internal/world"
)

// Room is a place players and things can be in.
type Room struct {
	Container
}

func newRoom(h Host, id world.ObjectID, md world.MetaRecord) *Room {
	r := &Room{}
	r.init(h, r, world.KindRoom, id, md)
	return r
}

// CreateRoom stores a new room. Its location defaults to its parent.
func CreateRoom(ctx context.Context, h Host, name string, creator, parent, location world.ObjectID) (*Room, error) {
	if !location.IsAssigned() {
		location = parent
	}
	r := newRoom(h, world.EmptyID, world.Metadata{
		Name:     name,
		Creator:  creator,
		Parent:   parent,
		Location: location,
	})
	if err := h.Cache().StandardCreate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRootRoom stores the room every other object ultimately descends from.
func CreateRootRoom(ctx context.Context, h Host, name string) (*Room, error) {
	r := newRoom(h, RootRoomID, world.Metadata{
		Name:     name,
		Creator:  RootPlayerID,
		Parent:   RootRoomID,
		Location: RootRoomID,
	})
	if err := h.Cache().StandardCreate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ImitateRoom returns the room with id, loading it if needed.
func ImitateRoom(ctx context.Context, h Host, id world.ObjectID) (*Room, error) {
	return imitateAs[*Room](ctx, h, id)
}
