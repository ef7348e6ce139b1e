// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/world"
)

// Container is an object other objects can be located in.
type Container struct {
	Object
}

// Finder searches an object's contents by name.
type Finder interface {
	FindIn(ctx context.Context, term string, kind world.Kind) (world.ObjectID, bool, error)
}

// Contents lists the ids inside the container. KindInvalid lists every kind.
func (c *Container) Contents(ctx context.Context, kind world.Kind) ([]world.ObjectID, error) {
	return c.host.Storage().GetContents(ctx, c.ID(), kind)
}

// FindIn returns the first content whose name matches term.
func (c *Container) FindIn(ctx context.Context, term string, kind world.Kind) (world.ObjectID, bool, error) {
	contents, err := c.loadContents(ctx)
	if err != nil {
		return world.EmptyID, false, err
	}
	for _, obj := range contents {
		if kind.IsValid() && obj.Kind() != kind {
			continue
		}
		if m, ok := obj.(interface{ MatchName(string) bool }); ok && m.MatchName(term) {
			return obj.ID(), true, nil
		}
	}
	return world.EmptyID, false, nil
}

// FindActionIn returns the first action whose command aliases match term.
// With searchItems, items inside the container are searched as well.
func (c *Container) FindActionIn(ctx context.Context, term string, searchItems bool) (world.ObjectID, bool, error) {
	contents, err := c.loadContents(ctx)
	if err != nil {
		return world.EmptyID, false, err
	}
	for _, obj := range contents {
		if action, ok := obj.(*Action); ok && action.MatchCommand(term) {
			return action.ID(), true, nil
		}
	}
	if !searchItems {
		return world.EmptyID, false, nil
	}
	for _, obj := range contents {
		item, ok := obj.(*Item)
		if !ok {
			continue
		}
		id, found, err := item.FindActionIn(ctx, term, false)
		if err != nil || found {
			return id, found, err
		}
	}
	return world.EmptyID, false, nil
}

// Destroy moves the contents to the container's location (or parent when
// it has none) and then destroys the container.
func (c *Container) Destroy(ctx context.Context) error {
	if err := c.spill(ctx); err != nil {
		return err
	}
	return c.Object.Destroy(ctx)
}

func (c *Container) spill(ctx context.Context) error {
	id := c.ID()
	contents, err := c.Contents(ctx, world.KindInvalid)
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		return nil
	}

	home := c.Location()
	if !home.IsAssigned() || home.Equal(id) {
		home = c.Parent()
	}
	if !home.IsAssigned() || home.Equal(id) {
		return oops.Code(world.CodeInvalidState).
			With("object_id", id.ID()).
			Wrapf(world.ErrInvalidState, "nowhere to move contents")
	}

	if err := c.host.Storage().MoveObjects(ctx, contents, home, id); err != nil {
		return err
	}
	// Uncached contents read the new location when next imitated.
	for _, content := range contents {
		if obj, ok := c.host.Cache().GetObject(content); ok {
			if m, ok := obj.(Movable); ok {
				m.MoveFinish(ctx, home, id)
			}
		}
	}
	return nil
}

func (c *Container) loadContents(ctx context.Context) ([]world.Entity, error) {
	ids, err := c.Contents(ctx, world.KindInvalid)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	objs, err := ImitateAll(ctx, c.host, ids)
	if err != nil {
		return nil, err
	}
	found := objs[:0]
	for _, obj := range objs {
		if obj != nil {
			found = append(found, obj)
		}
	}
	return found, nil
}

// Movable is implemented by every object kind.
type Movable interface {
	MoveFinish(ctx context.Context, newLocation, oldLocation world.ObjectID) world.MoveResult
}
