// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package cache keeps at most one live instance of every object per process.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/muemud/mue/internal/world"
)

// invalidateConcurrency bounds the reloads InvalidateAll runs at once.
const invalidateConcurrency = 8

// Store is the persistence the cache needs.
type Store interface {
	AddObject(ctx context.Context, obj world.Entity) error
	GetMeta(ctx context.Context, id world.ObjectID) (world.MetaRecord, bool, error)
}

// Notifier broadcasts object events to the rest of the cluster.
type Notifier interface {
	FireObjectEvent(ctx context.Context, id world.ObjectID, event string, payload world.UpdateResult) error
}

// Builder constructs the typed instance for id from its stored metadata.
type Builder func(ctx context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error)

// Cache maps object ids to their single in-process instance.
type Cache struct {
	objects  sync.Map // world.ObjectID -> world.Entity
	store    Store
	notifier Notifier
}

// New creates an empty cache.
func New(store Store, notifier Notifier) *Cache {
	return &Cache{store: store, notifier: notifier}
}

// GetObject returns the cached instance for id.
func (c *Cache) GetObject(id world.ObjectID) (world.Entity, bool) {
	v, ok := c.objects.Load(id)
	if !ok {
		return nil, false
	}
	return v.(world.Entity), true
}

// GetObjectOfKind returns the cached instance for id when it is of the given kind.
func (c *Cache) GetObjectOfKind(id world.ObjectID, kind world.Kind) (world.Entity, bool) {
	obj, ok := c.GetObject(id)
	if !ok || obj.Kind() != kind {
		return nil, false
	}
	return obj, true
}

// Get returns the cached instance for id when it has type T.
func Get[T world.Entity](c *Cache, id world.ObjectID) (T, bool) {
	var zero T
	obj, ok := c.GetObject(id)
	if !ok {
		return zero, false
	}
	typed, ok := obj.(T)
	return typed, ok
}

// Contains reports whether id is cached.
func (c *Cache) Contains(id world.ObjectID) bool {
	_, ok := c.objects.Load(id)
	return ok
}

// Len returns the number of cached objects.
func (c *Cache) Len() int {
	n := 0
	c.objects.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// IDs returns the cached ids of kind, or every cached id for KindInvalid.
func (c *Cache) IDs(kind world.Kind) []world.ObjectID {
	var ids []world.ObjectID
	c.objects.Range(func(k, _ any) bool {
		id := k.(world.ObjectID)
		if !kind.IsValid() || id.Kind() == kind {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// StandardCreate persists a new object and caches it under its assigned id.
func (c *Cache) StandardCreate(ctx context.Context, obj world.Entity) error {
	if !obj.IsPendingAdd() && c.Contains(obj.ID()) {
		return world.IDExistsError(obj.ID())
	}

	if err := c.store.AddObject(ctx, obj); err != nil {
		return err
	}

	if obj.IsPendingAdd() {
		return oops.Code(world.CodeIDNotFound).
			With("name", obj.Name()).
			Wrapf(world.ErrIDNotFound, "object was stored without an id")
	}

	if _, loaded := c.objects.LoadOrStore(obj.ID(), obj); loaded {
		return world.IDExistsError(obj.ID())
	}
	return nil
}

// StandardImitate returns the cached instance for id, or loads its metadata
// and caches the instance produced by build.
func (c *Cache) StandardImitate(ctx context.Context, id world.ObjectID, kind world.Kind, build Builder) (world.Entity, error) {
	if id.Kind() != kind {
		return nil, world.KindMismatchError(id, kind)
	}

	if obj, ok := c.GetObject(id); ok {
		recordHit(kind)
		return obj, nil
	}
	recordMiss(kind)

	md, ok, err := c.store.GetMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, world.IDNotFoundError(id)
	}

	obj, err := build(ctx, id, md)
	if err != nil {
		return nil, err
	}

	// A concurrent imitate may have won; everyone gets the first instance.
	actual, _ := c.objects.LoadOrStore(id, obj)
	return actual.(world.Entity), nil
}

// Invalidate tells the cluster id changed, then reloads the local instance.
func (c *Cache) Invalidate(ctx context.Context, id world.ObjectID) (bool, error) {
	if err := c.notifier.FireObjectEvent(ctx, id, world.EventInvalidate, world.EmptyResult{}); err != nil {
		return false, err
	}
	return c.InvalidateLocal(ctx, id)
}

// InvalidateLocal reloads the cached instance of id from storage.
// It returns false when id is not cached.
func (c *Cache) InvalidateLocal(ctx context.Context, id world.ObjectID) (bool, error) {
	obj, ok := c.GetObject(id)
	if !ok {
		return false, nil
	}
	if err := obj.Reload(ctx); err != nil {
		return false, oops.With("object_id", id.ID()).Wrap(err)
	}
	return true, nil
}

// InvalidateAll reloads every cached object of kind and reports the outcome per id.
// A failed reload does not stop the others; the returned error is the
// first reload failure, if any.
func (c *Cache) InvalidateAll(ctx context.Context, kind world.Kind) (map[world.ObjectID]bool, error) {
	ids := c.IDs(kind)
	results := make(map[world.ObjectID]bool, len(ids))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(invalidateConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			ok, err := c.InvalidateLocal(ctx, id)
			mu.Lock()
			results[id] = ok
			mu.Unlock()
			if err != nil {
				slog.WarnContext(ctx, "cache reload failed", "object_id", id.ID(), "error", err)
			}
			return err
		})
	}
	err := g.Wait()
	return results, err
}

// OnDestroy evicts a destroyed object and tells the cluster about it.
func (c *Cache) OnDestroy(ctx context.Context, obj world.Entity) error {
	if !obj.IsDestroyed() {
		return oops.Code(world.CodeNotDestroyed).
			With("object_id", obj.ID().ID()).
			Wrap(world.ErrNotDestroyed)
	}
	if c.objects.CompareAndDelete(obj.ID(), obj) {
		recordEviction(obj.Kind())
	}
	return c.notifier.FireObjectEvent(ctx, obj.ID(), world.EventDestroyed, world.EmptyResult{})
}

// PostNetworkDestroy drops id after another instance destroyed it.
// Storage is not touched.
func (c *Cache) PostNetworkDestroy(id world.ObjectID) bool {
	_, loaded := c.objects.LoadAndDelete(id)
	if loaded {
		recordEviction(id.Kind())
	}
	return loaded
}
