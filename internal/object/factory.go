// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/muemud/mue/internal/cache"
	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// imitateConcurrency bounds the loads ImitateAll runs at once.
const imitateConcurrency = 8

var builders = map[world.Kind]func(Host) cache.Builder{
	world.KindRoom: func(h Host) cache.Builder {
		return func(_ context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error) {
			return newRoom(h, id, md), nil
		}
	},
	world.KindPlayer: func(h Host) cache.Builder {
		return func(_ context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error) {
			return newPlayer(h, id, md), nil
		}
	},
	world.KindItem: func(h Host) cache.Builder {
		return func(_ context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error) {
			return newItem(h, id, md), nil
		}
	},
	world.KindScript: func(h Host) cache.Builder {
		return func(ctx context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error) {
			s := newScript(h, id, md)
			if err := s.loadCode(ctx); err != nil {
				return nil, err
			}
			return s, nil
		}
	},
	world.KindAction: func(h Host) cache.Builder {
		return func(_ context.Context, id world.ObjectID, md world.MetaRecord) (world.Entity, error) {
			return newAction(h, id, md), nil
		}
	},
}

// Imitate returns the single in-process instance of id, loading it from
// storage when it is not cached.
func Imitate(ctx context.Context, h Host, id world.ObjectID) (world.Entity, error) {
	build, ok := builders[id.Kind()]
	if !ok {
		return nil, oops.Code(world.CodeIllegalID).
			With("object_id", id.ID()).
			Wrap(world.ErrIllegalID)
	}
	return h.Cache().StandardImitate(ctx, id, id.Kind(), build(h))
}

func imitateAs[T world.Entity](ctx context.Context, h Host, id world.ObjectID) (T, error) {
	var zero T
	obj, err := Imitate(ctx, h, id)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, oops.Code(world.CodeKindMismatch).
			With("object_id", id.ID()).
			Wrap(world.ErrKindMismatch)
	}
	return typed, nil
}

// ImitateAll imitates ids concurrently. The result is index-aligned with
// ids; entries that no longer exist are nil.
func ImitateAll(ctx context.Context, h Host, ids []world.ObjectID) ([]world.Entity, error) {
	out := make([]world.Entity, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imitateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			obj, err := Imitate(gctx, h, id)
			if errutil.HasCode(err, world.CodeIDNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether err means the object is not stored.
func IsNotFound(err error) bool {
	return errors.Is(err, world.ErrIDNotFound) || errors.Is(err, world.ErrDestroyed)
}
