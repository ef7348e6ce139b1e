// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"strings"

	"github.com/muemud/mue/internal/world"
)

// Item is a thing that can be carried and can hold other things.
type Item struct {
	Container
}

func newItem(h Host, id world.ObjectID, md world.MetaRecord) *Item {
	i := &Item{}
	i.init(h, i, world.KindItem, id, md)
	return i
}

// CreateItem stores a new item owned and parented by creator.
func CreateItem(ctx context.Context, h Host, name string, creator, location world.ObjectID) (*Item, error) {
	if strings.HasPrefix(name, "$") {
		return nil, world.IllegalNameError(name, world.KindItem)
	}
	i := newItem(h, world.EmptyID, world.Metadata{
		Name:     name,
		Creator:  creator,
		Parent:   creator,
		Location: location,
	})
	if err := h.Cache().StandardCreate(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// ImitateItem returns the item with id, loading it if needed.
func ImitateItem(ctx context.Context, h Host, id world.ObjectID) (*Item, error) {
	return imitateAs[*Item](ctx, h, id)
}
