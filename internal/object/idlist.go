// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"slices"

	"github.com/muemud/mue/internal/world"
)

// PropHolder is anything with readable and writable properties.
type PropHolder interface {
	GetProp(ctx context.Context, name string) (world.PropValue, error)
	SetProp(ctx context.Context, name string, value world.PropValue) error
}

// IDList treats one list property as a set of object ids. Non-id list
// entries are dropped on the next write.
type IDList struct {
	holder PropHolder
	prop   string
}

// NewIDList binds the id set stored in prop on holder.
func NewIDList(holder PropHolder, prop string) *IDList {
	return &IDList{holder: holder, prop: prop}
}

// All returns the ids in stored order.
func (l *IDList) All(ctx context.Context) ([]world.ObjectID, error) {
	value, err := l.holder.GetProp(ctx, l.prop)
	if err != nil {
		return nil, err
	}
	items, ok := value.ListValue()
	if !ok {
		return nil, nil
	}
	ids := make([]world.ObjectID, 0, len(items))
	for _, item := range items {
		if id, ok := item.IDValue(); ok && id.IsAssigned() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Contains reports whether id is in the set.
func (l *IDList) Contains(ctx context.Context, id world.ObjectID) (bool, error) {
	ids, err := l.All(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

// Add appends id unless already present. It reports whether the set changed.
func (l *IDList) Add(ctx context.Context, id world.ObjectID) (bool, error) {
	ids, err := l.All(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(ids, id) {
		return false, nil
	}
	return true, l.store(ctx, append(ids, id))
}

// Remove deletes id from the set. It reports whether the set changed.
func (l *IDList) Remove(ctx context.Context, id world.ObjectID) (bool, error) {
	ids, err := l.All(ctx)
	if err != nil {
		return false, err
	}
	idx := slices.Index(ids, id)
	if idx < 0 {
		return false, nil
	}
	return true, l.store(ctx, slices.Delete(ids, idx, idx+1))
}

// An empty set removes the property.
func (l *IDList) store(ctx context.Context, ids []world.ObjectID) error {
	if len(ids) == 0 {
		return l.holder.SetProp(ctx, l.prop, world.Unset())
	}
	items := make([]world.FlatPropValue, len(ids))
	for i, id := range ids {
		items[i] = world.FlatID(id)
	}
	return l.holder.SetProp(ctx, l.prop, world.PropListValue(items...))
}
