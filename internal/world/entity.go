// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import "context"

// Entity is the capability every game object exposes to the storage manager
// and the object cache.
type Entity interface {
	ID() ObjectID
	Kind() Kind
	Name() string
	Location() ObjectID
	// Meta returns the current metadata snapshot.
	Meta() MetaRecord

	// IsPendingAdd is true until the entity has been assigned an ID.
	IsPendingAdd() bool
	IsDestroyed() bool

	// AssignID sets the short id of a pending entity. It fails once an ID is set.
	AssignID(short string) error

	// Reload replaces the metadata snapshot with the stored one.
	Reload(ctx context.Context) error
}
