// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// Object holds the state and behaviour shared by every kind.
type Object struct {
	host Host
	// self is the outermost value (e.g. *Room) so the cache and storage
	// always see the instance that is actually cached.
	self world.Entity
	kind world.Kind

	mu   sync.RWMutex
	id   world.ObjectID
	meta world.MetaRecord

	destroyed atomic.Bool
}

func (o *Object) init(host Host, self world.Entity, kind world.Kind, id world.ObjectID, md world.MetaRecord) {
	o.host = host
	o.self = self
	o.kind = kind
	o.id = id
	o.meta = md
}

// ID returns the object's id, or EmptyID before it is stored.
func (o *Object) ID() world.ObjectID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

// Kind returns the object's kind.
func (o *Object) Kind() world.Kind { return o.kind }

// Meta returns the current metadata snapshot.
func (o *Object) Meta() world.MetaRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.meta
}

// Name returns the object's name.
func (o *Object) Name() string { return o.Meta().Base().Name }

// Creator returns the id of the object's creator.
func (o *Object) Creator() world.ObjectID { return o.Meta().Base().Creator }

// Parent returns the object's parent.
func (o *Object) Parent() world.ObjectID { return o.Meta().Base().Parent }

// Location returns the container the object is in.
func (o *Object) Location() world.ObjectID { return o.Meta().Base().Location }

// IsPendingAdd reports whether the object has not been stored yet.
func (o *Object) IsPendingAdd() bool { return !o.ID().IsAssigned() }

// IsDestroyed reports whether Destroy has completed.
func (o *Object) IsDestroyed() bool { return o.destroyed.Load() }

// AssignID gives a pending object its short id.
func (o *Object) AssignID(short string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.id.IsAssigned() {
		return oops.Code(world.CodeInvalidState).
			With("object_id", o.id.ID()).
			Wrapf(world.ErrInvalidState, "id already assigned")
	}
	id, err := world.NewID(o.kind, short)
	if err != nil {
		return err
	}
	o.id = id
	return nil
}

// Reload replaces the metadata snapshot with the stored one.
func (o *Object) Reload(ctx context.Context) error {
	id := o.ID()
	md, ok, err := o.host.Storage().GetMeta(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return world.IDNotFoundError(id)
	}
	o.setMeta(md)
	return nil
}

func (o *Object) setMeta(md world.MetaRecord) {
	o.mu.Lock()
	o.meta = md
	o.mu.Unlock()
}

// updateBase swaps in a copy of the metadata with fn applied to its shared fields.
func (o *Object) updateBase(fn func(*world.Metadata)) world.MetaRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	base := o.meta.Base()
	fn(&base)
	o.meta = o.meta.WithBase(base)
	return o.meta
}

func (o *Object) String() string {
	return fmt.Sprintf("'%s' [%s]", o.Name(), o.ID())
}

// MatchName reports whether term names this object, ignoring case.
func (o *Object) MatchName(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	return strings.EqualFold(term, o.Name())
}

// GetProp reads one property.
func (o *Object) GetProp(ctx context.Context, name string) (world.PropValue, error) {
	return o.host.Storage().GetProp(ctx, o.ID(), name)
}

// GetProps reads every property.
func (o *Object) GetProps(ctx context.Context) (map[string]world.PropValue, error) {
	return o.host.Storage().GetProps(ctx, o.ID())
}

// SetProp writes one property; Unset removes it.
func (o *Object) SetProp(ctx context.Context, name string, value world.PropValue) error {
	return o.host.Storage().SetProp(ctx, o.ID(), name, value)
}

// SetProps replaces every property.
func (o *Object) SetProps(ctx context.Context, values map[string]world.PropValue) error {
	return o.host.Storage().SetProps(ctx, o.ID(), values)
}

// Rename changes the object's name. It returns false when newName is blank
// or unchanged.
func (o *Object) Rename(ctx context.Context, newName string) (bool, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == o.Name() {
		return false, nil
	}
	id := o.ID()
	if err := world.ValidateName(newName); err != nil {
		return false, world.InvalidNameError(id, newName)
	}

	store := o.host.Storage()
	current, ok, err := store.GetMeta(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, oops.Code(world.CodeInvalidState).
			With("object_id", id.ID()).
			Wrapf(world.ErrInvalidState, "no stored metadata")
	}
	oldName := current.Base().Name

	if o.kind == world.KindPlayer && !strings.EqualFold(oldName, newName) {
		existing, found, err := store.FindPlayerByName(ctx, newName)
		if err != nil {
			return false, err
		}
		if found && !existing.Equal(id) {
			return false, world.NameExistsError(newName, existing.ID())
		}
	}

	base := current.Base()
	base.Name = newName
	updated := current.WithBase(base)
	if err := store.UpdateMeta(ctx, id, updated); err != nil {
		return false, err
	}
	if o.kind == world.KindPlayer {
		if err := store.UpdatePlayerNameIndex(ctx, id, oldName, newName); err != nil {
			return false, err
		}
	}
	o.setMeta(updated)

	o.fire(ctx, world.EventRename, world.RenameResult{OldName: oldName, NewName: newName})
	return true, nil
}

// Reparent sets a new parent after checking the parent kind and that it exists.
func (o *Object) Reparent(ctx context.Context, newParent world.ObjectID) (world.ReparentResult, error) {
	if !newParent.IsAssigned() || !CanParent(o.kind, newParent.Kind()) {
		return world.ReparentResult{}, world.InvalidParentError(newParent)
	}
	store := o.host.Storage()
	if err := o.requireExists(ctx, newParent); err != nil {
		return world.ReparentResult{}, err
	}

	id := o.ID()
	oldParent, err := o.liveRef(ctx, id, world.FieldParent)
	if err != nil {
		return world.ReparentResult{}, err
	}
	if err := store.ReparentObject(ctx, id, newParent); err != nil {
		return world.ReparentResult{}, err
	}
	o.updateBase(func(m *world.Metadata) { m.Parent = newParent })

	result := world.ReparentResult{OldParent: oldParent, NewParent: newParent}
	o.fire(ctx, world.EventReparent, result)
	return result, nil
}

// Move puts the object in a new location after checking the location kind
// and that it exists.
func (o *Object) Move(ctx context.Context, newLocation world.ObjectID) (world.MoveResult, error) {
	if !newLocation.IsAssigned() || !CanLocate(o.kind, newLocation.Kind()) {
		return world.MoveResult{}, world.InvalidLocationError(newLocation)
	}
	if err := o.requireExists(ctx, newLocation); err != nil {
		return world.MoveResult{}, err
	}

	id := o.ID()
	oldLocation, err := o.liveRef(ctx, id, world.FieldLocation)
	if err != nil {
		return world.MoveResult{}, err
	}
	if err := o.host.Storage().MoveObject(ctx, id, newLocation, oldLocation); err != nil {
		return world.MoveResult{}, err
	}
	return o.MoveFinish(ctx, newLocation, oldLocation), nil
}

// MoveFinish records a location change that storage already applied.
func (o *Object) MoveFinish(ctx context.Context, newLocation, oldLocation world.ObjectID) world.MoveResult {
	o.updateBase(func(m *world.Metadata) { m.Location = newLocation })
	result := world.MoveResult{OldLocation: oldLocation, NewLocation: newLocation}
	o.fire(ctx, world.EventMove, result)
	return result
}

// Destroy deletes the object from storage and the cache.
func (o *Object) Destroy(ctx context.Context) error {
	if o.IsDestroyed() {
		return world.DestroyedError(o.ID())
	}
	if err := o.host.Storage().DestroyObject(ctx, o.self); err != nil {
		return err
	}
	o.destroyed.Store(true)
	return o.host.Cache().OnDestroy(ctx, o.self)
}

// requireExists fails with ObjectDestroyed when target is not stored.
func (o *Object) requireExists(ctx context.Context, target world.ObjectID) error {
	exists, err := o.host.Storage().DoesObjectExist(ctx, target)
	if err != nil {
		return err
	}
	if !exists {
		return world.DestroyedError(target)
	}
	return nil
}

// liveRef reads an id-valued metadata field from storage rather than the snapshot.
func (o *Object) liveRef(ctx context.Context, id world.ObjectID, field string) (world.ObjectID, error) {
	raw, ok, err := o.host.Storage().GetMetaField(ctx, id, field)
	if err != nil || !ok {
		return world.EmptyID, err
	}
	ref, err := world.ParseID(raw)
	if err != nil {
		slog.WarnContext(ctx, "ignoring malformed stored reference", "object_id", id.ID(), "field", field, "value", raw)
		return world.EmptyID, nil
	}
	return ref, nil
}

// fire publishes an object event. The change is already stored, so a
// failed broadcast is logged rather than returned.
func (o *Object) fire(ctx context.Context, event string, payload world.UpdateResult) {
	if err := o.host.FireObjectEvent(ctx, o.ID(), event, payload); err != nil {
		errutil.LogError(slog.Default(), "object event failed", err)
	}
}
