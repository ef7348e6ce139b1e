// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package storage maps object operations onto the key/value backend.
//
// Every operation that touches more than one key runs inside a single
// backend transaction.
package storage

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/muemud/mue/internal/backend"
	"github.com/muemud/mue/internal/world"
)

// Manager implements object persistence on a backend.Storage.
type Manager struct {
	store backend.Storage
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator overrides the short id generator used for new objects.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a storage manager over store.
func NewManager(store backend.Storage, opts ...Option) *Manager {
	m := &Manager{store: store, newID: newShortID}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newShortID returns a lowercase ULID.
func newShortID() string {
	return strings.ToLower(ulid.Make().String())
}

func (m *Manager) transact(ctx context.Context, op string, fn func(tx backend.Tx) error) error {
	err := m.store.Transact(ctx, fn)
	recordTransaction(op, err)
	if err != nil {
		return oops.In("storage").With("operation", op).Wrap(err)
	}
	return nil
}

// AddObject persists a new object, assigning it an id first if it has none.
func (m *Manager) AddObject(ctx context.Context, obj world.Entity) error {
	if obj.IsPendingAdd() {
		if err := obj.AssignID(m.newID()); err != nil {
			return err
		}
	}
	id := obj.ID()

	exists, err := m.store.SetContains(ctx, AllKey(id.Kind()), id.ID())
	if err != nil {
		return oops.In("storage").With("object_id", id.ID()).Wrap(err)
	}
	if exists {
		return world.IDExistsError(id)
	}

	name := obj.Name()
	if world.ValidateName(name) != nil {
		return world.InvalidNameError(id, name)
	}

	if id.Kind() == world.KindPlayer {
		existing, found, err := m.FindPlayerByName(ctx, name)
		if err != nil {
			return err
		}
		if found && !existing.Equal(id) {
			return world.NameExistsError(name, existing.ID())
		}
	}

	meta := obj.Meta()
	return m.transact(ctx, "add_object", func(tx backend.Tx) error {
		writeHash(tx, MetaKey(id), meta.Fields())
		tx.SetAdd(AllKey(id.Kind()), id.ID())
		if id.Kind() == world.KindPlayer {
			tx.HashSetField(PlayerNamesKey, strings.ToLower(name), id.ID())
		}
		if loc := meta.Base().Location; loc.IsAssigned() {
			tx.SetAdd(ContentsKey(loc), id.ID())
		}
		return nil
	})
}

// DestroyObject removes every key and index entry belonging to obj.
func (m *Manager) DestroyObject(ctx context.Context, obj world.Entity) error {
	id := obj.ID()
	return m.transact(ctx, "destroy_object", func(tx backend.Tx) error {
		tx.KeyDelete(PropsKey(id))
		tx.KeyDelete(ContentsKey(id))
		tx.KeyDelete(MetaKey(id))

		switch id.Kind() {
		case world.KindPlayer:
			tx.HashDeleteField(PlayerNamesKey, strings.ToLower(obj.Name()))
		case world.KindScript:
			tx.KeyDelete(ScriptKey(id))
		}

		tx.SetRemove(AllKey(id.Kind()), id.ID())
		if loc := obj.Location(); loc.IsAssigned() {
			tx.SetRemove(ContentsKey(loc), id.ID())
		}
		return nil
	})
}

// DoesObjectExist reports whether id is in its kind's index.
func (m *Manager) DoesObjectExist(ctx context.Context, id world.ObjectID) (bool, error) {
	if !id.IsAssigned() {
		return false, nil
	}
	ok, err := m.store.SetContains(ctx, AllKey(id.Kind()), id.ID())
	if err != nil {
		return false, oops.In("storage").With("object_id", id.ID()).Wrap(err)
	}
	return ok, nil
}

// FindPlayerByName looks a player up by case-insensitive name.
func (m *Manager) FindPlayerByName(ctx context.Context, name string) (world.ObjectID, bool, error) {
	v, ok, err := m.store.HashGetField(ctx, PlayerNamesKey, strings.ToLower(name))
	if err != nil {
		return world.EmptyID, false, oops.In("storage").With("name", name).Wrap(err)
	}
	if !ok {
		return world.EmptyID, false, nil
	}
	id, err := world.ParseIDOfKind(v, world.KindPlayer)
	if err != nil {
		return world.EmptyID, false, err
	}
	return id, true, nil
}

// GetAllPlayers returns the player name index, keyed by lowercased name.
func (m *Manager) GetAllPlayers(ctx context.Context) (map[string]world.ObjectID, error) {
	raw, err := m.store.HashGetAll(ctx, PlayerNamesKey)
	if err != nil {
		return nil, oops.In("storage").Wrap(err)
	}
	players := make(map[string]world.ObjectID, len(raw))
	for name, v := range raw {
		id, err := world.ParseIDOfKind(v, world.KindPlayer)
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed player index entry", "name", name, "value", v)
			continue
		}
		players[name] = id
	}
	return players, nil
}

// UpdatePlayerNameIndex moves a player's index entry from oldName to newName.
func (m *Manager) UpdatePlayerNameIndex(ctx context.Context, id world.ObjectID, oldName, newName string) error {
	return m.transact(ctx, "update_player_name", func(tx backend.Tx) error {
		tx.HashDeleteField(PlayerNamesKey, strings.ToLower(oldName))
		tx.HashSetField(PlayerNamesKey, strings.ToLower(newName), id.ID())
		return nil
	})
}

// GetProp returns one property, or Unset when it is not stored.
func (m *Manager) GetProp(ctx context.Context, owner world.ObjectID, name string) (world.PropValue, error) {
	raw, ok, err := m.store.HashGetField(ctx, PropsKey(owner), name)
	if err != nil {
		return world.Unset(), oops.In("storage").With("object_id", owner.ID()).With("prop", name).Wrap(err)
	}
	if !ok {
		return world.Unset(), nil
	}
	return world.DecodePropValue(raw)
}

// GetProps returns every stored property of owner.
func (m *Manager) GetProps(ctx context.Context, owner world.ObjectID) (map[string]world.PropValue, error) {
	raw, err := m.store.HashGetAll(ctx, PropsKey(owner))
	if err != nil {
		return nil, oops.In("storage").With("object_id", owner.ID()).Wrap(err)
	}
	props := make(map[string]world.PropValue, len(raw))
	for name, v := range raw {
		pv, err := world.DecodePropValue(v)
		if err != nil {
			return nil, oops.With("prop", name).Wrap(err)
		}
		props[name] = pv
	}
	return props, nil
}

// SetProp stores one property. Setting Unset deletes the field.
func (m *Manager) SetProp(ctx context.Context, owner world.ObjectID, name string, value world.PropValue) error {
	encoded, ok, err := value.Encode()
	if err != nil {
		return err
	}
	if !ok {
		_, err = m.store.HashDeleteField(ctx, PropsKey(owner), name)
	} else {
		_, err = m.store.HashSetField(ctx, PropsKey(owner), name, encoded)
	}
	if err != nil {
		return oops.In("storage").With("object_id", owner.ID()).With("prop", name).Wrap(err)
	}
	return nil
}

// SetProps replaces the whole property hash of owner. Unset values are dropped.
func (m *Manager) SetProps(ctx context.Context, owner world.ObjectID, values map[string]world.PropValue) error {
	encoded := make(map[string]string, len(values))
	for name, v := range values {
		s, ok, err := v.Encode()
		if err != nil {
			return oops.With("prop", name).Wrap(err)
		}
		if ok {
			encoded[name] = s
		}
	}
	return m.transact(ctx, "set_props", func(tx backend.Tx) error {
		replaceHash(tx, PropsKey(owner), encoded)
		return nil
	})
}

// GetContents lists the ids inside owner. A valid kind filters the result.
func (m *Manager) GetContents(ctx context.Context, owner world.ObjectID, kind world.Kind) ([]world.ObjectID, error) {
	members, err := m.store.SetMembers(ctx, ContentsKey(owner))
	if err != nil {
		return nil, oops.In("storage").With("object_id", owner.ID()).Wrap(err)
	}
	ids := make([]world.ObjectID, 0, len(members))
	for _, member := range members {
		id, err := world.ParseID(member)
		if err != nil || !id.IsAssigned() {
			slog.WarnContext(ctx, "skipping malformed contents entry", "owner", owner.ID(), "member", member)
			continue
		}
		if kind.IsValid() && id.Kind() != kind {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReparentObject sets the parent of id.
func (m *Manager) ReparentObject(ctx context.Context, id, newParent world.ObjectID) error {
	if !newParent.IsAssigned() {
		return world.InvalidParentError(newParent)
	}
	return m.transact(ctx, "reparent_object", func(tx backend.Tx) error {
		tx.HashSetField(MetaKey(id), world.FieldParent, newParent.ID())
		return nil
	})
}

// MoveObject sets the location of id and moves it between contents sets.
// oldLocation may be EmptyID when the object had no location.
func (m *Manager) MoveObject(ctx context.Context, id, newLocation, oldLocation world.ObjectID) error {
	return m.MoveObjects(ctx, []world.ObjectID{id}, newLocation, oldLocation)
}

// MoveObjects moves every id from oldLocation to newLocation in one transaction.
func (m *Manager) MoveObjects(ctx context.Context, ids []world.ObjectID, newLocation, oldLocation world.ObjectID) error {
	if !newLocation.IsAssigned() {
		return world.InvalidLocationError(newLocation)
	}
	if len(ids) == 0 {
		return nil
	}
	return m.transact(ctx, "move_objects", func(tx backend.Tx) error {
		for _, id := range ids {
			tx.HashSetField(MetaKey(id), world.FieldLocation, newLocation.ID())
			if oldLocation.IsAssigned() {
				tx.SetRemove(ContentsKey(oldLocation), id.ID())
			}
			tx.SetAdd(ContentsKey(newLocation), id.ID())
		}
		return nil
	})
}

// GetMeta loads and decodes the metadata of id according to its kind.
// ok is false when nothing is stored.
func (m *Manager) GetMeta(ctx context.Context, id world.ObjectID) (world.MetaRecord, bool, error) {
	raw, err := m.store.HashGetAll(ctx, MetaKey(id))
	if err != nil {
		return nil, false, oops.In("storage").With("object_id", id.ID()).Wrap(err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	md, err := world.DecodeMetadata(id.Kind(), raw)
	if err != nil {
		return nil, false, oops.With("object_id", id.ID()).Wrap(err)
	}
	return md, true, nil
}

// GetMetaField reads a single metadata field.
func (m *Manager) GetMetaField(ctx context.Context, id world.ObjectID, field string) (string, bool, error) {
	v, ok, err := m.store.HashGetField(ctx, MetaKey(id), field)
	if err != nil {
		return "", false, oops.In("storage").With("object_id", id.ID()).With("field", field).Wrap(err)
	}
	return v, ok, nil
}

// UpdateMeta replaces the whole metadata hash of id.
func (m *Manager) UpdateMeta(ctx context.Context, id world.ObjectID, md world.MetaRecord) error {
	fields := md.Fields()
	return m.transact(ctx, "update_meta", func(tx backend.Tx) error {
		replaceHash(tx, MetaKey(id), fields)
		return nil
	})
}

// UpdateMetaField writes a single metadata field. An empty value deletes it.
func (m *Manager) UpdateMetaField(ctx context.Context, id world.ObjectID, field, value string) error {
	var err error
	if value == "" {
		_, err = m.store.HashDeleteField(ctx, MetaKey(id), field)
	} else {
		_, err = m.store.HashSetField(ctx, MetaKey(id), field, value)
	}
	if err != nil {
		return oops.In("storage").With("object_id", id.ID()).With("field", field).Wrap(err)
	}
	return nil
}

// GetRootValue reads a root pointer.
func (m *Manager) GetRootValue(ctx context.Context, field world.RootField) (string, bool, error) {
	v, ok, err := m.store.HashGetField(ctx, RootKey, string(field))
	if err != nil {
		return "", false, oops.In("storage").With("root", string(field)).Wrap(err)
	}
	return v, ok, nil
}

// SetRootValue writes a root pointer.
func (m *Manager) SetRootValue(ctx context.Context, field world.RootField, value string) error {
	if _, err := m.store.HashSetField(ctx, RootKey, string(field), value); err != nil {
		return oops.In("storage").With("root", string(field)).Wrap(err)
	}
	return nil
}

// GetScriptCode reads a script's source.
func (m *Manager) GetScriptCode(ctx context.Context, id world.ObjectID) (string, bool, error) {
	v, ok, err := m.store.KeyGet(ctx, ScriptKey(id))
	if err != nil {
		return "", false, oops.In("storage").With("object_id", id.ID()).Wrap(err)
	}
	return v, ok, nil
}

// SetScriptCode writes a script's source.
func (m *Manager) SetScriptCode(ctx context.Context, id world.ObjectID, code string) error {
	if _, err := m.store.KeySet(ctx, ScriptKey(id), code); err != nil {
		return oops.In("storage").With("object_id", id.ID()).Wrap(err)
	}
	return nil
}

// writeHash queues one field write per entry, in key order.
func writeHash(tx backend.Tx, key string, fields map[string]string) {
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		tx.HashSetField(key, field, fields[field])
	}
}

func replaceHash(tx backend.Tx, key string, fields map[string]string) {
	tx.KeyDelete(key)
	writeHash(tx, key, fields)
}
