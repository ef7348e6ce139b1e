// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package storage_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/muemud/mue/internal/backend"
	"github.com/muemud/mue/internal/world"
)

// mockStorage records backend reads and writes. Transact hands callers the
// embedded mockTx so queued operations are asserted like direct calls.
type mockStorage struct {
	mock.Mock
	tx *mockTx
}

func newMockStorage() *mockStorage {
	return &mockStorage{tx: &mockTx{}}
}

func (m *mockStorage) KeyGet(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStorage) SetMembers(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	members, _ := args.Get(0).([]string)
	return members, args.Error(1)
}

func (m *mockStorage) SetContains(ctx context.Context, key, member string) (bool, error) {
	args := m.Called(ctx, key, member)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	values, _ := args.Get(0).(map[string]string)
	return values, args.Error(1)
}

func (m *mockStorage) HashGetField(ctx context.Context, key, field string) (string, bool, error) {
	args := m.Called(ctx, key, field)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStorage) KeySet(ctx context.Context, key, value string) (bool, error) {
	args := m.Called(ctx, key, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) KeyDelete(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) SetAdd(ctx context.Context, key, member string) (bool, error) {
	args := m.Called(ctx, key, member)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) SetRemove(ctx context.Context, key, member string) (bool, error) {
	args := m.Called(ctx, key, member)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) HashSetAll(ctx context.Context, key string, values map[string]string) (bool, error) {
	args := m.Called(ctx, key, values)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) HashSetField(ctx context.Context, key, field, value string) (bool, error) {
	args := m.Called(ctx, key, field, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) HashDeleteField(ctx context.Context, key, field string) (bool, error) {
	args := m.Called(ctx, key, field)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) Transact(_ context.Context, fn func(tx backend.Tx) error) error {
	if err := fn(m.tx); err != nil {
		return err
	}
	return nil
}

type mockTx struct {
	mock.Mock
}

func (t *mockTx) KeySet(key, value string) { t.Called(key, value) }
func (t *mockTx) KeyDelete(key string) { t.Called(key) }
func (t *mockTx) SetAdd(key, member string) { t.Called(key, member) }
func (t *mockTx) SetRemove(key, member string) { t.Called(key, member) }
func (t *mockTx) HashSetAll(key string, values map[string]string) {
	t.Called(key, values)
}
func (t *mockTx) HashSetField(key, field, value string) { t.Called(key, field, value) }
func (t *mockTx) HashDeleteField(key, field string) { t.Called(key, field) }

// stubEntity is a minimal world.Entity for storage tests.
type stubEntity struct {
	id   world.ObjectID
	kind world.Kind
	meta world.MetaRecord
}

func (e *stubEntity) ID() world.ObjectID { return e.id }
func (e *stubEntity) Kind() world.Kind { return e.kind }
func (e *stubEntity) Name() string { return e.meta.Base().Name }
func (e *stubEntity) Location() world.ObjectID { return e.meta.Base().Location }
func (e *stubEntity) Meta() world.MetaRecord { return e.meta }
func (e *stubEntity) IsPendingAdd() bool { return !e.id.IsAssigned() }
func (e *stubEntity) IsDestroyed() bool { return false }
func (e *stubEntity) Reload(context.Context) error { return nil }

func (e *stubEntity) AssignID(short string) error {
	id, err := world.NewID(e.kind, short)
	if err != nil {
		return err
	}
	e.id = id
	return nil
}
