// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package memory provides an in-process backend. Several worlds sharing one
// Backend behave like instances sharing one Redis server.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/muemud/mue/internal/backend"
)

// Storage is an in-memory implementation of backend.Storage.
// A single lock guards all data, which makes every transaction atomic.
type Storage struct {
	mu      sync.RWMutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	hashes  map[string]map[string]string
}

var _ backend.Storage = (*Storage)(nil)

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		hashes:  make(map[string]map[string]string),
	}
}

// Flush removes every key.
func (s *Storage) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.strings)
	clear(s.sets)
	clear(s.hashes)
}

// Keys returns every stored key, sorted. Intended for tests and tooling.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.strings)+len(s.sets)+len(s.hashes))
	keys = slices.AppendSeq(keys, maps.Keys(s.strings))
	keys = slices.AppendSeq(keys, maps.Keys(s.sets))
	keys = slices.AppendSeq(keys, maps.Keys(s.hashes))
	slices.Sort(keys)
	return keys
}

// KeyGet implements backend.Reader.
func (s *Storage) KeyGet(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[key]
	return v, ok, nil
}

// SetMembers implements backend.Reader.
func (s *Storage) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := slices.Collect(maps.Keys(s.sets[key]))
	slices.Sort(members)
	return members, nil
}

// SetContains implements backend.Reader.
func (s *Storage) SetContains(_ context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

// HashGetAll implements backend.Reader.
func (s *Storage) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.hashes[key]), nil
}

// HashGetField implements backend.Reader.
func (s *Storage) HashGetField(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

// KeySet implements backend.Writer.
func (s *Storage) KeySet(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keySet(key, value), nil
}

// KeyDelete implements backend.Writer.
func (s *Storage) KeyDelete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyDelete(key), nil
}

// SetAdd implements backend.Writer.
func (s *Storage) SetAdd(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setAdd(key, member), nil
}

// SetRemove implements backend.Writer.
func (s *Storage) SetRemove(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setRemove(key, member), nil
}

// HashSetAll implements backend.Writer.
func (s *Storage) HashSetAll(_ context.Context, key string, values map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashSetAll(key, values)
	return true, nil
}

// HashSetField implements backend.Writer.
func (s *Storage) HashSetField(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashSetField(key, field, value), nil
}

// HashDeleteField implements backend.Writer.
func (s *Storage) HashDeleteField(_ context.Context, key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashDeleteField(key, field), nil
}

// Transact implements backend.Storage. Queued operations run under one
// write lock, so readers never see a partially applied transaction.
func (s *Storage) Transact(ctx context.Context, fn func(tx backend.Tx) error) error {
	tx := &memoryTx{}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range tx.ops {
		op(s)
	}
	return nil
}

func (s *Storage) keySet(key, value string) bool {
	s.removeKey(key)
	s.strings[key] = value
	return true
}

func (s *Storage) keyDelete(key string) bool {
	return s.removeKey(key)
}

func (s *Storage) removeKey(key string) bool {
	_, str := s.strings[key]
	_, set := s.sets[key]
	_, hash := s.hashes[key]
	delete(s.strings, key)
	delete(s.sets, key)
	delete(s.hashes, key)
	return str || set || hash
}

func (s *Storage) setAdd(key, member string) bool {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	if _, exists := set[member]; exists {
		return false
	}
	set[member] = struct{}{}
	return true
}

func (s *Storage) setRemove(key, member string) bool {
	set, ok := s.sets[key]
	if !ok {
		return false
	}
	if _, exists := set[member]; !exists {
		return false
	}
	delete(set, member)
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return true
}

func (s *Storage) hashSetAll(key string, values map[string]string) {
	for field, value := range values {
		s.hashSetField(key, field, value)
	}
}

func (s *Storage) hashSetField(key, field, value string) bool {
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	_, existed := hash[field]
	hash[field] = value
	return !existed
}

func (s *Storage) hashDeleteField(key, field string) bool {
	hash, ok := s.hashes[key]
	if !ok {
		return false
	}
	if _, exists := hash[field]; !exists {
		return false
	}
	delete(hash, field)
	if len(hash) == 0 {
		delete(s.hashes, key)
	}
	return true
}

// memoryTx records operations as closures over the locked storage.
type memoryTx struct {
	ops []func(*Storage)
}

func (t *memoryTx) KeySet(key, value string) {
	t.ops = append(t.ops, func(s *Storage) { s.keySet(key, value) })
}

func (t *memoryTx) KeyDelete(key string) {
	t.ops = append(t.ops, func(s *Storage) { s.keyDelete(key) })
}

func (t *memoryTx) SetAdd(key, member string) {
	t.ops = append(t.ops, func(s *Storage) { s.setAdd(key, member) })
}

func (t *memoryTx) SetRemove(key, member string) {
	t.ops = append(t.ops, func(s *Storage) { s.setRemove(key, member) })
}

func (t *memoryTx) HashSetAll(key string, values map[string]string) {
	values = maps.Clone(values)
	t.ops = append(t.ops, func(s *Storage) { s.hashSetAll(key, values) })
}

func (t *memoryTx) HashSetField(key, field, value string) {
	t.ops = append(t.ops, func(s *Storage) { s.hashSetField(key, field, value) })
}

func (t *memoryTx) HashDeleteField(key, field string) {
	t.ops = append(t.ops, func(s *Storage) { s.hashDeleteField(key, field) })
}
