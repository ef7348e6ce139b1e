// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"sync"

	"github.com/muemud/mue/internal/world"
)

// Script is an object carrying source code for the scripting engine.
type Script struct {
	Object

	codeMu sync.RWMutex
	code   string
}

func newScript(h Host, id world.ObjectID, md world.MetaRecord) *Script {
	s := &Script{}
	s.init(h, s, world.KindScript, id, md)
	return s
}

// CreateScript stores a new script and its code. The location defaults to creator.
func CreateScript(ctx context.Context, h Host, name string, creator, location world.ObjectID, code string) (*Script, error) {
	if !location.IsAssigned() {
		location = creator
	}
	s := newScript(h, world.EmptyID, world.Metadata{
		Name:     name,
		Creator:  creator,
		Parent:   creator,
		Location: location,
	})
	if err := h.Cache().StandardCreate(ctx, s); err != nil {
		return nil, err
	}
	if code != "" {
		if err := h.Storage().SetScriptCode(ctx, s.ID(), code); err != nil {
			return nil, err
		}
		s.setCode(code)
	}
	return s, nil
}

// ImitateScript returns the script with id, loading it if needed.
func ImitateScript(ctx context.Context, h Host, id world.ObjectID) (*Script, error) {
	return imitateAs[*Script](ctx, h, id)
}

// Code returns the script source.
func (s *Script) Code() string {
	s.codeMu.RLock()
	defer s.codeMu.RUnlock()
	return s.code
}

func (s *Script) setCode(code string) {
	s.codeMu.Lock()
	s.code = code
	s.codeMu.Unlock()
}

// SetCode stores new source and asks other instances to reload it.
func (s *Script) SetCode(ctx context.Context, code string) error {
	if err := s.host.Storage().SetScriptCode(ctx, s.ID(), code); err != nil {
		return err
	}
	s.setCode(code)
	s.fire(ctx, world.EventInvalidate, world.EmptyResult{})
	return nil
}

// Reload re-reads the metadata and the code.
func (s *Script) Reload(ctx context.Context) error {
	if err := s.Object.Reload(ctx); err != nil {
		return err
	}
	return s.loadCode(ctx)
}

func (s *Script) loadCode(ctx context.Context) error {
	code, _, err := s.host.Storage().GetScriptCode(ctx, s.ID())
	if err != nil {
		return err
	}
	s.setCode(code)
	return nil
}
