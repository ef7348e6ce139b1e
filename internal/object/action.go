// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"slices"
	"strings"

	"github.com/muemud/mue/internal/world"
)

// Action is a command verb attached to a container. Its name holds
// semicolon-separated aliases, e.g. "north;n".
type Action struct {
	Object
}

func newAction(h Host, id world.ObjectID, md world.MetaRecord) *Action {
	if base, ok := md.(world.Metadata); ok {
		md = world.ActionMetadata{Metadata: base}
	}
	a := &Action{}
	a.init(h, a, world.KindAction, id, md)
	return a
}

// CreateAction stores a new action owned and parented by creator.
func CreateAction(ctx context.Context, h Host, name string, creator, location world.ObjectID) (*Action, error) {
	if strings.HasPrefix(name, "$") {
		return nil, world.IllegalNameError(name, world.KindAction)
	}
	a := newAction(h, world.EmptyID, world.ActionMetadata{Metadata: world.Metadata{
		Name:     name,
		Creator:  creator,
		Parent:   creator,
		Location: location,
	}})
	if err := h.Cache().StandardCreate(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ImitateAction returns the action with id, loading it if needed.
func ImitateAction(ctx context.Context, h Host, id world.ObjectID) (*Action, error) {
	return imitateAs[*Action](ctx, h, id)
}

// Target returns what the action leads to or runs, if set.
func (a *Action) Target() world.ObjectID {
	if md, ok := a.Meta().(world.ActionMetadata); ok {
		return md.Target
	}
	return world.EmptyID
}

// SetTarget points the action at a room or a script.
func (a *Action) SetTarget(ctx context.Context, target world.ObjectID) error {
	if !target.IsAssigned() || !slices.Contains(world.ActionTargetKinds, target.Kind()) {
		return world.InvalidTargetError(target)
	}

	md, _ := a.Meta().(world.ActionMetadata)
	md.Target = target
	if err := a.host.Storage().UpdateMeta(ctx, a.ID(), md); err != nil {
		return err
	}
	a.setMeta(md)
	a.fire(ctx, world.EventInvalidate, world.EmptyResult{})
	return nil
}

// MatchCommand reports whether command is one of the action's aliases.
func (a *Action) MatchCommand(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" {
		return false
	}
	for alias := range strings.SplitSeq(a.Name(), ";") {
		if strings.EqualFold(strings.TrimSpace(alias), command) {
			return true
		}
	}
	return false
}
