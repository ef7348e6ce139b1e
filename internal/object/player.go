// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package object

import (
	"context"
	"log/slog"
	"strings"

	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// Player is a connected or connectable user. Players hold an inventory.
type Player struct {
	Container
}

func newPlayer(h Host, id world.ObjectID, md world.MetaRecord) *Player {
	if base, ok := md.(world.Metadata); ok {
		md = world.PlayerMetadata{Metadata: base}
	}
	p := &Player{}
	p.init(h, p, world.KindPlayer, id, md)
	return p
}

// CreatePlayer stores a new player with a hashed password. The location
// defaults to parent.
func CreatePlayer(ctx context.Context, h Host, name, password string, creator, parent, location world.ObjectID) (*Player, error) {
	hash, err := h.Hasher().Hash(password)
	if err != nil {
		return nil, err
	}
	if !location.IsAssigned() {
		location = parent
	}
	p := newPlayer(h, world.EmptyID, world.PlayerMetadata{
		Metadata: world.Metadata{
			Name:     name,
			Creator:  creator,
			Parent:   parent,
			Location: location,
		},
		PasswordHash: hash,
	})
	if err := h.Cache().StandardCreate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateRootPlayer stores the god player. An empty password leaves the
// account without a login.
func CreateRootPlayer(ctx context.Context, h Host, name, password string) (*Player, error) {
	var hash string
	if password != "" {
		var err error
		if hash, err = h.Hasher().Hash(password); err != nil {
			return nil, err
		}
	}
	p := newPlayer(h, RootPlayerID, world.PlayerMetadata{
		Metadata: world.Metadata{
			Name:     name,
			Creator:  RootPlayerID,
			Parent:   RootRoomID,
			Location: RootRoomID,
		},
		PasswordHash: hash,
	})
	if err := h.Cache().StandardCreate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ImitatePlayer returns the player with id, loading it if needed.
func ImitatePlayer(ctx context.Context, h Host, id world.ObjectID) (*Player, error) {
	return imitateAs[*Player](ctx, h, id)
}

func (p *Player) passwordHash() string {
	if md, ok := p.Meta().(world.PlayerMetadata); ok {
		return md.PasswordHash
	}
	return ""
}

// CheckPassword reports whether password matches the stored hash.
func (p *Player) CheckPassword(password string) bool {
	hash := p.passwordHash()
	if strings.TrimSpace(password) == "" || hash == "" {
		return false
	}
	ok, err := p.host.Hasher().Verify(password, hash)
	if err != nil {
		slog.Warn("stored password hash is unreadable", "player_id", p.ID().ID(), "error", err)
		return false
	}
	return ok
}

// Move relocates the player and tells both rooms about it.
func (p *Player) Move(ctx context.Context, newLocation world.ObjectID) (world.MoveResult, error) {
	result, err := p.Container.Move(ctx, newLocation)
	if err != nil {
		return result, err
	}

	if result.OldLocation.IsAssigned() {
		if old, err := Imitate(ctx, p.host, result.OldLocation); err == nil {
			p.publish(ctx, world.Text(p.Name()+" has left."), old)
		}
	}

	dest, err := Imitate(ctx, p.host, result.NewLocation)
	if err != nil {
		p.publish(ctx, world.Text("Failed to find your destination ["+newLocation.ID()+"]."), p)
		return result, err
	}
	p.publish(ctx, world.Text("You arrive in "+dest.Name()), p)
	p.publish(ctx, world.Text(p.Name()+" has arrived."), dest)
	return result, nil
}

// SendMessage publishes msg on the player's own channel.
func (p *Player) SendMessage(ctx context.Context, msg world.Message) error {
	return p.host.PublishMessage(ctx, msg, p)
}

// Quit asks every session of the player to disconnect.
func (p *Player) Quit(ctx context.Context, reason string) error {
	return p.host.FirePlayerEvent(ctx, p.ID(), world.EventQuit, world.QuitResult{Reason: reason})
}

// Find searches the player's inventory, then for actions the parent tree,
// then with searchLocation the current location.
func (p *Player) Find(ctx context.Context, term string, kind world.Kind, searchLocation bool) (world.ObjectID, bool, error) {
	if id, ok, err := p.FindIn(ctx, term, kind); err != nil || ok {
		return id, ok, err
	}

	var parentID world.ObjectID
	if kind == world.KindAction {
		parentID = p.Parent()
		if id, ok, err := p.findInContainer(ctx, parentID, term, kind); err != nil || ok {
			return id, ok, err
		}
	}

	if kind == world.KindAction || searchLocation {
		loc := p.Location()
		if loc.Equal(parentID) {
			return world.EmptyID, false, nil
		}
		return p.findInContainer(ctx, loc, term, kind)
	}
	return world.EmptyID, false, nil
}

func (p *Player) findInContainer(ctx context.Context, id world.ObjectID, term string, kind world.Kind) (world.ObjectID, bool, error) {
	if !id.IsAssigned() {
		return world.EmptyID, false, nil
	}
	obj, err := Imitate(ctx, p.host, id)
	if err != nil {
		return world.EmptyID, false, err
	}
	finder, ok := obj.(Finder)
	if !ok {
		return world.EmptyID, false, nil
	}
	return finder.FindIn(ctx, term, kind)
}

// ResolveTarget turns a command argument into an object id. "me", "here"
// and "parent" are relative to the player; absolute allows raw ids and
// player names.
func (p *Player) ResolveTarget(ctx context.Context, target string, absolute bool) (world.ObjectID, bool, error) {
	switch target {
	case "me":
		return p.ID(), true, nil
	case "here":
		loc := p.Location()
		return loc, loc.IsAssigned(), nil
	case "parent":
		parent := p.Parent()
		return parent, parent.IsAssigned(), nil
	}

	if absolute {
		if id, err := world.ParseID(target); err == nil && id.IsAssigned() {
			if _, err := Imitate(ctx, p.host, id); err == nil {
				return id, true, nil
			}
		}
		id, ok, err := p.host.Storage().FindPlayerByName(ctx, target)
		if err != nil {
			return world.EmptyID, false, err
		}
		if ok {
			return id, true, nil
		}
	}

	return p.Find(ctx, target, world.KindInvalid, true)
}

func (p *Player) publish(ctx context.Context, msg world.Message, target world.Entity) {
	if err := p.host.PublishMessage(ctx, msg, target); err != nil {
		errutil.LogError(slog.Default(), "player message failed", err)
	}
}
