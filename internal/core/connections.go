// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/muemud/mue/internal/world"
)

// Presence is a player's set of connections to this instance.
type Presence struct {
	PlayerID     world.ObjectID
	Connections  []ulid.ULID
	LastActivity time.Time
}

func copyPresence(p *Presence) *Presence {
	return &Presence{
		PlayerID:     p.PlayerID,
		Connections:  slices.Clone(p.Connections),
		LastActivity: p.LastActivity,
	}
}

// Connections tracks which players are connected to this instance.
type Connections struct {
	mu      sync.RWMutex
	players map[world.ObjectID]*Presence
}

// NewConnections creates an empty tracker.
func NewConnections() *Connections {
	return &Connections{players: make(map[world.ObjectID]*Presence)}
}

// Connect records a new connection and returns the player's connection count.
func (c *Connections) Connect(player world.ObjectID, connID ulid.ULID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[player]
	if !ok {
		p = &Presence{PlayerID: player}
		c.players[player] = p
	}
	p.Connections = append(p.Connections, connID)
	p.LastActivity = time.Now()
	return len(p.Connections)
}

// Disconnect drops a connection and returns how many remain. A player with
// no connections left is forgotten.
func (c *Connections) Disconnect(player world.ObjectID, connID ulid.ULID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[player]
	if !ok {
		slog.Debug("disconnect for unknown player",
			"player_id", player.ID(),
			"conn_id", connID.String(),
		)
		return 0
	}
	if i := slices.Index(p.Connections, connID); i >= 0 {
		p.Connections = slices.Delete(p.Connections, i, i+1)
	}
	if len(p.Connections) == 0 {
		delete(c.players, player)
		return 0
	}
	return len(p.Connections)
}

// Count returns the number of connections a player has here.
func (c *Connections) Count(player world.ObjectID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.players[player]; ok {
		return len(p.Connections)
	}
	return 0
}

// Get returns a copy of a player's presence, or nil.
func (c *Connections) Get(player world.ObjectID) *Presence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.players[player]
	if !ok {
		return nil
	}
	return copyPresence(p)
}

// Touch refreshes a player's last activity time.
func (c *Connections) Touch(player world.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.players[player]; ok {
		p.LastActivity = time.Now()
	}
}

// Players returns copies of every presence.
func (c *Connections) Players() []*Presence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Presence, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, copyPresence(p))
	}
	return out
}
