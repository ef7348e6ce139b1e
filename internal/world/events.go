// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import "strconv"

// Object event names.
const (
	EventMove       = "move"
	EventReparent   = "reparent"
	EventRename     = "rename"
	EventInvalidate = "invalidate"
	EventDestroyed  = "destroyed"
)

// Player event names.
const (
	EventQuit       = "quit"
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// Scope separates events about any object from events about a player session.
type Scope uint8

// Event scopes.
const (
	ScopeObject Scope = iota
	ScopePlayer
)

func (s Scope) String() string {
	if s == ScopePlayer {
		return "player"
	}
	return "object"
}

// UpdateResult is the payload carried by an object event.
type UpdateResult interface {
	// Meta flattens the payload for inter-server messages.
	// It may return nil when there is nothing to carry.
	Meta() map[string]string
}

// EmptyResult carries no data.
type EmptyResult struct{}

// Meta implements UpdateResult.
func (EmptyResult) Meta() map[string]string { return nil }

// RenameResult describes a completed rename.
type RenameResult struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// Meta implements UpdateResult.
func (r RenameResult) Meta() map[string]string {
	return map[string]string{"old_name": r.OldName, "new_name": r.NewName}
}

// ReparentResult describes a completed reparent.
type ReparentResult struct {
	OldParent ObjectID `json:"old_parent"`
	NewParent ObjectID `json:"new_parent"`
}

// Meta implements UpdateResult.
func (r ReparentResult) Meta() map[string]string {
	m := map[string]string{}
	putID(m, "old_parent", r.OldParent)
	putID(m, "new_parent", r.NewParent)
	return m
}

// MoveResult describes a completed move.
type MoveResult struct {
	OldLocation ObjectID `json:"old_location"`
	NewLocation ObjectID `json:"new_location"`
}

// Meta implements UpdateResult.
func (r MoveResult) Meta() map[string]string {
	m := map[string]string{}
	putID(m, "old_location", r.OldLocation)
	putID(m, "new_location", r.NewLocation)
	return m
}

// QuitResult is fired when a player asks to leave.
type QuitResult struct {
	Reason string `json:"reason,omitempty"`
}

// Meta implements UpdateResult.
func (r QuitResult) Meta() map[string]string {
	if r.Reason == "" {
		return nil
	}
	return map[string]string{"reason": r.Reason}
}

// MetaRemainingConnections is the Meta key of PlayerConnectionResult.
const MetaRemainingConnections = "remaining_connections"

// UnknownConnections marks a connection event without a remaining count.
const UnknownConnections = -1

// PlayerConnectionResult is fired when a player connects or disconnects.
type PlayerConnectionResult struct {
	RemainingConnections int `json:"remaining_connections"`
}

// Meta implements UpdateResult.
func (r PlayerConnectionResult) Meta() map[string]string {
	if r.RemainingConnections < 0 {
		return nil
	}
	return map[string]string{MetaRemainingConnections: strconv.Itoa(r.RemainingConnections)}
}
