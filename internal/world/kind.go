// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import "slices"

// Kind identifies the kind of a game object.
type Kind uint8

// Object kinds. KindInvalid is the zero value and never appears in an assigned ID.
const (
	KindInvalid Kind = iota
	KindRoom
	KindPlayer
	KindItem
	KindScript
	KindAction
)

var kindPrefixes = map[Kind]string{
	KindRoom:   "r",
	KindPlayer: "p",
	KindItem:   "i",
	KindScript: "s",
	KindAction: "a",
}

var kindNames = map[Kind]string{
	KindRoom:   "room",
	KindPlayer: "player",
	KindItem:   "item",
	KindScript: "script",
	KindAction: "action",
}

var kindsByPrefix = func() map[string]Kind {
	m := make(map[string]Kind, len(kindPrefixes))
	for k, p := range kindPrefixes {
		m[p] = k
	}
	return m
}()

// AllKinds lists every valid kind.
var AllKinds = []Kind{KindRoom, KindPlayer, KindItem, KindScript, KindAction}

// ContainerKinds lists the kinds that can hold other objects.
var ContainerKinds = []Kind{KindRoom, KindPlayer, KindItem}

// ActionTargetKinds lists the kinds an action may point at.
var ActionTargetKinds = []Kind{KindRoom, KindScript}

// Prefix returns the one-letter prefix used in canonical IDs and storage keys.
// Invalid kinds return "?".
func (k Kind) Prefix() string {
	if p, ok := kindPrefixes[k]; ok {
		return p
	}
	return "?"
}

// String returns the human-readable kind name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// IsValid reports whether k is one of AllKinds.
func (k Kind) IsValid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// IsContainer reports whether objects of this kind can hold contents.
func (k Kind) IsContainer() bool {
	return slices.Contains(ContainerKinds, k)
}

// KindFromPrefix resolves a one-letter prefix to its kind.
func KindFromPrefix(prefix string) (Kind, bool) {
	k, ok := kindsByPrefix[prefix]
	return k, ok
}

// RootField names a singleton root pointer stored in the root hash.
type RootField string

// Root pointers.
const (
	RootRoom   RootField = "root_room"
	StartRoom  RootField = "start_room"
	PlayerRoot RootField = "player_root"
	God        RootField = "god"
)
