// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package storage

import "github.com/muemud/mue/internal/world"

// Key layout. These names are shared with existing deployments and must not change.
const (
	PlayerNamesKey = "i:p:names"
	RootKey        = "i:root"
)

func objectKey(id world.ObjectID, part string) string {
	return "s:" + id.ID() + ":" + part
}

// PropsKey is the hash of an object's properties.
func PropsKey(id world.ObjectID) string { return objectKey(id, "props") }

// ContentsKey is the set of ids located inside an object.
func ContentsKey(id world.ObjectID) string { return objectKey(id, "contents") }

// MetaKey is the hash of an object's metadata.
func MetaKey(id world.ObjectID) string { return objectKey(id, "meta") }

// ScriptKey holds a script's source code.
func ScriptKey(id world.ObjectID) string { return objectKey(id, "script") }

// AllKey is the set of every id of the given kind.
func AllKey(kind world.Kind) string { return "i:" + kind.Prefix() + ":all" }
