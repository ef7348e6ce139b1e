// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import (
	"encoding/json"
	"strings"

	"github.com/samber/oops"
)

// ObjectID is an immutable reference to a game object.
//
// The canonical form is "<prefix>:<short>", e.g. "r:asdf". The zero value is
// EmptyID, the unassigned sentinel. An ID parsed from a bare short id without
// a kind keeps the short id but stays unassigned.
type ObjectID struct {
	kind  Kind
	short string
}

// EmptyID is the unassigned ObjectID.
var EmptyID = ObjectID{}

// ParseID parses a canonical ID or a bare short id.
func ParseID(s string) (ObjectID, error) {
	return parseID(s, KindInvalid)
}

// ParseIDOfKind parses s and requires it to be of the given kind.
// A bare short id becomes an assigned ID of that kind.
func ParseIDOfKind(s string, kind Kind) (ObjectID, error) {
	return parseID(s, kind)
}

// MustParseID is like ParseID but panics on error. Intended for constants and tests.
func MustParseID(s string) ObjectID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewID builds an assigned ID from a kind and short id.
func NewID(kind Kind, short string) (ObjectID, error) {
	if short == "" {
		return EmptyID, illegalID(short, "short id cannot be empty")
	}
	return parseID(short, kind)
}

func parseID(s string, check Kind) (ObjectID, error) {
	if strings.TrimSpace(s) == "" {
		return EmptyID, illegalID(s, "object id cannot be empty")
	}

	prefix, short, found := strings.Cut(s, ":")
	if !found {
		if check != KindInvalid {
			return ObjectID{kind: check, short: prefix}, nil
		}
		return ObjectID{short: prefix}, nil
	}

	if strings.TrimSpace(prefix) == "" {
		return EmptyID, illegalID(s, "kind cannot be empty")
	}
	if segment, _, _ := strings.Cut(short, ":"); strings.TrimSpace(segment) == "" {
		return EmptyID, illegalID(s, "short id cannot be empty")
	}

	kind, ok := KindFromPrefix(prefix)
	if !ok {
		return EmptyID, illegalID(s, "unknown kind "+prefix)
	}
	if check != KindInvalid && kind != check {
		return EmptyID, oops.Code(CodeIllegalID).
			With("id", s).
			With("expected_kind", check.String()).
			Wrapf(ErrIllegalID, "object id %s does not match requested kind %s", s, check)
	}

	return ObjectID{kind: kind, short: short}, nil
}

// IsAssigned reports whether the ID refers to a concrete object.
func (id ObjectID) IsAssigned() bool {
	return id.kind != KindInvalid && id.short != ""
}

// Kind returns the ID's kind, KindInvalid when unassigned.
func (id ObjectID) Kind() Kind {
	return id.kind
}

// ShortID returns the part after the kind prefix.
func (id ObjectID) ShortID() string {
	return id.short
}

// ID returns the canonical form, or "" when unassigned.
func (id ObjectID) ID() string {
	if !id.IsAssigned() {
		return ""
	}
	return id.kind.Prefix() + ":" + id.short
}

// String implements fmt.Stringer.
func (id ObjectID) String() string {
	return id.ID()
}

// Equal reports whether both IDs are assigned and identical, or both unassigned.
func (id ObjectID) Equal(other ObjectID) bool {
	if !id.IsAssigned() || !other.IsAssigned() {
		return id.IsAssigned() == other.IsAssigned()
	}
	return id.kind == other.kind && id.short == other.short
}

// MarshalJSON encodes unassigned IDs as null.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	if !id.IsAssigned() {
		return []byte("null"), nil
	}
	return json.Marshal(id.ID())
}

// UnmarshalJSON accepts null or a canonical ID string.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return oops.Code(CodeIllegalID).Wrap(err)
	}
	if s == nil {
		*id = EmptyID
		return nil
	}
	parsed, err := ParseID(*s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText returns the canonical form.
func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.ID()), nil
}

// UnmarshalText parses the canonical form. An empty input yields EmptyID.
func (id *ObjectID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = EmptyID
		return nil
	}
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func illegalID(s, reason string) error {
	return oops.Code(CodeIllegalID).With("id", s).Wrapf(ErrIllegalID, "%s", reason)
}
