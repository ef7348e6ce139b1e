// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to domain errors via oops.Code.
const (
	CodeIDExists        = "OBJECT_ID_EXISTS"
	CodeIDNotFound      = "OBJECT_ID_NOT_FOUND"
	CodeKindMismatch    = "OBJECT_KIND_MISMATCH"
	CodeInvalidName     = "OBJECT_INVALID_NAME"
	CodeNameExists      = "PLAYER_NAME_EXISTS"
	CodeIllegalID       = "ILLEGAL_OBJECT_ID"
	CodeInvalidParent   = "OBJECT_INVALID_PARENT"
	CodeInvalidLocation = "OBJECT_INVALID_LOCATION"
	CodeInvalidTarget   = "OBJECT_INVALID_TARGET"
	CodeIllegalName     = "OBJECT_ILLEGAL_NAME"
	CodeDestroyed       = "OBJECT_DESTROYED"
	CodeNotDestroyed    = "OBJECT_NOT_DESTROYED"
	CodeInvalidState    = "OBJECT_INVALID_STATE"
	CodePropDecode      = "PROP_DECODE_FAILED"
	CodeMetaDecode      = "META_DECODE_FAILED"
)

// Sentinel errors. Use errors.Is to test for them; the oops code carries the same meaning.
var (
	ErrIDExists        = errors.New("object id already exists")
	ErrIDNotFound      = errors.New("object id does not exist")
	ErrKindMismatch    = errors.New("object kind does not match")
	ErrInvalidName     = errors.New("object does not have a proper name")
	ErrNameExists      = errors.New("player name already exists")
	ErrIllegalID       = errors.New("illegal object id")
	ErrInvalidParent   = errors.New("not a valid parent")
	ErrInvalidLocation = errors.New("not a valid location")
	ErrInvalidTarget   = errors.New("not a valid target")
	ErrIllegalName     = errors.New("illegal object name")
	ErrDestroyed       = errors.New("object has been destroyed")
	ErrNotDestroyed    = errors.New("object was not destroyed")
	ErrInvalidState    = errors.New("object is in an invalid state")
)

// IDExistsError reports a create or cache collision on id.
func IDExistsError(id ObjectID) error {
	return oops.Code(CodeIDExists).With("object_id", id.ID()).Wrap(ErrIDExists)
}

// IDNotFoundError reports that id has no stored metadata.
func IDNotFoundError(id ObjectID) error {
	return oops.Code(CodeIDNotFound).With("object_id", id.ID()).Wrap(ErrIDNotFound)
}

// KindMismatchError reports that id is not of the expected kind.
func KindMismatchError(id ObjectID, expected Kind) error {
	return oops.Code(CodeKindMismatch).
		With("object_id", id.ID()).
		With("expected_kind", expected.String()).
		Wrap(ErrKindMismatch)
}

// InvalidNameError reports an empty or malformed name.
func InvalidNameError(id ObjectID, name string) error {
	return oops.Code(CodeInvalidName).With("object_id", id.ID()).With("name", name).Wrap(ErrInvalidName)
}

// NameExistsError reports a player-name uniqueness violation.
func NameExistsError(name string, existing string) error {
	return oops.Code(CodeNameExists).With("name", name).With("existing_id", existing).Wrap(ErrNameExists)
}

// InvalidParentError reports a disallowed parent kind.
func InvalidParentError(id ObjectID) error {
	return oops.Code(CodeInvalidParent).With("object_id", id.ID()).Wrap(ErrInvalidParent)
}

// InvalidLocationError reports a disallowed location kind.
func InvalidLocationError(id ObjectID) error {
	return oops.Code(CodeInvalidLocation).With("object_id", id.ID()).Wrap(ErrInvalidLocation)
}

// InvalidTargetError reports a disallowed action target.
func InvalidTargetError(id ObjectID) error {
	return oops.Code(CodeInvalidTarget).With("object_id", id.ID()).Wrap(ErrInvalidTarget)
}

// IllegalNameError reports a name that is reserved for the given kind.
func IllegalNameError(name string, kind Kind) error {
	return oops.Code(CodeIllegalName).With("name", name).With("kind", kind.String()).Wrap(ErrIllegalName)
}

// DestroyedError reports that id no longer exists in storage.
func DestroyedError(id ObjectID) error {
	return oops.Code(CodeDestroyed).With("object_id", id.ID()).Wrap(ErrDestroyed)
}
