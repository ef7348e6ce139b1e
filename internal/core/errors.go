// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"errors"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/world"
)

// Error codes raised by the world coordinator.
const (
	CodeNotInitialized = "WORLD_NOT_INITIALIZED"
	CodeShutdown       = "WORLD_SHUTDOWN"
	CodeRootNotFound   = "ROOT_NOT_FOUND"
	CodeNoProcessor    = "WORLD_NO_COMMAND_PROCESSOR"
	CodeBadMessage     = "ISC_INVALID_MESSAGE"
)

var (
	ErrNotInitialized = errors.New("world has not been initialized")
	ErrShutdown       = errors.New("world has been shut down")
	ErrRootNotFound   = errors.New("root object not found")
)

func notInitializedError(instance string) error {
	return oops.Code(CodeNotInitialized).With("instance_id", instance).Wrap(ErrNotInitialized)
}

func shutdownError(instance string) error {
	return oops.Code(CodeShutdown).With("instance_id", instance).Wrap(ErrShutdown)
}

func rootNotFoundError(field world.RootField, value string) error {
	return oops.Code(CodeRootNotFound).
		With("root_field", string(field)).
		With("object_id", value).
		Wrap(ErrRootNotFound)
}
