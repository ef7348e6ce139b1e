// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"context"
	"strings"

	"github.com/muemud/mue/internal/object"
)

// CommandRequest is one line of player input.
type CommandRequest struct {
	Command string
	// Params holds pre-split arguments when IsExpanded is set.
	Params     map[string]string
	IsExpanded bool
}

// Split returns the lowercased verb and the rest of the line.
func (r CommandRequest) Split() (verb, arg string) {
	input := strings.TrimSpace(r.Command)
	if input == "" {
		return "", ""
	}
	verb, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}

// CommandProcessor runs player commands. The command grammar lives outside
// the world coordinator.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, player *object.Player, req CommandRequest) (bool, error)
}
