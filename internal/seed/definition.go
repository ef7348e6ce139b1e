// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package seed bootstraps an empty world from a YAML world definition.
package seed

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Script placements.
const (
	OnRootRoom   = "root_room"
	OnStartRoom  = "start_room"
	OnPlayerRoot = "player_root"
	OnGod        = "god"
	OnPlayer     = "player"
)

// Definition describes the objects created by a bootstrap.
type Definition struct {
	RootRoom   RoomDef     `yaml:"root_room"`
	God        PlayerDef   `yaml:"god"`
	StartRoom  RoomDef     `yaml:"start_room"`
	PlayerRoot RoomDef     `yaml:"player_root"`
	Player     *PlayerDef  `yaml:"player,omitempty"`
	Scripts    []ScriptDef `yaml:"scripts,omitempty"`
}

// RoomDef names a room.
type RoomDef struct {
	Name string `yaml:"name"`
}

// PlayerDef names a player and sets their password.
type PlayerDef struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// ScriptDef is a script created during bootstrap. On selects the object
// holding it; an empty On places it on the god player.
type ScriptDef struct {
	Name string `yaml:"name"`
	On   string `yaml:"on"`
	Code string `yaml:"code"`
}

// Default returns the definition used when no world file is given.
func Default() *Definition {
	return &Definition{
		RootRoom:   RoomDef{Name: "The Void"},
		God:        PlayerDef{Name: "God"},
		StartRoom:  RoomDef{Name: "Town Square"},
		PlayerRoot: RoomDef{Name: "Player Storage"},
	}
}

// Parse decodes a YAML world definition. Omitted rooms and the god player
// keep the names from Default.
func Parse(r io.Reader) (*Definition, error) {
	def := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil && err != io.EOF {
		return nil, oops.Code("SEED_PARSE_FAILED").Wrap(err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Load reads and parses the world file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	def, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, oops.In("seed").With("path", path).Wrap(err)
	}
	return def, nil
}

// Validate checks names and script placements.
func (d *Definition) Validate() error {
	names := map[string]string{
		"root_room.name":   d.RootRoom.Name,
		"god.name":         d.God.Name,
		"start_room.name":  d.StartRoom.Name,
		"player_root.name": d.PlayerRoot.Name,
	}
	if d.Player != nil {
		names["player.name"] = d.Player.Name
		if strings.EqualFold(strings.TrimSpace(d.Player.Name), strings.TrimSpace(d.God.Name)) {
			return oops.Code("SEED_INVALID").
				With("field", "player.name").
				Errorf("player name %q collides with the god player", d.Player.Name)
		}
		if d.Player.Password == "" {
			return oops.Code("SEED_INVALID").
				With("field", "player.password").
				Errorf("player.password must not be empty")
		}
	}
	for field, name := range names {
		if strings.TrimSpace(name) == "" {
			return oops.Code("SEED_INVALID").With("field", field).Errorf("%s must not be empty", field)
		}
	}

	for i, s := range d.Scripts {
		if strings.TrimSpace(s.Name) == "" {
			return oops.Code("SEED_INVALID").With("script", i).Errorf("script %d has no name", i)
		}
		switch s.On {
		case "", OnRootRoom, OnStartRoom, OnPlayerRoot, OnGod:
		case OnPlayer:
			if d.Player == nil {
				return oops.Code("SEED_INVALID").
					With("script", s.Name).
					Errorf("script %q is placed on the player but no player is defined", s.Name)
			}
		default:
			return oops.Code("SEED_INVALID").
				With("script", s.Name).
				With("on", s.On).
				Errorf("script %q has unknown placement %q", s.Name, s.On)
		}
	}
	return nil
}
