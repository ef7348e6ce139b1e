// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muemud/mue/pkg/errutil"
)

func TestParse_EmptyUsesDefaults(t *testing.T) {
	def, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), def)
}

func TestParse_OverridesNames(t *testing.T) {
	def, err := Parse(strings.NewReader(`
start_room:
  name: Market
god:
  name: Wizard
  password: hunter2
player:
  name: Alice
  password: secret
scripts:
  - name: greeter
    on: start_room
    code: say hello
`))
	require.NoError(t, err)

	assert.Equal(t, "The Void", def.RootRoom.Name)
	assert.Equal(t, "Market", def.StartRoom.Name)
	assert.Equal(t, "Wizard", def.God.Name)
	assert.Equal(t, "hunter2", def.God.Password)
	require.NotNil(t, def.Player)
	assert.Equal(t, "Alice", def.Player.Name)
	require.Len(t, def.Scripts, 1)
	assert.Equal(t, ScriptDef{Name: "greeter", On: OnStartRoom, Code: "say hello"}, def.Scripts[0])
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("start_rooom:\n  name: typo\n"))
	require.Error(t, err)
	assert.Equal(t, "SEED_PARSE_FAILED", errutil.Code(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank room name", "start_room:\n  name: '  '\n"},
		{"player collides with god", "player:\n  name: god\n  password: x\n"},
		{"blank player name", "player:\n  name: ''\n  password: x\n"},
		{"player without password", "player:\n  name: alice\n"},
		{"unnamed script", "scripts:\n  - code: x\n"},
		{"unknown placement", "scripts:\n  - name: s\n    on: attic\n"},
		{"player placement without player", "scripts:\n  - name: s\n    on: player\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Equal(t, "SEED_INVALID", errutil.Code(err))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root_room:\n  name: Limbo\n"), 0o600))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Limbo", def.RootRoom.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, "SEED_READ_FAILED", errutil.Code(err))
}
