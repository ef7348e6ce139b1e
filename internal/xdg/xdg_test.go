// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muemud/mue/pkg/errutil"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/mue", got)
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/testuser/.config/mue", got)
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got, err := ConfigFile()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/mue/config.yaml", got)
}

func TestFindConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	got, err := FindConfigFile()
	require.NoError(t, err)
	assert.Empty(t, got, "missing file is not an error")

	dir := filepath.Join(base, "mue")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: text\n"), 0o600))

	got, err = FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestFindConfigFile_Directory(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "mue", "config.yaml"), 0o700))

	_, err := FindConfigFile()
	require.Error(t, err)
	assert.Equal(t, "XDG_NOT_A_FILE", errutil.Code(err))
}
