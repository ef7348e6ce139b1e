// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package xdg provides XDG Base Directory paths for mue.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "mue"
	configFileName = "config.yaml"
)

// ConfigDir returns the mue config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", oops.Code("XDG_HOME_UNKNOWN").Wrap(err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default config file path, whether or not it exists.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// FindConfigFile returns the default config file path when that file exists,
// and "" when it does not.
func FindConfigFile() (string, error) {
	path, err := ConfigFile()
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	}
	if info.IsDir() {
		return "", oops.Code("XDG_NOT_A_FILE").With("path", path).Errorf("%s is a directory", path)
	}
	return path, nil
}
