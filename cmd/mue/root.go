// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muemud/mue/internal/config"
	"github.com/muemud/mue/internal/logging"
	"github.com/muemud/mue/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the mue CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mue",
		Short: "mue - a multi-instance MUD server",
		Long: `mue runs a shared MUD world across any number of server instances.
Instances share object storage and coordinate cache invalidation and
player presence over a pub/sub backend.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd and installs the default logger.
// Without --config the XDG config file is used when present.
func loadConfig(cmd *cobra.Command, service string) (*config.Config, *slog.Logger, error) {
	path := configFile
	if path == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return nil, nil, oops.In("cli").Wrap(err)
		}
		path = found
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, oops.In("cli").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, oops.In("cli").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, oops.In("cli").Wrap(err)
	}
	logger := logging.SetDefault(logging.Options{
		Service: service,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
