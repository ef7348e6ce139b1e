// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/seed"
	"github.com/muemud/mue/pkg/errutil"
)

// Default timeout for the init command.
const defaultInitTimeout = 30 * time.Second

// initConfig holds flags local to the init command.
type initConfig struct {
	timeout time.Duration
}

// NewInitCmd creates the init subcommand.
func NewInitCmd() *cobra.Command {
	cfg := &initConfig{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an empty world",
		Long: `Creates the root room, the god player, the start room, the player root
room and any player or scripts listed in the world file (seed.file).
Refuses to run while other instances are connected or when the world
already exists.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultInitTimeout, "timeout for backend operations (e.g., 30s, 1m)")

	return cmd
}

func runInit(cmd *cobra.Command, ic *initConfig) error {
	cfg, logger, err := loadConfig(cmd, "mue-init")
	if err != nil {
		return err
	}

	def, err := loadDefinition(cfg.Seed.File)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ic.timeout)
	defer cancel()

	b, err := backendFactory(ctx, cfg.Backend)
	if err != nil {
		return oops.In("init").Wrap(err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing backend", closeErr)
		}
	}()

	w := core.New(b.Storage, b.PubSub, core.WithLogger(logger))
	if err := w.Init(ctx); err != nil {
		return oops.In("init").Wrap(err)
	}
	defer shutdownWorld(w, cfg, logger)

	res, err := seed.Run(ctx, w, def)
	if err != nil {
		return oops.In("init").Wrap(err)
	}

	cmd.Printf("Created root room %s\n", res.RootRoom)
	cmd.Printf("Created god player %s\n", res.God)
	cmd.Printf("Created start room %s\n", res.StartRoom)
	cmd.Printf("Created player root %s\n", res.PlayerRoot)
	if res.Player.IsAssigned() {
		cmd.Printf("Created player %s\n", res.Player)
	}
	for name, id := range res.Scripts {
		cmd.Printf("Created script %s (%s)\n", name, id)
	}
	cmd.Println("World initialized!")
	return nil
}
