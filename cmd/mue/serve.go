// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/muemud/mue/internal/cache"
	"github.com/muemud/mue/internal/config"
	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/observability"
	"github.com/muemud/mue/internal/seed"
	"github.com/muemud/mue/internal/storage"
	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// serveConfig holds flags local to the serve command.
type serveConfig struct {
	bootstrap bool
}

// onServeReady is called once the world is running. Tests use it to stop the server.
var onServeReady func(w *core.World, metricsAddr string)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a world instance",
		Long: `Join the cluster on the configured backend and run a world instance
until interrupted. Metrics and health probes are served on metrics.addr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.bootstrap, "bootstrap", false, "initialize the world from seed.file if it is empty")

	return cmd
}

func runServe(cmd *cobra.Command, sc *serveConfig) error {
	cfg, logger, err := loadConfig(cmd, "mue")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backendFactory(ctx, cfg.Backend)
	if err != nil {
		return oops.In("serve").Wrap(err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing backend", closeErr)
		}
	}()

	w := core.New(b.Storage, b.PubSub, core.WithLogger(logger))
	if err := w.Init(ctx); err != nil {
		return oops.In("serve").Wrap(err)
	}

	if sc.bootstrap {
		if err := bootstrapIfEmpty(ctx, w, cfg); err != nil {
			shutdownWorld(w, cfg, logger)
			return err
		}
	}

	var obs *observability.Server
	var obsErr <-chan error
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr,
			func() bool { return w.State() == core.StateRunning },
			storage.RegisterMetrics,
			cache.RegisterMetrics,
			core.RegisterMetrics,
		)
		if obsErr, err = obs.Start(); err != nil {
			shutdownWorld(w, cfg, logger)
			return oops.In("serve").Wrap(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	events := w.Events().Subscribe()
	g.Go(func() error {
		for ev := range events {
			logger.Debug("world event", "scope", ev.Scope, "object", ev.ObjectID, "event", ev.Name)
			if obs == nil {
				continue
			}
			obs.Metrics().ObserveEvent(ev.Scope.String(), ev.Name)
			if ev.Scope == world.ScopePlayer && (ev.Name == world.EventConnect || ev.Name == world.EventDisconnect) {
				obs.Metrics().ConnectedPlayers.Set(float64(len(w.Connections().Players())))
			}
		}
		return nil
	})

	if obsErr != nil {
		g.Go(func() error {
			select {
			case err, ok := <-obsErr:
				if ok && err != nil {
					return oops.In("serve").With("server", "observability").Wrap(err)
				}
			case <-gctx.Done():
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "instance_id", w.InstanceID())
		shutdownWorld(w, cfg, logger)
		if obs != nil {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Shutdown.Timeout)
			defer cancel()
			if err := obs.Stop(stopCtx); err != nil {
				errutil.LogError(logger, "error stopping observability server", err)
			}
		}
		return nil
	})

	addr := ""
	if obs != nil {
		addr = obs.Addr()
	}
	cmd.Println("mue instance running")
	logger.Info("instance ready", "instance_id", w.InstanceID(), "backend", cfg.Backend.Kind, "metrics_addr", addr)
	if onServeReady != nil {
		onServeReady(w, addr)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// shutdownWorld leaves the cluster within the configured timeout.
func shutdownWorld(w *core.World, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		errutil.LogError(logger, "error leaving cluster", err)
	}
}

// bootstrapIfEmpty seeds the world when no root room exists yet.
func bootstrapIfEmpty(ctx context.Context, w *core.World, cfg *config.Config) error {
	if _, ok, err := w.Storage().GetRootValue(ctx, world.RootRoom); err != nil {
		return oops.In("serve").Wrap(err)
	} else if ok {
		return nil
	}

	def, err := loadDefinition(cfg.Seed.File)
	if err != nil {
		return err
	}
	if _, err := seed.Run(ctx, w, def); err != nil {
		return oops.In("serve").Wrap(err)
	}
	return nil
}

func loadDefinition(path string) (*seed.Definition, error) {
	if path == "" {
		return seed.Default(), nil
	}
	return seed.Load(path)
}
