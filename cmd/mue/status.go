// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muemud/mue/internal/core"
	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// statusTimeout bounds the backend queries made by status.
const statusTimeout = 10 * time.Second

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the cluster",
		Long: `Show how many instances are connected, whether the world is initialized,
which rooms are active and which players are connected. Status reads the
backend directly and does not join the cluster.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, sc *statusConfig) error {
	cfg, logger, err := loadConfig(cmd, "mue-status")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	b, err := backendFactory(ctx, cfg.Backend)
	if err != nil {
		return oops.In("status").Wrap(err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing backend", closeErr)
		}
	}()

	st, err := core.Inspect(ctx, b.Storage, b.PubSub)
	if err != nil {
		return oops.In("status").Wrap(err)
	}

	var output string
	if sc.jsonOutput {
		output, err = formatStatusJSON(st)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(st)
	}

	cmd.Println(output)
	return nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(st *core.ClusterStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	initialized := "no"
	if st.Initialized {
		initialized = "yes"
	}
	_, _ = fmt.Fprintf(w, "INSTANCES\t%d\n", st.ActiveServers)
	_, _ = fmt.Fprintf(w, "INITIALIZED\t%s\n", initialized)
	for _, field := range []world.RootField{world.RootRoom, world.StartRoom, world.PlayerRoot, world.God} {
		v := st.Roots[field]
		if v == "" {
			v = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(string(field)), v)
	}
	_, _ = fmt.Fprintf(w, "ACTIVE ROOMS\t%s\n", joinIDs(st.ActiveRooms))
	_, _ = fmt.Fprintf(w, "CONNECTED PLAYERS\t%s\n", joinIDs(st.ConnectedPlayers))

	_ = w.Flush()
	return buf.String()
}

func joinIDs(ids []world.ObjectID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(st *core.ClusterStatus) (string, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_ENCODE_FAILED").Wrap(err)
	}
	return string(data), nil
}
