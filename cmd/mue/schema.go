// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muemud/mue/internal/core"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the inter-server message JSON Schema",
		Long: `Print the JSON Schema every inter-server message must satisfy.
With --output the schema is written to a file instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := core.GenerateSchema()
			if err != nil {
				return oops.In("schema").Wrap(err)
			}

			if outPath == "" {
				cmd.Println(string(schema))
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
			}
			if err := os.WriteFile(outPath, schema, 0o600); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the schema to this file")

	return cmd
}
