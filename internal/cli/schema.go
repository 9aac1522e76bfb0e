// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/L2AsHdz/covid-19-data-analysis/internal/config"
	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

func newInitSchemaCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "init-schema",
		Short: "Create the four target tables if they do not exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := prepare(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := loader.Open(ctx, cfg.StoreConfig())
			if err != nil {
				logger.Error("Failed to connect", "driver", cfg.Database.Driver, "error", err)
				return err
			}
			defer func() {
				if err := store.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("Failed to close store", "error", err)
				}
			}()

			if err := loader.EnsureSchema(ctx, store); err != nil {
				return err
			}
			logger.Info("Schema ready", "driver", cfg.Database.Driver)
			fmt.Fprintln(stdout, "schema ready")
			return nil
		},
	}
	cfg.RegisterFlags(cmd.Flags())
	return cmd
}
