// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package cli wires configuration, ingestion and the loader into the
// covidload commands.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/L2AsHdz/covid-19-data-analysis/internal/config"
)

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "covidload",
		Short: "Load Guatemala COVID-19 mortality data into a relational database.",
		Long: `covidload reads the local municipal mortality table and the WHO global
daily series, cleans both, and loads departments, municipalities, municipal
death counts and the national daily summary in fixed-size transactional
batches. Failed batches are retried once after a backoff delay.`,
		SilenceUsage: true,
	}
	rc.AddCommand(newLoadCommand(stdout, stderr))
	rc.AddCommand(newInitSchemaCommand(stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// prepare layers file and environment settings under cmd's flags, validates
// the result and builds the process logger.
func prepare(cmd *cobra.Command, cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	if err := config.Load(viper.New(), cmd.Flags()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
