// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/L2AsHdz/covid-19-data-analysis/ingest"
	"github.com/L2AsHdz/covid-19-data-analysis/internal/config"
	"github.com/L2AsHdz/covid-19-data-analysis/internal/metrics"
	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

func newLoadCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.DefaultConfig()
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Ingest both datasets and load them in batches.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := prepare(cmd, cfg, stderr)
			if err != nil {
				return err
			}
			return runLoad(cmd.Context(), cfg, dryRun, stdout, logger)
		},
	}
	cfg.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Ingest and clean the data, print row counts, and stop before connecting")
	return cmd
}

func runLoad(ctx context.Context, cfg *config.Config, dryRun bool, stdout io.Writer, logger *slog.Logger) error {
	sets, err := ingestSets(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if dryRun {
		for _, rs := range sets {
			fmt.Fprintf(stdout, "%s=%d\n", rs.Relation, rs.Len())
		}
		return nil
	}

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, recorder, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	report, err := loader.Run(ctx, cfg.StoreConfig(), cfg.OrchestratorConfig(recorder), sets, logger)
	if report != nil {
		fmt.Fprintf(stdout, "committed=%d failed=%d\n", report.Committed(), report.Failed())
	}
	return err
}

func ingestSets(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]loader.RecordSet, error) {
	client := ingest.NewHTTPClient(cfg.HTTPClientConfig(), logger)
	raw, err := ingest.FetchAll(ctx, client, cfg.Sources())
	if err != nil {
		return nil, fmt.Errorf("acquire sources: %w", err)
	}
	ds, err := ingest.Build(raw, cfg.IngestOptions(logger))
	if err != nil {
		return nil, fmt.Errorf("clean sources: %w", err)
	}
	sets := ds.RecordSets()
	for _, rs := range sets {
		logger.Info("Record set ready", "relation", rs.Relation, "rows", rs.Len())
	}
	return sets, nil
}

// serveMetrics exposes recorder on addr until the returned stop is called.
func serveMetrics(addr string, recorder *metrics.Recorder, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown", "error", err)
		}
	}, nil
}
