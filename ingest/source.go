// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

// DefaultHTTPTimeout bounds a single remote fetch attempt.
const DefaultHTTPTimeout = 30 * time.Second

// maxBodySize caps the remote CSV; the full WHO series is a few tens of MB.
var maxBodySize int64 = 256 << 20

// HTTPConfig configures the client used for remote sources.
type HTTPConfig struct {
	Timeout time.Duration
	Retries int
}

// NewHTTPClient builds a retrying HTTP client. Transport errors and 5xx
// responses are retried up to Retries times with exponential backoff.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) *retryablehttp.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = logger
	return client
}

// ReadLocal reads a local CSV file.
func ReadLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local csv: %w", err)
	}
	return data, nil
}

// Fetch downloads url and returns the response body. Any status other than
// 200 is an error once the client's retries are exhausted.
func Fetch(ctx context.Context, client *retryablehttp.Client, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(data)) > maxBodySize {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, maxBodySize)
	}
	return data, nil
}

// Sources names the two inputs of a run.
type Sources struct {
	LocalPath string
	GlobalURL string
}

// Raw holds the undecoded bytes of both sources.
type Raw struct {
	Local  []byte
	Global []byte
}

// FetchAll reads the local file and downloads the remote series concurrently.
// The first failure cancels the other acquisition.
func FetchAll(ctx context.Context, client *retryablehttp.Client, src Sources) (*Raw, error) {
	var raw Raw
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := ReadLocal(src.LocalPath)
		if err != nil {
			return err
		}
		raw.Local = data
		return nil
	})
	g.Go(func() error {
		data, err := Fetch(gctx, client, src.GlobalURL)
		if err != nil {
			return err
		}
		raw.Global = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &raw, nil
}
