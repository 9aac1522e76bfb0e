// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/L2AsHdz/covid-19-data-analysis/ingest"
	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

// DefaultGlobalCSVURL is the WHO daily COVID-19 series.
const DefaultGlobalCSVURL = "https://covid19.who.int/WHO-COVID-19-global-data.csv"

// Config holds all configuration for a load run
type Config struct {
	// Sources
	LocalCSVName string
	GlobalCSVURL string

	// Cleaning
	FilterYear            int
	CountryCode           string
	CapitalDepartmentCode int

	// Loading
	BatchSize       int
	BatchTimeout    time.Duration
	SimulateErrors  bool
	FaultSeed       uint64 // 0 picks a random seed
	LogStageTimings bool

	Retry    RetryConfig
	Database DatabaseConfig
	HTTP     HTTPConfig
	Log      LogConfig

	MetricsAddr string
}

type RetryConfig struct {
	Delay     time.Duration
	MaxDelay  time.Duration // 0 keeps the delay constant
	SkipFatal bool
}

type DatabaseConfig struct {
	Driver   string
	URL      string // overrides the individual fields when set
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type HTTPConfig struct {
	Timeout time.Duration
	Retries int
}

type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns a configuration matching a local PostgreSQL install
func DefaultConfig() *Config {
	return &Config{
		LocalCSVName: "municipal_deaths.csv",
		GlobalCSVURL: DefaultGlobalCSVURL,

		FilterYear:            2020,
		CountryCode:           "GT",
		CapitalDepartmentCode: 1,

		BatchSize:    loader.DefaultBatchSize,
		BatchTimeout: 30 * time.Second,

		Retry: RetryConfig{
			Delay: loader.DefaultRetryDelay,
		},
		Database: DatabaseConfig{
			Driver:  loader.DriverPgx,
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "covid",
			SSLMode: "disable",
		},
		HTTP: HTTPConfig{
			Timeout: ingest.DefaultHTTPTimeout,
			Retries: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects settings the loader cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", loader.ErrInvalidConfiguration, c.BatchSize)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("%w: batch_timeout must not be negative", loader.ErrInvalidConfiguration)
	}
	if c.Retry.Delay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", loader.ErrInvalidConfiguration)
	}
	switch c.Database.Driver {
	case loader.DriverPgx, loader.DriverPostgres, loader.DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported database.driver %q", loader.ErrInvalidConfiguration, c.Database.Driver)
	}
	if c.LocalCSVName == "" || c.GlobalCSVURL == "" {
		return fmt.Errorf("%w: local_csv_name and url_global_csv are required", loader.ErrInvalidConfiguration)
	}
	if _, err := c.Log.level(); err != nil {
		return fmt.Errorf("%w: %v", loader.ErrInvalidConfiguration, err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log.format must be json or text, got %q", loader.ErrInvalidConfiguration, c.Log.Format)
	}
	return nil
}

// StoreConfig maps the database section onto the loader's connection settings.
func (c *Config) StoreConfig() loader.StoreConfig {
	return loader.StoreConfig{
		Driver:   c.Database.Driver,
		URL:      c.Database.URL,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Name,
		SSLMode:  c.Database.SSLMode,
		AppName:  "covidload",
	}
}

// RetryPolicy builds a constant backoff, or an exponential one capped at
// MaxDelay when that is set.
func (c *Config) RetryPolicy() loader.RetryPolicy {
	var backoff loader.Backoff = loader.ConstantBackoff(c.Retry.Delay)
	if c.Retry.MaxDelay > 0 {
		backoff = loader.ExponentialBackoff{Base: c.Retry.Delay, Max: c.Retry.MaxDelay}
	}
	return loader.RetryPolicy{Backoff: backoff, SkipFatal: c.Retry.SkipFatal}
}

// OrchestratorConfig builds the loader settings. recorder may be nil.
func (c *Config) OrchestratorConfig(recorder loader.StageMetricsRecorder) *loader.OrchestratorConfig {
	lc := loader.LoaderConfig{
		BatchTimeout:    c.BatchTimeout,
		StageMetrics:    recorder,
		LogStageTimings: c.LogStageTimings,
	}
	if c.SimulateErrors {
		lc.Faults = loader.NewCoinFlip(c.FaultSeed)
	}
	return &loader.OrchestratorConfig{
		BatchSize: c.BatchSize,
		Relations: loader.DefaultRelations(),
		Retry:     c.RetryPolicy(),
		Loader:    lc,
	}
}

func (c *Config) Sources() ingest.Sources {
	return ingest.Sources{LocalPath: c.LocalCSVName, GlobalURL: c.GlobalCSVURL}
}

func (c *Config) IngestOptions(logger *slog.Logger) ingest.Options {
	return ingest.Options{
		CountryCode:           c.CountryCode,
		Year:                  c.FilterYear,
		CapitalDepartmentCode: c.CapitalDepartmentCode,
		Logger:                logger,
	}
}

func (c *Config) HTTPClientConfig() ingest.HTTPConfig {
	return ingest.HTTPConfig{Timeout: c.HTTP.Timeout, Retries: c.HTTP.Retries}
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", l.Level)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
