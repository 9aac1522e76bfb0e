// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. GTLOAD_DATABASE_HOST.
	EnvPrefix = "GTLOAD"

	// DefaultFile is read when present and no other file is named.
	DefaultFile = "config.json"

	flagConfig = "config"
)

// RegisterFlags defines one flag per configuration key on flags, bound to c.
// Flag names use dashes where the configuration key uses underscores.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP(flagConfig, "c", DefaultFile, "Configuration file (JSON)")

	flags.StringVar(&c.LocalCSVName, "local-csv-name", c.LocalCSVName, "Local municipal mortality CSV")
	flags.StringVar(&c.GlobalCSVURL, "url-global-csv", c.GlobalCSVURL, "URL of the WHO global daily series")
	flags.IntVar(&c.FilterYear, "filter-year", c.FilterYear, "Year kept from both datasets")
	flags.StringVar(&c.CountryCode, "country-code", c.CountryCode, "WHO country code to keep")
	flags.IntVar(&c.CapitalDepartmentCode, "capital-department-code", c.CapitalDepartmentCode, "Department counted as the capital")

	flags.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "Rows per batch transaction")
	flags.DurationVar(&c.BatchTimeout, "batch-timeout", c.BatchTimeout, "Deadline for a single batch, 0 disables")
	flags.BoolVar(&c.SimulateErrors, "simulate-errors", c.SimulateErrors, "Fail batches at random before they reach the database")
	flags.Uint64Var(&c.FaultSeed, "fault-seed", c.FaultSeed, "Seed for simulated errors, 0 for random")
	flags.BoolVar(&c.LogStageTimings, "log-stage-timings", c.LogStageTimings, "Log a debug line per batch")

	flags.DurationVar(&c.Retry.Delay, "retry.delay", c.Retry.Delay, "Wait before the retry pass")
	flags.DurationVar(&c.Retry.MaxDelay, "retry.max-delay", c.Retry.MaxDelay, "Cap for exponential backoff, 0 keeps the delay constant")
	flags.BoolVar(&c.Retry.SkipFatal, "retry.skip-fatal", c.Retry.SkipFatal, "Do not retry batches failed by non-transient errors")

	flags.StringVar(&c.Database.Driver, "database.driver", c.Database.Driver, "Database driver: pgx, postgres or sqlite3")
	flags.StringVar(&c.Database.URL, "database.url", c.Database.URL, "Connection URL, overrides the individual settings")
	flags.StringVar(&c.Database.Host, "database.host", c.Database.Host, "Database host")
	flags.IntVar(&c.Database.Port, "database.port", c.Database.Port, "Database port")
	flags.StringVar(&c.Database.User, "database.user", c.Database.User, "Database user")
	flags.StringVar(&c.Database.Password, "database.password", c.Database.Password, "Database password")
	flags.StringVar(&c.Database.Name, "database.name", c.Database.Name, "Database name, or file path for sqlite3")
	flags.StringVar(&c.Database.SSLMode, "database.sslmode", c.Database.SSLMode, "PostgreSQL sslmode")

	flags.DurationVar(&c.HTTP.Timeout, "http.timeout", c.HTTP.Timeout, "Timeout per download attempt")
	flags.IntVar(&c.HTTP.Retries, "http.retries", c.HTTP.Retries, "Download retries on transport errors and 5xx")

	flags.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level: debug, info, warn, error")
	flags.StringVar(&c.Log.Format, "log.format", c.Log.Format, "Log format: json or text")

	flags.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address")
}

// configKey maps a flag name to its configuration file key.
func configKey(flagName string) string {
	return strings.ReplaceAll(flagName, "-", "_")
}

// Load layers the configuration file and GTLOAD_* environment variables under
// the flags already parsed into flags. Flags set on the command line win, then
// environment, then the file, then the defaults the flags were registered with.
func Load(v *viper.Viper, flags *pflag.FlagSet) error {
	validKeys := make(map[string]bool)
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := configKey(f.Name)
		validKeys[key] = true
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return bindErr
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString(flagConfig); path != "" {
		if err := readFile(v, path, flags.Changed(flagConfig)); err != nil {
			return err
		}
		for _, key := range v.AllKeys() {
			if !validKeys[key] {
				return fmt.Errorf("%w: unknown option in configuration file: %s", loader.ErrInvalidConfiguration, key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		if err := f.Value.Set(v.GetString(configKey(f.Name))); err != nil {
			flagErr = fmt.Errorf("%w: %s: %v", loader.ErrInvalidConfiguration, configKey(f.Name), err)
		}
	})
	return flagErr
}

// readFile reads path into v. A missing default file is not an error.
func readFile(v *viper.Viper, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit && path == DefaultFile {
			return nil
		}
		return fmt.Errorf("%w: configuration file %q: %v", loader.ErrInvalidConfiguration, path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: error reading configuration file %q: %v", loader.ErrInvalidConfiguration, path, err)
	}
	return nil
}
