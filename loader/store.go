// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Store owns the single database connection of a run.
// Only the BatchLoader begins transactions on it.
type Store interface {
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Exec(ctx context.Context, sql string) error
	Close(ctx context.Context) error
}

// Tx is one open transaction on the store's connection.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Supported drivers
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// StoreConfig holds the connection parameters of a run.
type StoreConfig struct {
	Driver   string // pgx (default), postgres or sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string // database name, or file path for sqlite3
	SSLMode  string
	AppName  string
	URL      string // Full connection string; overrides the fields above
}

// DSN renders the connection string for the configured driver.
func (c StoreConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == DriverSQLite {
		return c.Database
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.AppName != "" {
		q.Set("application_name", c.AppName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open establishes the run's connection. Any failure is reported as ErrConnection.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverPgx:
		return openPgx(ctx, cfg.DSN())
	case DriverPostgres:
		return openSQL(ctx, DriverPostgres, cfg.DSN(), DialectPostgres)
	case DriverSQLite:
		return openSQL(ctx, DriverSQLite, cfg.DSN(), DialectSQLite)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrInvalidConfiguration, cfg.Driver)
	}
}
