// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// sqlStore pins a single *sql.Conn so that every transaction of the run
// goes through the same connection.
type sqlStore struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
}

func openSQL(ctx context.Context, driver, dsn string, dialect Dialect) (*sqlStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return &sqlStore{db: db, conn: conn, dialect: dialect}, nil
}

func (s *sqlStore) Dialect() Dialect { return s.dialect }

func (s *sqlStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

func (s *sqlStore) Exec(ctx context.Context, query string) error {
	_, err := s.conn.ExecContext(ctx, query)
	return err
}

func (s *sqlStore) Close(ctx context.Context) error {
	connErr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return connErr
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t sqlTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t sqlTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }
