// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"fmt"
)

// SchemaStatements returns the CREATE TABLE IF NOT EXISTS statements for the four
// target relations. Tables carry only a surrogate key: no unique or foreign key
// constraints, so load order is enforced by the orchestrator and re-runs append.
func SchemaStatements(d Dialect) []string {
	id := "id BIGSERIAL PRIMARY KEY"
	if d == DialectSQLite {
		id = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	return []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS departments (
			` + id + `,
			code  INTEGER NOT NULL,
			name  TEXT    NOT NULL
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS municipalities (
			` + id + `,
			code            INTEGER NOT NULL,
			name            TEXT    NOT NULL,
			department_code INTEGER NOT NULL,
			population      BIGINT  NOT NULL
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS municipal_deaths (
			` + id + `,
			municipality_code INTEGER NOT NULL,
			date              DATE    NOT NULL,
			deaths            INTEGER NOT NULL CHECK (deaths >= 0)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS daily_summary (
			` + id + `,
			date              DATE    NOT NULL,
			new_cases         INTEGER NOT NULL,
			cumulative_cases  INTEGER NOT NULL,
			new_deaths        INTEGER NOT NULL,
			cumulative_deaths INTEGER NOT NULL,
			capital_deaths    INTEGER NOT NULL,
			interior_deaths   INTEGER NOT NULL
		)`,
	}
}

// EnsureSchema creates the target tables if they don't exist. Existing tables are
// left untouched.
func EnsureSchema(ctx context.Context, store Store) error {
	for _, stmt := range SchemaStatements(store.Dialect()) {
		if err := store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
