// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the placeholder syntax of the target database.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Relation is a named target table with a fixed, positional column list.
// DependsOn names relations that must be loaded first.
type Relation struct {
	Name      string
	Table     string
	Columns   []string
	DependsOn []string
}

// InsertSQL returns the parameterized INSERT statement for the relation.
func (r Relation) InsertSQL(d Dialect) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(r.Table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(r.Columns, ", "))
	sb.WriteString(") VALUES (")
	for i := range r.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.placeholder(i + 1))
	}
	sb.WriteString(")")
	return sb.String()
}

// Validate checks that the relation can produce a usable insert statement.
func (r Relation) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: relation name is required", ErrInvalidConfiguration)
	}
	if r.Table == "" {
		return fmt.Errorf("%w: relation %q has no table", ErrInvalidConfiguration, r.Name)
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("%w: relation %q has no columns", ErrInvalidConfiguration, r.Name)
	}
	seen := make(map[string]bool, len(r.Columns))
	for _, c := range r.Columns {
		if c == "" {
			return fmt.Errorf("%w: relation %q has an empty column name", ErrInvalidConfiguration, r.Name)
		}
		if seen[c] {
			return fmt.Errorf("%w: relation %q repeats column %q", ErrInvalidConfiguration, r.Name, c)
		}
		seen[c] = true
	}
	return nil
}

// Row is one positional tuple matching a relation's column list.
type Row []any

// RecordSet is an ordered, immutable sequence of rows destined for one relation.
type RecordSet struct {
	Relation string
	Rows     []Row
}

// Len returns the number of rows.
func (rs RecordSet) Len() int { return len(rs.Rows) }

// checkShape verifies that every row has exactly one value per column.
func (rs RecordSet) checkShape(rel Relation) error {
	for i, row := range rs.Rows {
		if len(row) != len(rel.Columns) {
			return fmt.Errorf("%w: relation %q row %d has %d values, want %d",
				ErrInvalidConfiguration, rel.Name, i, len(row), len(rel.Columns))
		}
	}
	return nil
}
