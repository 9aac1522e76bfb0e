// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// naValues are the cell values treated as missing, matched after trimming.
var naValues = map[string]bool{
	"":    true,
	"n/a": true,
	"NA":  true,
	"N/a": true,
	"na":  true,
	"n/A": true,
}

func isNA(s string) bool {
	return naValues[strings.TrimSpace(s)]
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseCount parses a non-negative integer cell.
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return 0, fmt.Errorf("not a non-negative integer: %q", s)
	}
	return strconv.Atoi(s)
}

// parseCode parses an integer code, tolerating a trailing ".0" left by spreadsheet exports.
func parseCode(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".0")
	return parseCount(s)
}

var dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02"}

// parseDate parses a date cell. Month-first layouts are tried before ISO.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// normalizeHeader lower-cases a header cell and strips a UTF-8 byte order mark,
// including one that was decoded as Latin-1.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimPrefix(s, "ï»¿")
	return strings.ToLower(strings.TrimSpace(s))
}
