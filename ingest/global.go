// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// WHO column names after header normalization.
const (
	colDateReported     = "date_reported"
	colCountryCode      = "country_code"
	colNewCases         = "new_cases"
	colCumulativeCases  = "cumulative_cases"
	colNewDeaths        = "new_deaths"
	colCumulativeDeaths = "cumulative_deaths"
)

var globalColumns = []string{
	colDateReported,
	colCountryCode,
	colNewCases,
	colCumulativeCases,
	colNewDeaths,
	colCumulativeDeaths,
}

// GlobalOptions filters the WHO series.
type GlobalOptions struct {
	CountryCode string
	Year        int
	Logger      *slog.Logger
}

// ParseGlobal reads the WHO daily series and returns the cleaned days of one
// country and year, sorted by date with one row per date. Rows with an
// unparseable date or a non-digit count are dropped.
func ParseGlobal(r io.Reader, opts GlobalOptions) ([]GlobalDay, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("global csv: empty input")
		}
		return nil, fmt.Errorf("global csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}
	for _, col := range globalColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("global csv: missing column %q", col)
		}
	}

	var (
		days    []GlobalDay
		seen    = make(map[string]bool)
		dropped int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("global csv line %d: %w", line, err)
		}
		field := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		if field(colCountryCode) != opts.CountryCode {
			continue
		}
		day, ok := parseGlobalDay(field)
		if !ok {
			dropped++
			continue
		}
		if opts.Year != 0 && day.Date.Year() != opts.Year {
			continue
		}
		key := day.Date.Format("2006-01-02")
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		days = append(days, day)
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	logger.Debug("Global series parsed",
		"country", opts.CountryCode,
		"year", opts.Year,
		"days", len(days),
		"dropped", dropped)
	return days, nil
}

func parseGlobalDay(field func(string) string) (GlobalDay, bool) {
	date, err := parseDate(field(colDateReported))
	if err != nil {
		return GlobalDay{}, false
	}
	var counts [4]int
	for i, col := range []string{colNewCases, colCumulativeCases, colNewDeaths, colCumulativeDeaths} {
		v := field(col)
		if isNA(v) {
			return GlobalDay{}, false
		}
		n, err := parseCount(v)
		if err != nil {
			return GlobalDay{}, false
		}
		counts[i] = n
	}
	return GlobalDay{
		Date:             date,
		NewCases:         counts[0],
		CumulativeCases:  counts[1],
		NewDeaths:        counts[2],
		CumulativeDeaths: counts[3],
	}, true
}
