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
	"strconv"
	"strings"
	"time"
)

// Leading columns of the municipal mortality table. Every other column is a
// reporting date.
const (
	colDepartment     = "departamento"
	colDepartmentCode = "codigo_departamento"
	colMunicipality   = "municipio"
	colMunicipalCode  = "codigo_municipio"
	colPopulation     = "poblacion"
)

var municipalColumns = []string{
	colDepartment,
	colDepartmentCode,
	colMunicipality,
	colMunicipalCode,
	colPopulation,
}

// MunicipalOptions filters the municipal table.
type MunicipalOptions struct {
	Year   int
	Logger *slog.Logger
}

type dateColumn struct {
	index int
	date  time.Time
}

// ParseMunicipal reads the wide municipal mortality table and melts it into
// one death count per municipality and date. Missing death cells count as
// zero. Rows without a usable municipality or department code are dropped,
// and a municipality code seen twice keeps its first row.
func ParseMunicipal(r io.Reader, opts MunicipalOptions) (*Municipal, error) {
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
			return nil, errors.New("municipal csv: empty input")
		}
		return nil, fmt.Errorf("municipal csv header: %w", err)
	}

	idx := make(map[string]int, len(municipalColumns))
	var dates []dateColumn
	var ignored []string
	for i, h := range header {
		name := normalizeHeader(h)
		if isMunicipalColumn(name) {
			idx[name] = i
			continue
		}
		d, err := parseDate(name)
		if err != nil {
			ignored = append(ignored, h)
			continue
		}
		if opts.Year != 0 && d.Year() != opts.Year {
			continue
		}
		dates = append(dates, dateColumn{index: i, date: d})
	}
	for _, col := range municipalColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("municipal csv: missing column %q", col)
		}
	}
	if len(ignored) > 0 {
		logger.Warn("Ignoring unrecognized municipal columns", "columns", ignored)
	}
	sort.SliceStable(dates, func(i, j int) bool { return dates[i].date.Before(dates[j].date) })

	var (
		out         Municipal
		departments = make(map[int]string)
		seen        = make(map[int]bool)
		dropped     int
		badCells    int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("municipal csv line %d: %w", line, err)
		}
		cell := func(i int) string {
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		muniCode, err1 := parseCode(cell(idx[colMunicipalCode]))
		deptCode, err2 := parseCode(cell(idx[colDepartmentCode]))
		if err1 != nil || err2 != nil {
			dropped++
			continue
		}
		if seen[muniCode] {
			dropped++
			continue
		}
		seen[muniCode] = true

		if _, ok := departments[deptCode]; !ok {
			departments[deptCode] = cell(idx[colDepartment])
		}

		var population int64
		if v := cell(idx[colPopulation]); !isNA(v) {
			population, err = strconv.ParseInt(strings.TrimSuffix(v, ".0"), 10, 64)
			if err != nil || population < 0 {
				population = 0
				badCells++
			}
		}
		out.Municipalities = append(out.Municipalities, Municipality{
			Code:           muniCode,
			Name:           cell(idx[colMunicipality]),
			DepartmentCode: deptCode,
			Population:     population,
		})

		for _, dc := range dates {
			deaths := 0
			if v := cell(dc.index); !isNA(v) {
				n, err := parseCode(v)
				if err != nil {
					badCells++
					continue
				}
				deaths = n
			}
			out.Deaths = append(out.Deaths, DeathCount{
				MunicipalityCode: muniCode,
				Date:             dc.date,
				Deaths:           deaths,
			})
		}
	}

	for code, name := range departments {
		out.Departments = append(out.Departments, Department{Code: code, Name: name})
	}
	sort.Slice(out.Departments, func(i, j int) bool { return out.Departments[i].Code < out.Departments[j].Code })
	sort.Slice(out.Municipalities, func(i, j int) bool { return out.Municipalities[i].Code < out.Municipalities[j].Code })
	sort.SliceStable(out.Deaths, func(i, j int) bool {
		a, b := out.Deaths[i], out.Deaths[j]
		if a.MunicipalityCode != b.MunicipalityCode {
			return a.MunicipalityCode < b.MunicipalityCode
		}
		return a.Date.Before(b.Date)
	})

	logger.Debug("Municipal table parsed",
		"year", opts.Year,
		"departments", len(out.Departments),
		"municipalities", len(out.Municipalities),
		"death_counts", len(out.Deaths),
		"dropped_rows", dropped,
		"bad_cells", badCells)
	return &out, nil
}

func isMunicipalColumn(name string) bool {
	for _, col := range municipalColumns {
		if name == col {
			return true
		}
	}
	return false
}
