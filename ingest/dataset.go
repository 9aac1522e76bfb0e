// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/L2AsHdz/covid-19-data-analysis/loader"
)

// GlobalDay is one cleaned day of the WHO global series for a single country.
type GlobalDay struct {
	Date             time.Time
	NewCases         int
	CumulativeCases  int
	NewDeaths        int
	CumulativeDeaths int
}

type Department struct {
	Code int
	Name string
}

type Municipality struct {
	Code           int
	Name           string
	DepartmentCode int
	Population     int64
}

// DeathCount is the number of deaths reported by one municipality on one day.
type DeathCount struct {
	MunicipalityCode int
	Date             time.Time
	Deaths           int
}

// DailySummary is the national series enriched with the capital/interior split
// of municipal deaths.
type DailySummary struct {
	Date             time.Time
	NewCases         int
	CumulativeCases  int
	NewDeaths        int
	CumulativeDeaths int
	CapitalDeaths    int
	InteriorDeaths   int
}

// Municipal is the reshaped local mortality table.
type Municipal struct {
	Departments    []Department
	Municipalities []Municipality
	Deaths         []DeathCount
}

// Dataset holds the four cleaned record sets handed to the loader.
type Dataset struct {
	Departments    []Department
	Municipalities []Municipality
	Deaths         []DeathCount
	Summary        []DailySummary
}

// RecordSets converts the dataset into loader record sets, one per relation,
// preserving the order of every slice.
func (d *Dataset) RecordSets() []loader.RecordSet {
	departments := make([]loader.Row, len(d.Departments))
	for i, dep := range d.Departments {
		departments[i] = loader.Row{dep.Code, dep.Name}
	}

	municipalities := make([]loader.Row, len(d.Municipalities))
	for i, m := range d.Municipalities {
		municipalities[i] = loader.Row{m.Code, m.Name, m.DepartmentCode, m.Population}
	}

	deaths := make([]loader.Row, len(d.Deaths))
	for i, dc := range d.Deaths {
		deaths[i] = loader.Row{dc.MunicipalityCode, dc.Date, dc.Deaths}
	}

	summary := make([]loader.Row, len(d.Summary))
	for i, s := range d.Summary {
		summary[i] = loader.Row{
			s.Date,
			s.NewCases,
			s.CumulativeCases,
			s.NewDeaths,
			s.CumulativeDeaths,
			s.CapitalDeaths,
			s.InteriorDeaths,
		}
	}

	return []loader.RecordSet{
		{Relation: loader.RelDepartment, Rows: departments},
		{Relation: loader.RelMunicipality, Rows: municipalities},
		{Relation: loader.RelMunicipalDeathCount, Rows: deaths},
		{Relation: loader.RelNationalDailySummary, Rows: summary},
	}
}

// Options controls how raw sources become a Dataset.
type Options struct {
	CountryCode           string
	Year                  int
	CapitalDepartmentCode int
	Logger                *slog.Logger
}

// Build parses both raw sources and assembles the dataset for loading.
func Build(raw *Raw, opts Options) (*Dataset, error) {
	global, err := ParseGlobal(bytes.NewReader(raw.Global), GlobalOptions{
		CountryCode: opts.CountryCode,
		Year:        opts.Year,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	municipal, err := ParseMunicipal(bytes.NewReader(raw.Local), MunicipalOptions{
		Year:   opts.Year,
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Departments:    municipal.Departments,
		Municipalities: municipal.Municipalities,
		Deaths:         municipal.Deaths,
		Summary:        Summarize(global, municipal, opts.CapitalDepartmentCode),
	}, nil
}
