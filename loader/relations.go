// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

// Relation names
const (
	RelDepartment           = "department"
	RelMunicipality         = "municipality"
	RelMunicipalDeathCount  = "municipal_death_count"
	RelNationalDailySummary = "national_daily_summary"
)

// Department rows: code, name.
var Department = Relation{
	Name:    RelDepartment,
	Table:   "departments",
	Columns: []string{"code", "name"},
}

// Municipality rows: code, name, department_code, population.
var Municipality = Relation{
	Name:      RelMunicipality,
	Table:     "municipalities",
	Columns:   []string{"code", "name", "department_code", "population"},
	DependsOn: []string{RelDepartment},
}

// MunicipalDeathCount rows: municipality_code, date, deaths.
var MunicipalDeathCount = Relation{
	Name:      RelMunicipalDeathCount,
	Table:     "municipal_deaths",
	Columns:   []string{"municipality_code", "date", "deaths"},
	DependsOn: []string{RelMunicipality},
}

// NationalDailySummary rows: date, new_cases, cumulative_cases, new_deaths,
// cumulative_deaths, capital_deaths, interior_deaths.
var NationalDailySummary = Relation{
	Name:  RelNationalDailySummary,
	Table: "daily_summary",
	Columns: []string{
		"date",
		"new_cases",
		"cumulative_cases",
		"new_deaths",
		"cumulative_deaths",
		"capital_deaths",
		"interior_deaths",
	},
}

// DefaultRelations returns the four target relations in declaration order.
func DefaultRelations() []Relation {
	return []Relation{Department, Municipality, MunicipalDeathCount, NationalDailySummary}
}
