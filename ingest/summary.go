// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package ingest

import "time"

// Summarize joins the national series with municipal deaths by date. Deaths of
// municipalities in capitalDept count as capital deaths, all others as
// interior. Days with no municipal data get zero for both.
func Summarize(global []GlobalDay, m *Municipal, capitalDept int) []DailySummary {
	type split struct{ capital, interior int }

	byDate := make(map[time.Time]split)
	if m != nil {
		deptOf := make(map[int]int, len(m.Municipalities))
		for _, mu := range m.Municipalities {
			deptOf[mu.Code] = mu.DepartmentCode
		}
		for _, d := range m.Deaths {
			s := byDate[d.Date]
			if deptOf[d.MunicipalityCode] == capitalDept {
				s.capital += d.Deaths
			} else {
				s.interior += d.Deaths
			}
			byDate[d.Date] = s
		}
	}

	out := make([]DailySummary, len(global))
	for i, g := range global {
		s := byDate[g.Date]
		out[i] = DailySummary{
			Date:             g.Date,
			NewCases:         g.NewCases,
			CumulativeCases:  g.CumulativeCases,
			NewDeaths:        g.NewDeaths,
			CumulativeDeaths: g.CumulativeDeaths,
			CapitalDeaths:    s.capital,
			InteriorDeaths:   s.interior,
		}
	}
	return out
}
