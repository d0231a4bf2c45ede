// Copyright (C) 2024 Tim Bastin, l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/utils"
)

// placeholder values that would otherwise dominate every ranking
var stoplist = map[string]bool{
	"n/a":     true,
	"unknown": true,
	"none":    true,
	"na":      true,
	"n_a":     true,
	"*":       true,
	"":        true,
}

type RankEntry struct {
	Label string
	Count int
}

// TopN ranks categorical values by frequency. With fold set, values are
// lowercased and trimmed before counting (vendor and product names arrive
// in every imaginable spelling). Placeholders are dropped, ties keep the
// first-seen order, and the result is cut to n entries.
func TopN(values []string, n int, fold bool) ([]RankEntry, error) {
	counts := map[string]int{}
	order := []string{}
	for _, value := range values {
		if fold {
			value = strings.ToLower(strings.TrimSpace(value))
		}
		if stoplist[strings.ToLower(strings.TrimSpace(value))] {
			continue
		}
		if _, seen := counts[value]; !seen {
			order = append(order, value)
		}
		counts[value]++
	}
	if len(order) == 0 {
		return nil, ErrNoData
	}

	entries := make([]RankEntry, 0, len(order))
	for _, label := range order {
		entries = append(entries, RankEntry{Label: label, Count: counts[label]})
	}
	sortStable(entries, func(a, b RankEntry) bool {
		return a.Count > b.Count
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

type SeverityCount struct {
	Severity normalize.Severity
	Count    int
}

var severityOrder = []normalize.Severity{
	normalize.SeverityCritical,
	normalize.SeverityHigh,
	normalize.SeverityMedium,
	normalize.SeverityLow,
	normalize.SeverityNone,
}

// SeverityCounts tallies records per severity, ordered critical first.
// Records without a severity are not counted.
func SeverityCounts(records []normalize.Record) ([]SeverityCount, error) {
	bySeverity := map[normalize.Severity]int{}
	any := false
	for _, record := range records {
		if record.Severity == nil {
			continue
		}
		bySeverity[*record.Severity]++
		any = true
	}
	if !any {
		return nil, ErrNoData
	}

	counts := make([]SeverityCount, 0, len(severityOrder))
	for _, severity := range severityOrder {
		counts = append(counts, SeverityCount{Severity: severity, Count: bySeverity[severity]})
	}
	return counts, nil
}

type CNARow struct {
	Assigner  string
	Total     int
	Published int
	Rejected  int
	HasCVSS   int
	HasCWE    int
}

// CNATable summarizes records per assigning CNA, busiest first.
func CNATable(records []normalize.Record) ([]CNARow, error) {
	byAssigner := map[string]*CNARow{}
	order := []string{}
	for _, record := range records {
		name := utils.SafeDereference(record.AssignerName)
		if name == "" {
			name = "unknown"
		}
		row := byAssigner[name]
		if row == nil {
			row = &CNARow{Assigner: name}
			byAssigner[name] = row
			order = append(order, name)
		}
		row.Total++
		if record.IsRejected {
			row.Rejected++
		} else if record.LifecycleState == normalize.StatePublished {
			row.Published++
		}
		if record.CVSSV2 != nil || record.CVSSV3 != nil || record.CVSSV4 != nil {
			row.HasCVSS++
		}
		if record.WeaknessID != nil {
			row.HasCWE++
		}
	}
	if len(order) == 0 {
		return nil, ErrNoData
	}

	rows := make([]CNARow, 0, len(order))
	for _, name := range order {
		rows = append(rows, *byAssigner[name])
	}
	sortStable(rows, func(a, b CNARow) bool {
		return a.Total > b.Total
	})
	return rows, nil
}

// idNumber returns the numeric portion of a CVE id, e.g. 1234 for
// CVE-2025-1234.
func idNumber(id string) *int {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return nil
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}
	return &n
}

func sortStable[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool {
		return less(s[i], s[j])
	})
}
