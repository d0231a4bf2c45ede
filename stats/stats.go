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

// Package stats aggregates canonical records into the tables the charts
// and the report are built from. Every function is pure: records in,
// values out, no shared state.
package stats

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/utils"
)

// ErrNoData signals that an aggregation had nothing to work with. Chart
// rendering treats it as "skip this chart", not as a failure.
var ErrNoData = errors.New("no data for aggregation")

type YearCount struct {
	Year  int
	Count int
}

// YearlyCounts counts records per attribution year over the inclusive
// range [from, to]. Years without records are present with a zero count.
func YearlyCounts(records []normalize.Record, from, to int) ([]YearCount, error) {
	if len(records) == 0 || to < from {
		return nil, ErrNoData
	}

	byYear := map[int]int{}
	for _, record := range records {
		if record.AttributionYear == nil {
			continue
		}
		byYear[*record.AttributionYear]++
	}

	counts := make([]YearCount, 0, to-from+1)
	for year := from; year <= to; year++ {
		counts = append(counts, YearCount{Year: year, Count: byYear[year]})
	}
	return counts, nil
}

type YoYPoint struct {
	Year   int
	Count  int
	Change *float64 // percent, nil for the first year
}

// YoYChange derives year-over-year growth percentages from an ordered
// yearly count series. The first year has no predecessor and stays nil;
// a zero predecessor also yields nil instead of a division blowup.
func YoYChange(counts []YearCount) ([]YoYPoint, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	points := make([]YoYPoint, 0, len(counts))
	for i, c := range counts {
		point := YoYPoint{Year: c.Year, Count: c.Count}
		if i > 0 && counts[i-1].Count > 0 {
			change := (float64(c.Count) - float64(counts[i-1].Count)) / float64(counts[i-1].Count) * 100
			point.Change = &change
		}
		points = append(points, point)
	}
	return points, nil
}

// Cumulative returns the running total of an ordered yearly count series.
func Cumulative(counts []YearCount) ([]YearCount, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	result := make([]YearCount, 0, len(counts))
	total := 0
	for _, c := range counts {
		total += c.Count
		result = append(result, YearCount{Year: c.Year, Count: total})
	}
	return result, nil
}

type MonthCount struct {
	Month time.Month
	Count int
}

// MonthlyCounts counts records published per calendar month of the given
// year. All twelve months are present.
func MonthlyCounts(records []normalize.Record, year int) ([]MonthCount, error) {
	byMonth := map[time.Month]int{}
	any := false
	for _, record := range records {
		if record.PublishedAt == nil || record.PublishedAt.Year() != year {
			continue
		}
		byMonth[record.PublishedAt.Month()]++
		any = true
	}
	if !any {
		return nil, ErrNoData
	}

	counts := make([]MonthCount, 0, 12)
	for month := time.January; month <= time.December; month++ {
		counts = append(counts, MonthCount{Month: month, Count: byMonth[month]})
	}
	return counts, nil
}

type WeekdayCount struct {
	Day   time.Weekday
	Count int
}

// DayOfWeek counts records by the weekday of their publication, Monday
// first to match how the charts are read.
func DayOfWeek(records []normalize.Record) ([]WeekdayCount, error) {
	byDay := map[time.Weekday]int{}
	any := false
	for _, record := range records {
		if record.PublishedAt == nil {
			continue
		}
		byDay[record.PublishedAt.Weekday()]++
		any = true
	}
	if !any {
		return nil, ErrNoData
	}

	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	counts := make([]WeekdayCount, 0, len(order))
	for _, day := range order {
		counts = append(counts, WeekdayCount{Day: day, Count: byDay[day]})
	}
	return counts, nil
}

type DateCount struct {
	Date  string // 2006-01-02
	Count int
}

// PeakDays returns the n calendar dates with the most publications,
// busiest first. Equal counts are ordered by date.
func PeakDays(records []normalize.Record, n int) ([]DateCount, error) {
	byDate := map[string]int{}
	for _, record := range records {
		if record.PublishedAt == nil {
			continue
		}
		byDate[record.PublishedAt.Format("2006-01-02")]++
	}
	if len(byDate) == 0 {
		return nil, ErrNoData
	}

	dates := make([]DateCount, 0, len(byDate))
	for date, count := range byDate {
		dates = append(dates, DateCount{Date: date, Count: count})
	}
	sortStable(dates, func(a, b DateCount) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Date < b.Date
	})
	if n < len(dates) {
		dates = dates[:n]
	}
	return dates, nil
}

// TimeToPublish computes reservation-to-publication deltas in whole days.
// Deltas outside [0, 365] are excluded, they are data errors or multi-year
// embargoes that would dominate every histogram bucket.
func TimeToPublish(records []normalize.Record) ([]int, error) {
	deltas := []int{}
	for _, record := range records {
		if record.ReservedAt == nil || record.PublishedAt == nil {
			continue
		}
		days := int(record.PublishedAt.Sub(*record.ReservedAt).Hours() / 24)
		if days < 0 || days > 365 {
			continue
		}
		deltas = append(deltas, days)
	}
	if len(deltas) == 0 {
		return nil, ErrNoData
	}
	return deltas, nil
}

type CoveragePoint struct {
	Year       int
	ScorePct   float64
	CWEPct     float64
	CPEPct     float64
	TotalCount int
}

// Coverage reports per-year percentages of records carrying a CVSS score,
// a CWE id and CPE data.
func Coverage(records []normalize.Record, from, to int) ([]CoveragePoint, error) {
	if len(records) == 0 || to < from {
		return nil, ErrNoData
	}

	type tally struct{ total, score, cwe, cpe int }
	byYear := map[int]*tally{}
	for _, record := range records {
		if record.AttributionYear == nil {
			continue
		}
		year := *record.AttributionYear
		if year < from || year > to {
			continue
		}
		t := byYear[year]
		if t == nil {
			t = &tally{}
			byYear[year] = t
		}
		t.total++
		if record.CVSSV2 != nil || record.CVSSV3 != nil || record.CVSSV4 != nil {
			t.score++
		}
		if record.WeaknessID != nil {
			t.cwe++
		}
		if record.HasCPE {
			t.cpe++
		}
	}

	points := make([]CoveragePoint, 0, to-from+1)
	for year := from; year <= to; year++ {
		point := CoveragePoint{Year: year}
		if t := byYear[year]; t != nil && t.total > 0 {
			point.TotalCount = t.total
			point.ScorePct = float64(t.score) / float64(t.total) * 100
			point.CWEPct = float64(t.cwe) / float64(t.total) * 100
			point.CPEPct = float64(t.cpe) / float64(t.total) * 100
		}
		points = append(points, point)
	}
	return points, nil
}

type YearAverage struct {
	Year    int
	Average float64
	Count   int
}

// AverageScoreByYear computes the mean of the best available CVSS score
// per attribution year. Years without scored records are omitted.
func AverageScoreByYear(records []normalize.Record, from, to int) ([]YearAverage, error) {
	type tally struct {
		sum   float64
		count int
	}
	byYear := map[int]*tally{}
	for _, record := range records {
		if record.AttributionYear == nil {
			continue
		}
		year := *record.AttributionYear
		if year < from || year > to {
			continue
		}
		score := BestScore(record)
		if score == nil {
			continue
		}
		t := byYear[year]
		if t == nil {
			t = &tally{}
			byYear[year] = t
		}
		t.sum += *score
		t.count++
	}
	if len(byYear) == 0 {
		return nil, ErrNoData
	}

	averages := []YearAverage{}
	for year := from; year <= to; year++ {
		if t := byYear[year]; t != nil {
			averages = append(averages, YearAverage{Year: year, Average: t.sum / float64(t.count), Count: t.count})
		}
	}
	return averages, nil
}

// BestScore returns the highest-precedence CVSS score a record carries.
func BestScore(record normalize.Record) *float64 {
	score, _ := utils.Find([]*float64{record.CVSSV4, record.CVSSV3, record.CVSSV2}, func(s *float64) bool {
		return s != nil
	})
	return score
}

// RejectionRate returns the share of rejected records in percent. An empty
// input yields 0, not an error - a report without rejections is valid.
func RejectionRate(records []normalize.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	rejected := 0
	for _, record := range records {
		if record.IsRejected {
			rejected++
		}
	}
	return float64(rejected) / float64(len(records)) * 100
}

// CVEIDNumbers extracts the numeric id portion of every record attributed
// to the given year, for the id-space distribution chart.
func CVEIDNumbers(records []normalize.Record, year int) ([]int, error) {
	numbers := []int{}
	for _, record := range records {
		if record.AttributionYear == nil || *record.AttributionYear != year {
			continue
		}
		if n := idNumber(record.ID); n != nil {
			numbers = append(numbers, *n)
		}
	}
	if len(numbers) == 0 {
		return nil, ErrNoData
	}
	return numbers, nil
}
