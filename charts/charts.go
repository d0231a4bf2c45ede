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

package charts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot/plotter"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/stats"
	"github.com/jgamblin/2025CVEBlog/utils"
)

// the modern CVE program starts here; earlier ids are too sparse to chart
const firstChartYear = 1999

// Inputs carries the record sets a full chart run consumes. Bulk is the
// rejected-filtered working set, FullBulk additionally keeps the rejected
// records for the rejection charts.
type Inputs struct {
	Bulk        []normalize.Record
	FullBulk    []normalize.Record
	Cvelist     []normalize.Record
	SubjectYear int
}

// RenderAll produces every chart that has data, skipping the rest, and
// returns the base names of the files it wrote.
func RenderAll(style Style, dir string, inputs Inputs) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create graphs directory")
	}

	produced := []string{}
	render := func(name string, fn func(path string) error) {
		path := filepath.Join(dir, name)
		if err := fn(path); err != nil {
			if errors.Is(err, stats.ErrNoData) {
				slog.Info("skipping chart, no data", "chart", name)
				return
			}
			slog.Error("could not render chart", "chart", name, "err", err)
			return
		}
		produced = append(produced, name)
	}

	render("01_cves_by_year.png", func(path string) error {
		return cvesByYear(style, inputs, path)
	})
	render("02_yoy_growth.png", func(path string) error {
		return yoyGrowth(style, inputs, path)
	})
	render("03_cumulative_growth.png", func(path string) error {
		return cumulativeGrowth(style, inputs, path)
	})
	render("04_2025_monthly.png", func(path string) error {
		return monthly(style, inputs, path)
	})
	render("05_cvss_distribution.png", func(path string) error {
		return cvssDistribution(style, inputs, path)
	})
	render("06_severity_breakdown.png", func(path string) error {
		return severityBreakdown(style, inputs, path)
	})
	render("07_top_cwes.png", func(path string) error {
		return topWeaknesses(style, inputs, path)
	})
	render("08_top_cnas.png", func(path string) error {
		return topAssigners(style, inputs, path)
	})
	render("09_data_quality.png", func(path string) error {
		return dataQuality(style, inputs, path)
	})
	render("10_rejected_cves.png", func(path string) error {
		return rejectedByYear(style, inputs, path)
	})
	render("11_cve_states.png", func(path string) error {
		return lifecycleStates(style, inputs, path)
	})
	render("12_cve_id_ranges.png", func(path string) error {
		return idRanges(style, inputs, path)
	})
	render("13_cvss_by_year.png", func(path string) error {
		return cvssByYear(style, inputs, path)
	})
	render("14_top_vendors.png", func(path string) error {
		return topVendors(style, inputs, path)
	})
	render("15_time_to_publish.png", func(path string) error {
		return timeToPublish(style, inputs, path)
	})
	render("16_day_of_week.png", func(path string) error {
		return dayOfWeek(style, inputs, path)
	})
	render("17_top_days.png", func(path string) error {
		return topDays(style, inputs, path)
	})
	render("18_top_products.png", func(path string) error {
		return topProducts(style, inputs, path)
	})

	return produced, nil
}

func cvesByYear(style Style, inputs Inputs, path string) error {
	counts, err := stats.YearlyCounts(inputs.Bulk, firstChartYear, inputs.SubjectYear)
	if err != nil {
		return err
	}
	labels, values := yearAxis(counts)
	title := fmt.Sprintf("Published CVEs by Year (%d-%d)", firstChartYear, inputs.SubjectYear)
	return renderBarsHighlighted(style, title, labels, values, len(values)-1, path)
}

func yoyGrowth(style Style, inputs Inputs, path string) error {
	counts, err := stats.YearlyCounts(inputs.Bulk, firstChartYear, inputs.SubjectYear)
	if err != nil {
		return err
	}
	points, err := stats.YoYChange(counts)
	if err != nil {
		return err
	}

	labels := []string{}
	values := []float64{}
	for _, point := range points {
		if point.Change == nil {
			continue
		}
		labels = append(labels, fmt.Sprintf("%d", point.Year))
		values = append(values, *point.Change)
	}
	if len(values) == 0 {
		return stats.ErrNoData
	}
	return renderBarsHighlighted(style, "Year-over-Year Growth (%)", labels, values, len(values)-1, path)
}

func cumulativeGrowth(style Style, inputs Inputs, path string) error {
	counts, err := stats.YearlyCounts(inputs.Bulk, firstChartYear, inputs.SubjectYear)
	if err != nil {
		return err
	}
	cumulative, err := stats.Cumulative(counts)
	if err != nil {
		return err
	}

	points := make(plotter.XYs, 0, len(cumulative))
	for _, c := range cumulative {
		points = append(points, plotter.XY{X: float64(c.Year), Y: float64(c.Count)})
	}
	return renderLine(style, "Cumulative Published CVEs", points, true, path)
}

func monthly(style Style, inputs Inputs, path string) error {
	counts, err := stats.MonthlyCounts(inputs.Bulk, inputs.SubjectYear)
	if err != nil {
		return err
	}

	labels := []string{}
	values := []float64{}
	for _, c := range counts {
		labels = append(labels, c.Month.String()[:3])
		values = append(values, float64(c.Count))
	}
	title := fmt.Sprintf("CVEs Published per Month, %d", inputs.SubjectYear)
	return renderBars(style, title, labels, []barSeries{{values: values, color: style.Primary}}, false, false, path)
}

func cvssDistribution(style Style, inputs Inputs, path string) error {
	scores := []float64{}
	for _, record := range inputs.Bulk {
		if inYear(record, inputs.SubjectYear) {
			if score := stats.BestScore(record); score != nil {
				scores = append(scores, *score)
			}
		}
	}
	if len(scores) == 0 {
		return stats.ErrNoData
	}
	return renderHist(style, "CVSS Base Score Distribution", scores, 20, path)
}

func severityBreakdown(style Style, inputs Inputs, path string) error {
	subject := utils.Filter(inputs.Bulk, func(record normalize.Record) bool {
		return inYear(record, inputs.SubjectYear)
	})
	counts, err := stats.SeverityCounts(subject)
	if err != nil {
		return err
	}

	labels := []string{}
	series := []barSeries{}
	for i, c := range counts {
		labels = append(labels, string(c.Severity))
		// one zero-padded series per severity keeps each bar in its
		// own color
		values := make([]float64, len(counts))
		values[i] = float64(c.Count)
		series = append(series, barSeries{values: values, color: style.severityColor(c.Severity)})
	}
	return renderBars(style, "Severity Breakdown", labels, series, false, false, path)
}

func topWeaknesses(style Style, inputs Inputs, path string) error {
	ids := []string{}
	for _, record := range inputs.Bulk {
		if inYear(record, inputs.SubjectYear) && record.WeaknessID != nil {
			ids = append(ids, *record.WeaknessID)
		}
	}
	entries, err := stats.TopN(ids, 10, false)
	if err != nil {
		return err
	}

	labels, values := rankAxis(entries, style.CWELabel)
	return renderBars(style, "Most Common Weaknesses", labels, []barSeries{{values: values, color: style.Primary}}, false, true, path)
}

func topAssigners(style Style, inputs Inputs, path string) error {
	names := []string{}
	for _, record := range inputs.Cvelist {
		if inYear(record, inputs.SubjectYear) && record.AssignerName != nil {
			names = append(names, *record.AssignerName)
		}
	}
	entries, err := stats.TopN(names, 15, false)
	if err != nil {
		return err
	}

	labels, values := rankAxis(entries, nil)
	return renderBars(style, "Most Active CNAs", labels, []barSeries{{values: values, color: style.Primary}}, false, true, path)
}

func dataQuality(style Style, inputs Inputs, path string) error {
	from := inputs.SubjectYear - 9
	points, err := stats.Coverage(inputs.Bulk, from, inputs.SubjectYear)
	if err != nil {
		return err
	}

	labels := []string{}
	score := []float64{}
	cwe := []float64{}
	cpe := []float64{}
	for _, point := range points {
		labels = append(labels, fmt.Sprintf("%d", point.Year))
		score = append(score, point.ScorePct)
		cwe = append(cwe, point.CWEPct)
		cpe = append(cpe, point.CPEPct)
	}
	series := []barSeries{
		{values: score, color: style.Primary, label: "CVSS"},
		{values: cwe, color: style.Accent, label: "CWE"},
		{values: cpe, color: style.Neutral, label: "CPE"},
	}
	return renderBars(style, "Enrichment Coverage (%)", labels, series, true, false, path)
}

func rejectedByYear(style Style, inputs Inputs, path string) error {
	rejectedRecords := utils.Filter(inputs.FullBulk, func(record normalize.Record) bool {
		return record.IsRejected
	})
	counts, err := stats.YearlyCounts(rejectedRecords, inputs.SubjectYear-9, inputs.SubjectYear)
	if err != nil {
		return err
	}
	labels, values := yearAxis(counts)
	return renderBars(style, "Rejected CVEs by Year", labels, []barSeries{{values: values, color: style.Alert}}, false, false, path)
}

func lifecycleStates(style Style, inputs Inputs, path string) error {
	states := []string{}
	for _, record := range inputs.Cvelist {
		if inYear(record, inputs.SubjectYear) {
			states = append(states, string(record.LifecycleState))
		}
	}
	entries, err := stats.TopN(states, 10, false)
	if err != nil {
		return err
	}
	labels, values := rankAxis(entries, nil)
	return renderBars(style, "Record States", labels, []barSeries{{values: values, color: style.Secondary}}, false, false, path)
}

func idRanges(style Style, inputs Inputs, path string) error {
	numbers, err := stats.CVEIDNumbers(inputs.Bulk, inputs.SubjectYear)
	if err != nil {
		return err
	}
	values := utils.Map(numbers, func(n int) float64 { return float64(n) })
	title := fmt.Sprintf("CVE ID Number Distribution, %d", inputs.SubjectYear)
	return renderHist(style, title, values, 40, path)
}

func cvssByYear(style Style, inputs Inputs, path string) error {
	averages, err := stats.AverageScoreByYear(inputs.Bulk, firstChartYear, inputs.SubjectYear)
	if err != nil {
		return err
	}

	points := make(plotter.XYs, 0, len(averages))
	for _, avg := range averages {
		points = append(points, plotter.XY{X: float64(avg.Year), Y: avg.Average})
	}
	return renderLine(style, "Average CVSS Score by Year", points, false, path)
}

func topVendors(style Style, inputs Inputs, path string) error {
	vendors := []string{}
	for _, record := range inputs.Cvelist {
		if inYear(record, inputs.SubjectYear) && record.PrimaryVendor != nil {
			vendors = append(vendors, *record.PrimaryVendor)
		}
	}
	entries, err := stats.TopN(vendors, 15, true)
	if err != nil {
		return err
	}
	labels, values := rankAxis(entries, nil)
	return renderBars(style, "Most Affected Vendors", labels, []barSeries{{values: values, color: style.Primary}}, false, true, path)
}

func timeToPublish(style Style, inputs Inputs, path string) error {
	deltas, err := stats.TimeToPublish(inputs.Cvelist)
	if err != nil {
		return err
	}
	values := utils.Map(deltas, func(d int) float64 { return float64(d) })
	return renderHist(style, "Days from Reservation to Publication", values, 30, path)
}

func dayOfWeek(style Style, inputs Inputs, path string) error {
	subject := utils.Filter(inputs.Bulk, func(record normalize.Record) bool {
		return inYear(record, inputs.SubjectYear)
	})
	counts, err := stats.DayOfWeek(subject)
	if err != nil {
		return err
	}

	labels := []string{}
	values := []float64{}
	for _, c := range counts {
		labels = append(labels, c.Day.String()[:3])
		values = append(values, float64(c.Count))
	}
	return renderBars(style, "Publications by Weekday", labels, []barSeries{{values: values, color: style.Primary}}, false, false, path)
}

func topDays(style Style, inputs Inputs, path string) error {
	subject := utils.Filter(inputs.Bulk, func(record normalize.Record) bool {
		return inYear(record, inputs.SubjectYear)
	})
	peaks, err := stats.PeakDays(subject, 10)
	if err != nil {
		return err
	}

	labels := []string{}
	values := []float64{}
	for _, peak := range peaks {
		labels = append(labels, peak.Date)
		values = append(values, float64(peak.Count))
	}
	return renderBars(style, "Busiest Publication Days", labels, []barSeries{{values: values, color: style.Primary}}, false, true, path)
}

func topProducts(style Style, inputs Inputs, path string) error {
	products := []string{}
	for _, record := range inputs.Cvelist {
		if inYear(record, inputs.SubjectYear) && record.PrimaryProduct != nil {
			products = append(products, *record.PrimaryProduct)
		}
	}
	entries, err := stats.TopN(products, 15, true)
	if err != nil {
		return err
	}
	labels, values := rankAxis(entries, nil)
	return renderBars(style, "Most Affected Products", labels, []barSeries{{values: values, color: style.Primary}}, false, true, path)
}

func inYear(record normalize.Record, year int) bool {
	return utils.OrDefault(record.AttributionYear, 0) == year
}

func yearAxis(counts []stats.YearCount) ([]string, []float64) {
	labels := make([]string, 0, len(counts))
	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		labels = append(labels, fmt.Sprintf("%d", c.Year))
		values = append(values, float64(c.Count))
	}
	return labels, values
}

// rankAxis reverses the ranking so the biggest bar ends up on top of a
// horizontal chart.
func rankAxis(entries []stats.RankEntry, rename func(string) string) ([]string, []float64) {
	labels := make([]string, 0, len(entries))
	values := make([]float64, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		label := entries[i].Label
		if rename != nil {
			label = rename(label)
		}
		labels = append(labels, label)
		values = append(values, float64(entries[i].Count))
	}
	return labels, values
}
