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

// Package report composes the annual review blog post from the aggregated
// record sets. Sections whose inputs are missing are left out rather than
// rendered half-empty.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/stats"
	"github.com/jgamblin/2025CVEBlog/utils"
)

const firstProgramYear = 1999

// Input carries everything a blog composition needs. Bulk and Cvelist are
// the working sets with rejected records filtered out and records beyond
// the subject year excluded; the Full variants keep everything for the
// rejection section.
type Input struct {
	Bulk        []normalize.Record
	FullBulk    []normalize.Record
	Cvelist     []normalize.Record
	SubjectYear int

	// base names of the chart files that were actually produced; a
	// section never references an image that does not exist
	Images map[string]bool
}

// Prepare applies the working-set rules to raw record sets: rejected
// records out, records attributed past the subject year out.
func Prepare(records []normalize.Record, subjectYear int) []normalize.Record {
	return utils.Filter(records, func(record normalize.Record) bool {
		if record.IsRejected {
			return false
		}
		if record.AttributionYear != nil && *record.AttributionYear > subjectYear {
			return false
		}
		return true
	})
}

// Compose builds the full blog post as markdown.
func Compose(input Input) (string, error) {
	if len(input.Bulk) == 0 {
		return "", errors.New("no records to report on")
	}

	subject := utils.Filter(input.Bulk, func(record normalize.Record) bool {
		return inYear(record, input.SubjectYear)
	})
	previous := utils.Filter(input.Bulk, func(record normalize.Record) bool {
		return inYear(record, input.SubjectYear-1)
	})

	var b strings.Builder
	writeHeader(&b, input.SubjectYear)
	writeTLDR(&b, input, subject, previous)
	writeGrowth(&b, input)
	writeMonthly(&b, input, subject)
	writeDayOfWeek(&b, input, subject)
	writeTopDays(&b, input, subject)
	writeTopProducts(&b, input)
	writeScores(&b, input, subject)
	writeWeaknesses(&b, input, subject)
	writeAssigners(&b, input)
	writeVendors(&b, input)
	writeQuality(&b, input, subject)
	writeRejected(&b, input)
	writeConclusions(&b, input, subject)
	writeMethodology(&b, input.SubjectYear)

	return b.String(), nil
}

func writeHeader(b *strings.Builder, year int) {
	fmt.Fprintf(b, "# %d CVE Data Review\n\n", year)
	fmt.Fprintf(b, "*By Jerry Gamblin | December 31, %d*\n\n---\n\n", year)
	fmt.Fprintf(b, "Another year, another record-breaking year for CVE disclosures. In this annual review, I analyze the Common Vulnerabilities and Exposures (CVE) data for %d, examining trends in vulnerability disclosures, severity distributions, and the organizations driving vulnerability documentation.\n\n", year)
}

func writeTLDR(b *strings.Builder, input Input, subject, previous []normalize.Record) {
	total := len(subject)
	direction := "an increase"
	change := 0.0
	if len(previous) > 0 {
		change = (float64(total) - float64(len(previous))) / float64(len(previous)) * 100
	}
	if change < 0 {
		direction = "a decrease"
	}

	b.WriteString("## TL;DR\n\n")
	fmt.Fprintf(b, "**%d saw %s CVEs published**, %s of **%.1f%%** compared to %s CVEs in %d. This brings the all-time total to **%s CVEs** since the program began in %d.\n\n",
		input.SubjectYear, thousands(total), direction, abs(change), thousands(len(previous)), input.SubjectYear-1, thousands(len(input.Bulk)), firstProgramYear)
	b.WriteString("> **Note**: All statistics in this report exclude rejected CVEs to provide an accurate count of active vulnerabilities.\n\n")

	b.WriteString("### Key Statistics at a Glance\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(b, "| **Total CVEs in %d** | **%s** |\n", input.SubjectYear, thousands(total))
	if len(previous) > 0 {
		fmt.Fprintf(b, "| Year-over-Year Change | %s |\n", signedPct(change, 1))
	}

	if counts, err := stats.SeverityCounts(subject); err == nil {
		for _, c := range counts {
			if c.Severity == normalize.SeverityCritical || c.Severity == normalize.SeverityHigh {
				fmt.Fprintf(b, "| %s Severity | %s |\n", titleCase(string(c.Severity)), thousands(c.Count))
			}
		}
	}
	if avg, _, ok := scoreStats(subject); ok {
		fmt.Fprintf(b, "| Average CVSS Score | %.2f |\n", avg)
	}
	if coverage := subjectCoverage(subject, input.SubjectYear); coverage != nil {
		fmt.Fprintf(b, "| CVSS Coverage | %s |\n", pct(coverage.ScorePct, 1))
		fmt.Fprintf(b, "| CWE Coverage | %s |\n", pct(coverage.CWEPct, 1))
	}
	if cnas := uniqueAssigners(input.Cvelist, input.SubjectYear); cnas > 0 {
		fmt.Fprintf(b, "| Active CNAs | %s |\n", thousands(cnas))
	}
	b.WriteString("\n---\n\n")
}

func writeGrowth(b *strings.Builder, input Input) {
	counts, err := stats.YearlyCounts(input.Bulk, firstProgramYear, input.SubjectYear)
	if err != nil {
		return
	}

	b.WriteString("## Historical CVE Growth\n\n")
	fmt.Fprintf(b, "The number of CVEs published each year continues its upward trajectory. %d marks another year of significant growth in vulnerability disclosures.\n\n", input.SubjectYear)
	writeImage(b, input, "01_cves_by_year.png", "CVEs by Year")
	b.WriteString("The growth isn't uniform. Some years saw dramatic increases while others showed modest growth or even slight declines. The year-over-year growth rate provides a clearer picture of these fluctuations.\n\n")
	writeImage(b, input, "02_yoy_growth.png", "Year-over-Year Growth")

	if cumulative, err := stats.Cumulative(counts); err == nil {
		total := cumulative[len(cumulative)-1].Count
		fmt.Fprintf(b, "Looking at the cumulative total, we've now surpassed **%s CVEs** in the database.\n\n", thousands(total))
		writeImage(b, input, "03_cumulative_growth.png", "Cumulative Growth")
	}
	b.WriteString("---\n\n")
}

func writeMonthly(b *strings.Builder, input Input, subject []normalize.Record) {
	counts, err := stats.MonthlyCounts(subject, input.SubjectYear)
	if err != nil {
		return
	}

	peak := counts[0]
	for _, c := range counts {
		if c.Count > peak.Count {
			peak = c
		}
	}

	fmt.Fprintf(b, "## %d Monthly Distribution\n\n", input.SubjectYear)
	fmt.Fprintf(b, "CVE publications varied throughout %d, with **%s** being the peak month at **%s CVEs**.\n\n", input.SubjectYear, peak.Month, thousands(peak.Count))
	writeImage(b, input, "04_2025_monthly.png", "Monthly Distribution")
	b.WriteString("---\n\n")
}

func writeDayOfWeek(b *strings.Builder, input Input, subject []normalize.Record) {
	counts, err := stats.DayOfWeek(subject)
	if err != nil {
		return
	}

	peak := counts[0]
	tuesday := 0
	weekday, weekend := 0, 0
	for _, c := range counts {
		if c.Count > peak.Count {
			peak = c
		}
		if c.Day == time.Tuesday {
			tuesday = c.Count
		}
		if c.Day == time.Saturday || c.Day == time.Sunday {
			weekend += c.Count
		} else {
			weekday += c.Count
		}
	}

	b.WriteString("## Publication Patterns by Day of Week\n\n")
	fmt.Fprintf(b, "Looking at which days CVEs are published reveals interesting patterns. **%s** saw the most publications with **%s CVEs**.\n\n", peak.Day, thousands(peak.Count))
	writeImage(b, input, "16_day_of_week.png", "CVEs by Day of Week")
	fmt.Fprintf(b, "The \"Patch Tuesday\" effect is visible: Tuesday accounts for **%s CVEs**. Weekdays average **%s** CVEs compared to weekends at **%s**.\n\n",
		thousands(tuesday), thousands(weekday/5), thousands(weekend/2))
	b.WriteString("---\n\n")
}

func writeTopDays(b *strings.Builder, input Input, subject []normalize.Record) {
	peaks, err := stats.PeakDays(subject, 5)
	if err != nil {
		return
	}

	fmt.Fprintf(b, "## Busiest Days of %d\n\n", input.SubjectYear)
	b.WriteString("Some days saw massive spikes in CVE publications:\n\n")
	writeImage(b, input, "17_top_days.png", "Top Days")
	b.WriteString("### Top 5 Busiest Days\n\n| Rank | Date | CVE Count |\n|------|------|----------|\n")
	for i, peak := range peaks {
		fmt.Fprintf(b, "| %d | %s | %s |\n", i+1, peak.Date, thousands(peak.Count))
	}
	b.WriteString("\n---\n\n")
}

func writeTopProducts(b *strings.Builder, input Input) {
	entries, err := stats.TopN(subjectValues(input.Cvelist, input.SubjectYear, func(r normalize.Record) *string { return r.PrimaryProduct }), 5, true)
	if err != nil {
		return
	}

	b.WriteString("## Most Vulnerable Products\n\n")
	fmt.Fprintf(b, "Beyond vendors, specific products with the most CVEs in %d:\n\n", input.SubjectYear)
	writeImage(b, input, "18_top_products.png", "Top Products")
	b.WriteString("### Top 5 Products\n\n| Rank | Product | CVE Count |\n|------|---------|----------|\n")
	for i, entry := range entries {
		fmt.Fprintf(b, "| %d | %s | %s |\n", i+1, entry.Label, thousands(entry.Count))
	}
	b.WriteString("\n---\n\n")
}

func writeScores(b *strings.Builder, input Input, subject []normalize.Record) {
	avg, median, ok := scoreStats(subject)
	if !ok {
		return
	}

	b.WriteString("## CVSS Score Analysis\n\n")
	fmt.Fprintf(b, "The Common Vulnerability Scoring System (CVSS) helps standardize severity assessments. Here's how %d CVEs were distributed across the scoring range.\n\n", input.SubjectYear)
	writeImage(b, input, "05_cvss_distribution.png", "CVSS Distribution")
	fmt.Fprintf(b, "The **average CVSS score for %d was %.2f**, with a **median of %.2f**.\n\n", input.SubjectYear, avg, median)

	if counts, err := stats.SeverityCounts(subject); err == nil && len(subject) > 0 {
		b.WriteString("### Severity Breakdown\n\n| Severity | Count | Percentage |\n|----------|-------|------------|\n")
		for _, c := range counts {
			if c.Severity == normalize.SeverityNone {
				continue
			}
			share := float64(c.Count) / float64(len(subject)) * 100
			fmt.Fprintf(b, "| %s | %s | %s |\n", titleCase(string(c.Severity)), thousands(c.Count), pct(share, 1))
		}
		b.WriteString("\n")
		writeImage(b, input, "06_severity_breakdown.png", "Severity Breakdown")
	}

	if input.Images["13_cvss_by_year.png"] {
		b.WriteString("### CVSS Trends Over Time\n\n")
		writeImage(b, input, "13_cvss_by_year.png", "CVSS by Year")
	}
	b.WriteString("---\n\n")
}

func writeWeaknesses(b *strings.Builder, input Input, subject []normalize.Record) {
	ids := []string{}
	for _, record := range subject {
		if record.WeaknessID != nil {
			ids = append(ids, *record.WeaknessID)
		}
	}
	entries, err := stats.TopN(ids, 5, false)
	if err != nil {
		return
	}

	b.WriteString("## Top Weakness Types (CWE)\n\n")
	fmt.Fprintf(b, "The Common Weakness Enumeration (CWE) categorizes the types of security weaknesses. Here are the most prevalent weakness types in %d:\n\n", input.SubjectYear)
	writeImage(b, input, "07_top_cwes.png", "Top CWEs")
	fmt.Fprintf(b, "### Top 5 CWEs in %d\n\n| Rank | CWE | Name | Count |\n|------|-----|------|-------|\n", input.SubjectYear)
	for i, entry := range entries {
		fmt.Fprintf(b, "| %d | %s | %s | %s |\n", i+1, entry.Label, cweShortNames[entry.Label], thousands(entry.Count))
	}
	b.WriteString("\n---\n\n")
}

func writeAssigners(b *strings.Builder, input Input) {
	entries, err := stats.TopN(subjectValues(input.Cvelist, input.SubjectYear, func(r normalize.Record) *string { return r.AssignerName }), 5, false)
	if err != nil {
		return
	}

	b.WriteString("## CVE Numbering Authorities (CNAs)\n\n")
	b.WriteString("CVE Numbering Authorities are organizations authorized to assign CVE IDs. The ecosystem continues to grow with more organizations participating in coordinated vulnerability disclosure.\n\n")
	writeImage(b, input, "08_top_cnas.png", "Top CNAs")
	fmt.Fprintf(b, "### Top 5 CNAs in %d\n\n| Rank | CNA | CVEs Assigned |\n|------|-----|---------------|\n", input.SubjectYear)
	for i, entry := range entries {
		fmt.Fprintf(b, "| %d | %s | %s |\n", i+1, entry.Label, thousands(entry.Count))
	}
	if cnas := uniqueAssigners(input.Cvelist, input.SubjectYear); cnas > 0 {
		fmt.Fprintf(b, "\nIn total, **%d unique CNAs** assigned CVEs in %d.\n", cnas, input.SubjectYear)
	}
	b.WriteString("\n---\n\n")
}

func writeVendors(b *strings.Builder, input Input) {
	entries, err := stats.TopN(subjectValues(input.Cvelist, input.SubjectYear, func(r normalize.Record) *string { return r.PrimaryVendor }), 5, true)
	if err != nil {
		return
	}

	b.WriteString("## Top Vendors\n\n")
	fmt.Fprintf(b, "Which vendors had the most CVEs assigned to their products in %d?\n\n", input.SubjectYear)
	writeImage(b, input, "14_top_vendors.png", "Top Vendors")
	fmt.Fprintf(b, "### Top 5 Vendors in %d\n\n| Rank | Vendor | CVE Count |\n|------|--------|-----------|\n", input.SubjectYear)
	for i, entry := range entries {
		fmt.Fprintf(b, "| %d | %s | %s |\n", i+1, entry.Label, thousands(entry.Count))
	}
	b.WriteString("\n---\n\n")
}

func writeQuality(b *strings.Builder, input Input, subject []normalize.Record) {
	coverage := subjectCoverage(subject, input.SubjectYear)
	if coverage == nil {
		return
	}

	b.WriteString("## Data Quality\n\n")
	b.WriteString("Not all CVEs have complete metadata. Here's how data quality has evolved over the years:\n\n")
	writeImage(b, input, "09_data_quality.png", "Data Quality")
	fmt.Fprintf(b, "### %d Data Quality Metrics\n\n| Metric | Coverage |\n|--------|----------|\n", input.SubjectYear)
	fmt.Fprintf(b, "| CVSS Score | %s |\n", pct(coverage.ScorePct, 1))
	fmt.Fprintf(b, "| CWE Classification | %s |\n", pct(coverage.CWEPct, 1))
	fmt.Fprintf(b, "| CPE Identifiers | %s |\n", pct(coverage.CPEPct, 1))
	b.WriteString("\n---\n\n")
}

func writeRejected(b *strings.Builder, input Input) {
	b.WriteString("## Rejected CVEs\n\n")
	b.WriteString("Not all CVE IDs remain active. Some are rejected due to duplicates, disputes, or invalid submissions. Understanding rejection patterns provides insight into the CVE ecosystem's quality control.\n\n")

	rejectedRecords := utils.Filter(input.FullBulk, func(record normalize.Record) bool {
		return record.IsRejected
	})
	if len(rejectedRecords) == 0 {
		b.WriteString("*Rejection data analysis unavailable.*\n\n")
		return
	}

	rejectedSubject := utils.Filter(rejectedRecords, func(record normalize.Record) bool {
		return inYear(record, input.SubjectYear)
	})
	fullSubject := utils.Filter(input.FullBulk, func(record normalize.Record) bool {
		return inYear(record, input.SubjectYear)
	})

	writeImage(b, input, "10_rejected_cves.png", "Rejected CVEs")
	fmt.Fprintf(b, "### %d Rejection Statistics\n\n| Metric | Value |\n|--------|-------|\n", input.SubjectYear)
	fmt.Fprintf(b, "| Rejected CVEs in %d | %s |\n", input.SubjectYear, thousands(len(rejectedSubject)))
	fmt.Fprintf(b, "| %d Rejection Rate | %s |\n", input.SubjectYear, pct(stats.RejectionRate(fullSubject), 2))
	fmt.Fprintf(b, "| Total Rejected (All Time) | %s |\n\n", thousands(len(rejectedRecords)))

	b.WriteString("CVE rejections occur for several reasons:\n")
	b.WriteString("- **Duplicates**: The same vulnerability assigned multiple CVE IDs\n")
	b.WriteString("- **Disputes**: Vendor disagreement that the issue is a vulnerability\n")
	b.WriteString("- **Invalid**: Not a security vulnerability or insufficient information\n")
	b.WriteString("- **Withdrawn**: CVE withdrawn by the assigning CNA\n\n")
	b.WriteString("---\n\n")
}

func writeConclusions(b *strings.Builder, input Input, subject []normalize.Record) {
	b.WriteString("## Conclusions\n\n")
	fmt.Fprintf(b, "### Key Takeaways from %d\n\n", input.SubjectYear)
	fmt.Fprintf(b, "1. **Volume continues to grow**: With %s CVEs, %d set a new record in vulnerability disclosures.\n\n", thousands(len(subject)), input.SubjectYear)

	if counts, err := stats.SeverityCounts(subject); err == nil && len(subject) > 0 {
		severe := 0
		for _, c := range counts {
			if c.Severity == normalize.SeverityCritical || c.Severity == normalize.SeverityHigh {
				severe += c.Count
			}
		}
		share := float64(severe) / float64(len(subject)) * 100
		fmt.Fprintf(b, "2. **Severity remains concerning**: %s CVEs (%s) were rated Critical or High severity.\n\n", thousands(severe), pct(share, 1))
	}

	b.WriteString("3. **Common weaknesses persist**: Memory safety issues and web application vulnerabilities continue to dominate the top CWE list.\n\n")
	b.WriteString("4. **Ecosystem expansion**: The growing number of CNAs reflects broader participation in coordinated vulnerability disclosure.\n\n")
	b.WriteString("5. **Data quality challenges**: While improving, a significant portion of CVEs still lack complete CVSS, CWE, or CPE data.\n\n")
	b.WriteString("---\n\n")
}

func writeMethodology(b *strings.Builder, year int) {
	b.WriteString("## Methodology\n\n")
	b.WriteString("This analysis uses two primary data sources:\n\n")
	b.WriteString("1. **NVD JSON** - National Vulnerability Database export from [nvd.handsonhacking.org](https://nvd.handsonhacking.org/nvd.json)\n")
	b.WriteString("2. **CVE List V5** - Official CVE records from [GitHub CVEProject/cvelistV5](https://github.com/CVEProject/cvelistV5)\n\n")
	b.WriteString("---\n\n")
	fmt.Fprintf(b, "*Thank you for reading the %d CVE Data Review!*\n\n", year)
	fmt.Fprintf(b, "*Data collected and analyzed on December 31, %d.*\n", year)
}

func writeImage(b *strings.Builder, input Input, name, alt string) {
	if input.Images != nil && !input.Images[name] {
		return
	}
	fmt.Fprintf(b, "![%s](graphs/%s)\n\n", alt, name)
}

func inYear(record normalize.Record, year int) bool {
	return utils.OrDefault(record.AttributionYear, 0) == year
}

func subjectValues(records []normalize.Record, year int, pick func(normalize.Record) *string) []string {
	values := []string{}
	for _, record := range records {
		if inYear(record, year) {
			if v := pick(record); v != nil {
				values = append(values, *v)
			}
		}
	}
	return values
}

func uniqueAssigners(records []normalize.Record, year int) int {
	seen := map[string]bool{}
	for _, record := range records {
		if inYear(record, year) && record.AssignerName != nil {
			seen[*record.AssignerName] = true
		}
	}
	return len(seen)
}

func scoreStats(records []normalize.Record) (avg, median float64, ok bool) {
	scores := []float64{}
	for _, record := range records {
		if score := stats.BestScore(record); score != nil {
			scores = append(scores, *score)
		}
	}
	if len(scores) == 0 {
		return 0, 0, false
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	sort.Float64s(scores)
	median = scores[len(scores)/2]
	if len(scores)%2 == 0 {
		median = (scores[len(scores)/2-1] + scores[len(scores)/2]) / 2
	}
	return sum / float64(len(scores)), median, true
}

func subjectCoverage(subject []normalize.Record, year int) *stats.CoveragePoint {
	points, err := stats.Coverage(subject, year, year)
	if err != nil || len(points) == 0 || points[0].TotalCount == 0 {
		return nil
	}
	return &points[0]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// short names for the CWE table, kept in sync with the chart labels
var cweShortNames = map[string]string{
	"CWE-79":  "XSS",
	"CWE-89":  "SQL Injection",
	"CWE-787": "OOB Write",
	"CWE-125": "OOB Read",
	"CWE-20":  "Input Validation",
	"CWE-22":  "Path Traversal",
	"CWE-352": "CSRF",
	"CWE-78":  "Command Injection",
	"CWE-416": "Use After Free",
	"CWE-190": "Integer Overflow",
	"CWE-476": "NULL Pointer",
	"CWE-119": "Buffer Overflow",
	"CWE-200": "Info Exposure",
	"CWE-400": "Resource Exhaustion",
	"CWE-434": "File Upload",
	"CWE-863": "Auth Bypass",
	"CWE-918": "SSRF",
	"CWE-94":  "Code Injection",
}
