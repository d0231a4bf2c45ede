package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/jgamblin/2025CVEBlog/normalize"
)

// Summary is the machine-readable digest written next to the charts so
// other tooling does not have to re-run the aggregation.
type Summary struct {
	SubjectYear      int            `json:"subject_year"`
	GeneratedAt      time.Time      `json:"generated_at"`
	TotalRecords     int            `json:"total_cves"`
	PublishedRecords int            `json:"published_cves"`
	RejectedRecords  int            `json:"rejected_cves"`
	RejectionRatePct float64        `json:"rejection_rate_pct"`
	YoYChangePct     *float64       `json:"yoy_change_pct"`
	AveragePerDay    float64        `json:"avg_cves_per_day"`
	BusiestDay       *DateCount     `json:"busiest_day,omitempty"`
	SeverityCounts   map[string]int `json:"severity_counts"`
	TopWeakness      *string        `json:"top_cwe,omitempty"`
	TopVendor        *string        `json:"top_vendor,omitempty"`
}

// BuildSummary condenses the bulk feed into the subject-year digest. Vendor
// attribution only exists in the record corpus, so the top vendor is taken
// from the cvelist set.
func BuildSummary(records []normalize.Record, cvelist []normalize.Record, year int) Summary {
	summary := Summary{
		SubjectYear:    year,
		GeneratedAt:    time.Now().UTC(),
		SeverityCounts: map[string]int{},
	}

	subject := []normalize.Record{}
	previous := 0
	lastDay := 0
	for _, record := range records {
		if record.AttributionYear == nil {
			continue
		}
		switch *record.AttributionYear {
		case year:
			subject = append(subject, record)
		case year - 1:
			previous++
		}
	}

	summary.TotalRecords = len(subject)
	for _, record := range subject {
		if record.IsRejected {
			summary.RejectedRecords++
		} else {
			summary.PublishedRecords++
		}
		if record.Severity != nil {
			summary.SeverityCounts[string(*record.Severity)]++
		}
		if record.PublishedAt != nil && record.PublishedAt.Year() == year && record.PublishedAt.YearDay() > lastDay {
			lastDay = record.PublishedAt.YearDay()
		}
	}
	summary.RejectionRatePct = RejectionRate(subject)

	if previous > 0 {
		change := (float64(summary.TotalRecords) - float64(previous)) / float64(previous) * 100
		summary.YoYChangePct = &change
	}
	if lastDay > 0 {
		summary.AveragePerDay = float64(summary.TotalRecords) / float64(lastDay)
	}

	if peaks, err := PeakDays(subject, 1); err == nil {
		summary.BusiestDay = &peaks[0]
	}

	weaknesses := []string{}
	for _, record := range subject {
		if record.WeaknessID != nil {
			weaknesses = append(weaknesses, *record.WeaknessID)
		}
	}
	if top, err := TopN(weaknesses, 1, false); err == nil {
		summary.TopWeakness = &top[0].Label
	}

	vendors := []string{}
	for _, record := range cvelist {
		if record.AttributionYear != nil && *record.AttributionYear == year && record.PrimaryVendor != nil {
			vendors = append(vendors, *record.PrimaryVendor)
		}
	}
	if top, err := TopN(vendors, 1, true); err == nil {
		summary.TopVendor = &top[0].Label
	}

	return summary
}

// WriteFile serializes the summary as indented json.
func (s Summary) WriteFile(path string) error {
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "could not create summary directory")
	}
	return errors.Wrap(os.WriteFile(path, content, 0644), "could not write summary")
}
