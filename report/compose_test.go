package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/utils"
)

func reportRecord(year int) normalize.Record {
	published := time.Date(year, time.June, 3, 10, 0, 0, 0, time.UTC)
	return normalize.Record{
		ID:              "CVE-0000-1",
		AttributionYear: utils.Ptr(year),
		PublishedAt:     &published,
		CVSSV3:          utils.Ptr(8.0),
		Severity:        utils.Ptr(normalize.SeverityHigh),
		WeaknessID:      utils.Ptr("CWE-79"),
		PrimaryVendor:   utils.Ptr("acme"),
		PrimaryProduct:  utils.Ptr("widget"),
		AssignerName:    utils.Ptr("mitre"),
		LifecycleState:  normalize.StatePublished,
		HasCPE:          true,
	}
}

func TestPrepare(t *testing.T) {
	t.Run("should drop rejected records and records past the subject year", func(t *testing.T) {
		rejected := reportRecord(2025)
		rejected.IsRejected = true
		future := reportRecord(2026)

		prepared := Prepare([]normalize.Record{reportRecord(2025), rejected, future, reportRecord(2024)}, 2025)
		assert.Len(t, prepared, 2)
		for _, record := range prepared {
			assert.False(t, record.IsRejected)
			assert.LessOrEqual(t, *record.AttributionYear, 2025)
		}
	})
}

func TestCompose(t *testing.T) {
	records := []normalize.Record{
		reportRecord(2024),
		reportRecord(2024),
		reportRecord(2025),
		reportRecord(2025),
		reportRecord(2025),
	}
	rejected := reportRecord(2025)
	rejected.IsRejected = true

	input := Input{
		Bulk:        records,
		FullBulk:    append(append([]normalize.Record{}, records...), rejected),
		Cvelist:     records,
		SubjectYear: 2025,
		Images: map[string]bool{
			"01_cves_by_year.png": true,
			"06_severity_breakdown.png": true,
		},
	}

	t.Run("should lead with the headline numbers", func(t *testing.T) {
		blog, err := Compose(input)
		assert.NoError(t, err)
		assert.Contains(t, blog, "# 2025 CVE Data Review")
		assert.Contains(t, blog, "**2025 saw 3 CVEs published**, an increase of **50.0%**")
		assert.Contains(t, blog, "| Year-over-Year Change | +50.0% |")
	})

	t.Run("should only reference images that were produced", func(t *testing.T) {
		blog, err := Compose(input)
		assert.NoError(t, err)
		assert.Contains(t, blog, "graphs/01_cves_by_year.png")
		assert.NotContains(t, blog, "graphs/02_yoy_growth.png")
	})

	t.Run("should include the rejection statistics from the full set", func(t *testing.T) {
		blog, err := Compose(input)
		assert.NoError(t, err)
		assert.Contains(t, blog, "| Rejected CVEs in 2025 | 1 |")
		assert.Contains(t, blog, "| 2025 Rejection Rate | 25.00% |")
	})

	t.Run("should omit the cvelist sections without cvelist data", func(t *testing.T) {
		bare := input
		bare.Cvelist = nil
		blog, err := Compose(bare)
		assert.NoError(t, err)
		assert.NotContains(t, blog, "## Top Vendors")
		assert.NotContains(t, blog, "## CVE Numbering Authorities")
	})

	t.Run("should error without any records", func(t *testing.T) {
		_, err := Compose(Input{SubjectYear: 2025})
		assert.Error(t, err)
	})
}

func TestThousands(t *testing.T) {
	t.Run("should group digits", func(t *testing.T) {
		assert.Equal(t, "0", thousands(0))
		assert.Equal(t, "999", thousands(999))
		assert.Equal(t, "1,000", thousands(1000))
		assert.Equal(t, "1,234,567", thousands(1234567))
		assert.Equal(t, "-41,250", thousands(-41250))
	})
}

func TestComposeSeverityTable(t *testing.T) {
	t.Run("should render percentages against the subject total", func(t *testing.T) {
		records := []normalize.Record{reportRecord(2025), reportRecord(2025)}
		blog, err := Compose(Input{Bulk: records, FullBulk: records, SubjectYear: 2025})
		assert.NoError(t, err)
		assert.True(t, strings.Contains(blog, "| High | 2 | 100.0% |"))
	})
}
