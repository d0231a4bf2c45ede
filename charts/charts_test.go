package charts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/utils"
)

func chartRecord(year int, severity normalize.Severity) normalize.Record {
	published := time.Date(year, time.May, 10, 9, 0, 0, 0, time.UTC)
	reserved := published.AddDate(0, 0, -30)
	return normalize.Record{
		ID:              "CVE-0000-1234",
		AttributionYear: utils.Ptr(year),
		PublishedAt:     &published,
		ReservedAt:      &reserved,
		CVSSV3:          utils.Ptr(7.5),
		Severity:        utils.Ptr(severity),
		WeaknessID:      utils.Ptr("CWE-79"),
		PrimaryVendor:   utils.Ptr("acme"),
		PrimaryProduct:  utils.Ptr("widget"),
		AssignerName:    utils.Ptr("mitre"),
		LifecycleState:  normalize.StatePublished,
		HasCPE:          true,
	}
}

func TestRenderAll(t *testing.T) {
	t.Run("should write every chart that has data", func(t *testing.T) {
		records := []normalize.Record{
			chartRecord(2024, normalize.SeverityHigh),
			chartRecord(2025, normalize.SeverityCritical),
			chartRecord(2025, normalize.SeverityHigh),
		}
		rejected := chartRecord(2025, normalize.SeverityNone)
		rejected.IsRejected = true

		dir := t.TempDir()
		produced, err := RenderAll(DefaultStyle(), dir, Inputs{
			Bulk:        records,
			FullBulk:    append(records, rejected),
			Cvelist:     records,
			SubjectYear: 2025,
		})
		assert.NoError(t, err)
		assert.Contains(t, produced, "01_cves_by_year.png")
		assert.Contains(t, produced, "10_rejected_cves.png")
		assert.Contains(t, produced, "18_top_products.png")
		for _, name := range produced {
			assert.FileExists(t, filepath.Join(dir, name))
		}
	})

	t.Run("should skip charts without data instead of failing", func(t *testing.T) {
		dir := t.TempDir()
		produced, err := RenderAll(DefaultStyle(), dir, Inputs{
			Bulk:        []normalize.Record{chartRecord(2025, normalize.SeverityHigh)},
			SubjectYear: 2025,
		})
		assert.NoError(t, err)
		// cvelist charts have nothing to draw
		assert.NotContains(t, produced, "08_top_cnas.png")
		assert.NotContains(t, produced, "14_top_vendors.png")
	})
}

func TestStyle(t *testing.T) {
	t.Run("should resolve short names for common weaknesses", func(t *testing.T) {
		style := DefaultStyle()
		assert.Equal(t, "XSS", style.CWELabel("CWE-79"))
		assert.Equal(t, "CWE-9999", style.CWELabel("CWE-9999"))
	})
}
