package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/stats"
	"github.com/jgamblin/2025CVEBlog/utils"
)

func sampleRecords() []normalize.Record {
	published := time.Date(2025, time.February, 3, 12, 0, 0, 0, time.UTC)
	reserved := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	return []normalize.Record{
		{
			ID:              "CVE-2025-0001",
			AttributionYear: utils.Ptr(2025),
			IDYear:          utils.Ptr(2025),
			PublishedAt:     &published,
			ReservedAt:      &reserved,
			Description:     "A heap overflow, with a \"quoted, comma\" part.",
			CVSSV3:          utils.Ptr(7.5),
			Severity:        utils.Ptr(normalize.SeverityHigh),
			WeaknessID:      utils.Ptr("CWE-122"),
			ReferenceCount:  3,
			VendorCount:     1,
			ProductCount:    2,
			PrimaryVendor:   utils.Ptr("acme"),
			PrimaryProduct:  utils.Ptr("widget"),
			AssignerName:    utils.Ptr("mitre"),
			LifecycleState:  normalize.StatePublished,
			HasCPE:          true,
		},
		{
			// sparse record: nothing optional set
			ID:             "CVE-2025-0002",
			LifecycleState: normalize.StateReserved,
		},
	}
}

func TestCSVRoundtrip(t *testing.T) {
	t.Run("should survive a write and read unchanged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table.csv")
		want := sampleRecords()

		assert.NoError(t, WriteCSV(path, want))
		got, err := ReadCSV(path)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("should keep nil and empty apart only where representable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table.csv")
		assert.NoError(t, WriteCSV(path, []normalize.Record{{ID: "CVE-2025-3"}}))
		got, err := ReadCSV(path)
		assert.NoError(t, err)
		assert.Nil(t, got[0].Severity)
		assert.Nil(t, got[0].PublishedAt)
		assert.Nil(t, got[0].CVSSV3)
	})

	t.Run("should resolve columns by header name, not position", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table.csv")
		content := "cvss_v3,cve_id,severity,reference_count,attribution_year,id_year,published_at,modified_at,reserved_at,description,cvss_v2,cvss_v4,cwe_id,product_count,vendor_count,primary_vendor,primary_product,assigner_id,assigner_name,lifecycle_state,is_rejected,has_cpe\n" +
			"9.8,CVE-2025-7,CRITICAL,3,2025,2025,,,,,,,,0,0,,,,,PUBLISHED,false,false\n"
		assert.NoError(t, os.WriteFile(path, []byte(content), 0600))

		got, err := ReadCSV(path)
		assert.NoError(t, err)
		assert.Equal(t, "CVE-2025-7", got[0].ID)
		assert.Equal(t, 9.8, *got[0].CVSSV3)
		assert.Equal(t, normalize.SeverityCritical, *got[0].Severity)
		assert.Equal(t, 3, got[0].ReferenceCount)
	})

	t.Run("should error on a missing column instead of mis-parsing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table.csv")
		assert.NoError(t, os.WriteFile(path, []byte("cve_id,severity\nCVE-2025-7,HIGH\n"), 0600))

		_, err := ReadCSV(path)
		assert.ErrorContains(t, err, "missing column")
	})
}

func TestParquetRoundtrip(t *testing.T) {
	t.Run("should survive a write and read unchanged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table.parquet")
		want := sampleRecords()

		assert.NoError(t, WriteParquet(path, want))
		got, err := ReadParquet(path)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestSaveAndLoad(t *testing.T) {
	t.Run("should write both twins and load parquet first", func(t *testing.T) {
		dir := t.TempDir()
		want := sampleRecords()

		assert.NoError(t, Save(dir, BulkTable, want))
		assert.FileExists(t, filepath.Join(dir, "nvd_cves.parquet"))
		assert.FileExists(t, filepath.Join(dir, "nvd_cves.csv"))

		got, err := Load(dir, BulkTable)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("should fall back to csv when parquet is missing", func(t *testing.T) {
		dir := t.TempDir()
		want := sampleRecords()
		assert.NoError(t, WriteCSV(filepath.Join(dir, "cvelist_v5.csv"), want))

		got, err := Load(dir, CvelistTable)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("should error when neither twin exists", func(t *testing.T) {
		_, err := Load(t.TempDir(), BulkTable)
		assert.Error(t, err)
	})
}

func TestWriteCNATable(t *testing.T) {
	t.Run("should write one row per assigner", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cna_stats.csv")
		rows := []stats.CNARow{
			{Assigner: "mitre", Total: 10, Published: 8, Rejected: 2, HasCVSS: 7, HasCWE: 5},
		}
		assert.NoError(t, WriteCNATable(path, rows))

		content, err := os.ReadFile(path)
		assert.NoError(t, err)
		assert.Contains(t, string(content), "assigner,total,published,rejected,has_cvss,has_cwe")
		assert.Contains(t, string(content), "mitre,10,8,2,7,5")
	})
}
