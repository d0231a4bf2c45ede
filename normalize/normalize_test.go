package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSchema(t *testing.T) {
	t.Run("should detect the current nvd shape", func(t *testing.T) {
		raw := []byte(`{"cve": {"id": "CVE-2025-0001"}}`)
		assert.Equal(t, SchemaNVDCurrent, DetectSchema(raw))
	})

	t.Run("should detect the legacy nvd shape", func(t *testing.T) {
		raw := []byte(`{"cve": {"CVE_data_meta": {"ID": "CVE-2017-0001"}}}`)
		assert.Equal(t, SchemaNVDLegacy, DetectSchema(raw))
	})

	t.Run("should detect the cve5 shape", func(t *testing.T) {
		raw := []byte(`{"cveMetadata": {"cveId": "CVE-2025-0001"}, "containers": {"cna": {}}}`)
		assert.Equal(t, SchemaCVE5, DetectSchema(raw))
	})

	t.Run("should return unknown for anything else", func(t *testing.T) {
		assert.Equal(t, SchemaUnknown, DetectSchema([]byte(`{"foo": "bar"}`)))
		assert.Equal(t, SchemaUnknown, DetectSchema([]byte(`not json`)))
	})

	t.Run("should be deterministic for the same bytes", func(t *testing.T) {
		raw := []byte(`{"cve": {"id": "CVE-2025-0001"}}`)
		assert.Equal(t, DetectSchema(raw), DetectSchema(raw))
	})
}

func TestFromRawNVDCurrent(t *testing.T) {
	t.Run("should prefer the v4 score and severity over everything else", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"published": "2025-03-01T10:00:00.000",
			"metrics": {
				"cvssMetricV40": [{"cvssData": {"baseScore": 9.3, "baseSeverity": "CRITICAL"}}],
				"cvssMetricV31": [{"cvssData": {"baseScore": 5.0, "baseSeverity": "MEDIUM"}}],
				"cvssMetricV2": [{"cvssData": {"baseScore": 4.0}, "baseSeverity": "MEDIUM"}]
			}
		}}`)
		result := FromRaw(raw)
		assert.False(t, result.Skipped())

		record := result.Record
		assert.Equal(t, 9.3, *record.CVSSV4)
		assert.Equal(t, 5.0, *record.CVSSV3)
		assert.Equal(t, 4.0, *record.CVSSV2)
		assert.Equal(t, SeverityCritical, *record.Severity)
	})

	t.Run("should fall back to v3.0 when no v3.1 metric exists", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"metrics": {
				"cvssMetricV30": [{"cvssData": {"baseScore": 6.5, "baseSeverity": "MEDIUM"}}]
			}
		}}`)
		record := FromRaw(raw).Record
		assert.Equal(t, 6.5, *record.CVSSV3)
		assert.Equal(t, SeverityMedium, *record.Severity)
	})

	t.Run("should derive the severity from the score when no label exists", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"metrics": {
				"cvssMetricV2": [{"cvssData": {"baseScore": 7.5}}]
			}
		}}`)
		record := FromRaw(raw).Record
		assert.Equal(t, SeverityHigh, *record.Severity)
	})

	t.Run("should leave the severity nil when no score exists at all", func(t *testing.T) {
		raw := []byte(`{"cve": {"id": "CVE-2025-1234"}}`)
		record := FromRaw(raw).Record
		assert.Nil(t, record.Severity)
		assert.Nil(t, record.CVSSV2)
		assert.Nil(t, record.CVSSV3)
		assert.Nil(t, record.CVSSV4)
	})

	t.Run("should pick the first cwe identifier and skip placeholders", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"weaknesses": [
				{"description": [{"lang": "en", "value": "NVD-CWE-noinfo"}]},
				{"description": [{"lang": "en", "value": "CWE-79"}]}
			]
		}}`)
		record := FromRaw(raw).Record
		assert.Equal(t, "CWE-79", *record.WeaknessID)
	})

	t.Run("should record cpe presence without attributing vendors", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"configurations": [{"nodes": [{"cpeMatch": [
				{"criteria": "cpe:2.3:a:apache:http_server:2.4.1:*:*:*:*:*:*:*"},
				{"criteria": "cpe:2.3:a:apache:tomcat:9.0:*:*:*:*:*:*:*"}
			]}]}]
		}}`)
		record := FromRaw(raw).Record
		assert.True(t, record.HasCPE)
		// vendor and product attribution comes from the record corpus only
		assert.Equal(t, 0, record.VendorCount)
		assert.Equal(t, 0, record.ProductCount)
		assert.Nil(t, record.PrimaryVendor)
		assert.Nil(t, record.PrimaryProduct)
	})

	t.Run("should flag a rejected description even when the status says analyzed", func(t *testing.T) {
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"vulnStatus": "Analyzed",
			"descriptions": [{"lang": "en", "value": "** REJECTED ** DO NOT USE THIS CVE."}]
		}}`)
		record := FromRaw(raw).Record
		assert.True(t, record.IsRejected)
		assert.Equal(t, StateRejected, record.LifecycleState)
	})

	t.Run("should flag a rejection marker past the truncation point", func(t *testing.T) {
		long := strings.Repeat("a", 600) + " ** REJECTED ** DO NOT USE THIS CVE."
		raw := []byte(`{"cve": {
			"id": "CVE-2025-1234",
			"vulnStatus": "Analyzed",
			"descriptions": [{"lang": "en", "value": "` + long + `"}]
		}}`)
		record := FromRaw(raw).Record
		assert.True(t, record.IsRejected)
		assert.Len(t, []rune(record.Description), 500)
	})

	t.Run("should skip an entry without an id", func(t *testing.T) {
		result := FromRaw([]byte(`{"cve": {"id": ""}}`))
		assert.True(t, result.Skipped())
		assert.Equal(t, SkipUnknownSchema, result.Reason)
	})
}

func TestFromRawNVDLegacy(t *testing.T) {
	t.Run("should map the legacy impact block", func(t *testing.T) {
		raw := []byte(`{
			"cve": {
				"CVE_data_meta": {"ID": "CVE-2017-0144"},
				"description": {"description_data": [{"lang": "en", "value": "SMBv1 remote code execution."}]},
				"problemtype": {"problemtype_data": [{"description": [{"lang": "en", "value": "CWE-20"}]}]},
				"references": {"reference_data": [{"url": "https://example.com"}]}
			},
			"impact": {
				"baseMetricV3": {"cvssV3": {"baseScore": 8.1, "baseSeverity": "HIGH"}},
				"baseMetricV2": {"cvssV2": {"baseScore": 9.3}, "severity": "HIGH"}
			},
			"publishedDate": "2017-03-16T19:59Z"
		}`)
		result := FromRaw(raw)
		assert.False(t, result.Skipped())

		record := result.Record
		assert.Equal(t, "CVE-2017-0144", record.ID)
		assert.Equal(t, 8.1, *record.CVSSV3)
		assert.Equal(t, 9.3, *record.CVSSV2)
		assert.Equal(t, SeverityHigh, *record.Severity)
		assert.Equal(t, "CWE-20", *record.WeaknessID)
		assert.Equal(t, 1, record.ReferenceCount)
		assert.Equal(t, 2017, *record.AttributionYear)
	})

	t.Run("should not invent scores when the impact block is absent", func(t *testing.T) {
		raw := []byte(`{"cve": {"CVE_data_meta": {"ID": "CVE-2005-1000"}}}`)
		record := FromRaw(raw).Record
		assert.Nil(t, record.CVSSV2)
		assert.Nil(t, record.CVSSV3)
		assert.Nil(t, record.Severity)
	})
}

func TestFromRawCVE5(t *testing.T) {
	t.Run("should map metadata, affected and metrics", func(t *testing.T) {
		raw := []byte(`{
			"cveMetadata": {
				"cveId": "CVE-2025-5678",
				"state": "PUBLISHED",
				"assignerOrgId": "8254265b-2729-46b6-b9e3-3dfca2d5bfca",
				"assignerShortName": "mitre",
				"dateReserved": "2025-01-02T00:00:00.000Z",
				"datePublished": "2025-02-03T12:00:00.000Z",
				"dateUpdated": "2025-02-04T12:00:00.000Z"
			},
			"containers": {"cna": {
				"descriptions": [
					{"lang": "de", "value": "nicht relevant"},
					{"lang": "en", "value": "A heap overflow in the parser."}
				],
				"metrics": [
					{"cvssV3_1": {"baseScore": 7.5, "baseSeverity": "HIGH"}},
					{"cvssV4_0": {"baseScore": 8.8, "baseSeverity": "HIGH"}}
				],
				"affected": [
					{"vendor": "acme", "product": "widget"},
					{"vendor": "acme", "product": "gadget"}
				],
				"references": [{"url": "https://example.com/a"}, {"url": "https://example.com/b"}]
			}}
		}`)
		result := FromRaw(raw)
		assert.False(t, result.Skipped())

		record := result.Record
		assert.Equal(t, "CVE-2025-5678", record.ID)
		assert.Equal(t, "mitre", *record.AssignerName)
		assert.Equal(t, "A heap overflow in the parser.", record.Description)
		assert.Equal(t, 8.8, *record.CVSSV4)
		assert.Equal(t, 7.5, *record.CVSSV3)
		assert.Equal(t, SeverityHigh, *record.Severity)
		assert.Equal(t, 1, record.VendorCount)
		assert.Equal(t, 2, record.ProductCount)
		assert.Equal(t, "acme", *record.PrimaryVendor)
		assert.Equal(t, "widget", *record.PrimaryProduct)
		assert.Equal(t, 2, record.ReferenceCount)
		assert.NotNil(t, record.ReservedAt)
		assert.Equal(t, 2025, *record.AttributionYear)
		assert.Equal(t, StatePublished, record.LifecycleState)
		assert.False(t, record.IsRejected)
	})

	t.Run("should fall back to rejectedReasons for the description", func(t *testing.T) {
		raw := []byte(`{
			"cveMetadata": {"cveId": "CVE-2025-0002", "state": "REJECTED"},
			"containers": {"cna": {
				"rejectedReasons": [{"lang": "en", "value": "Duplicate of CVE-2025-0001."}]
			}}
		}`)
		record := FromRaw(raw).Record
		assert.Equal(t, "Duplicate of CVE-2025-0001.", record.Description)
		assert.True(t, record.IsRejected)
		assert.Equal(t, StateRejected, record.LifecycleState)
	})

	t.Run("should attribute by id year when no publish date exists", func(t *testing.T) {
		raw := []byte(`{
			"cveMetadata": {"cveId": "CVE-2024-9999", "state": "RESERVED"},
			"containers": {"cna": {}}
		}`)
		record := FromRaw(raw).Record
		assert.Nil(t, record.PublishedAt)
		assert.Equal(t, 2024, *record.AttributionYear)
		assert.Equal(t, StateReserved, record.LifecycleState)
	})
}

func TestTruncateDescription(t *testing.T) {
	t.Run("should keep short descriptions untouched", func(t *testing.T) {
		assert.Equal(t, "short", truncateDescription("short"))
	})

	t.Run("should cut at 500 runes, not bytes", func(t *testing.T) {
		long := strings.Repeat("ä", 600)
		got := truncateDescription(long)
		assert.Equal(t, 500, len([]rune(got)))
	})
}

func TestStreamBulk(t *testing.T) {
	countEntries := func(t *testing.T, payload string) int {
		t.Helper()
		count := 0
		err := StreamBulk(strings.NewReader(payload), func(raw json.RawMessage) error {
			count++
			return nil
		})
		assert.NoError(t, err)
		return count
	}

	t.Run("should handle a bare array", func(t *testing.T) {
		assert.Equal(t, 2, countEntries(t, `[{"cve": {"id": "CVE-2025-1"}}, {"cve": {"id": "CVE-2025-2"}}]`))
	})

	t.Run("should handle the vulnerabilities envelope", func(t *testing.T) {
		payload := `{"resultsPerPage": 2, "vulnerabilities": [{"cve": {"id": "CVE-2025-1"}}, {"cve": {"id": "CVE-2025-2"}}]}`
		assert.Equal(t, 2, countEntries(t, payload))
	})

	t.Run("should handle the CVE_Items envelope", func(t *testing.T) {
		payload := `{"CVE_data_format": "MITRE", "CVE_Items": [{"cve": {"CVE_data_meta": {"ID": "CVE-2017-1"}}}]}`
		assert.Equal(t, 1, countEntries(t, payload))
	})

	t.Run("should error on an envelope without an entry array", func(t *testing.T) {
		err := StreamBulk(strings.NewReader(`{"foo": 1}`), func(raw json.RawMessage) error { return nil })
		assert.Error(t, err)
	})
}

func TestParseBulk(t *testing.T) {
	t.Run("should count skips instead of aborting", func(t *testing.T) {
		payload := `[
			{"cve": {"id": "CVE-2025-1"}},
			{"unknown": "shape"},
			{"cve": {"id": "CVE-2025-2"}}
		]`
		records, report, err := ParseBulk(strings.NewReader(payload))
		assert.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 2, report.Parsed)
		assert.Equal(t, 1, report.Skipped[SkipUnknownSchema])
		assert.Equal(t, 1, report.TotalSkipped())
	})
}
