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

package normalize

import (
	"encoding/json"
	"strings"

	"github.com/jgamblin/2025CVEBlog/utils"
)

func fromCVE5(raw []byte) Result {
	var rec cve5Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Skip(SkipInvalidJSON, err.Error())
	}
	meta := rec.CveMetadata
	if meta.CveID == "" {
		return Skip(SkipMissingID, "empty cveMetadata.cveId")
	}
	cna := rec.Containers.Cna

	record := &Record{
		ID:           meta.CveID,
		PublishedAt:  utils.ParseTime(meta.DatePublished),
		ModifiedAt:   utils.ParseTime(meta.DateUpdated),
		ReservedAt:   utils.ParseTime(meta.DateReserved),
		AssignerID:   utils.EmptyThenNil(meta.AssignerOrgID),
		AssignerName: utils.EmptyThenNil(meta.AssignerShortName),
	}
	record.IDYear = idYear(meta.CveID)
	record.AttributionYear = attributionYear(record.PublishedAt, meta.CveID)

	description := firstEnglish(cna.Descriptions)
	if description == "" {
		// rejected records describe themselves in rejectedReasons instead
		description = firstEnglish(cna.RejectedReasons)
	}
	record.Description = truncateDescription(description)

	// the metrics array interleaves versions; take the first block per
	// version and apply the usual precedence for severity.
	for _, metric := range cna.Metrics {
		if metric.CvssV4_0 != nil && record.CVSSV4 == nil {
			record.CVSSV4 = ptr(metric.CvssV4_0.BaseScore)
		}
		if metric.CvssV3_1 != nil && record.CVSSV3 == nil {
			record.CVSSV3 = ptr(metric.CvssV3_1.BaseScore)
		}
		if metric.CvssV2_0 != nil && record.CVSSV2 == nil {
			record.CVSSV2 = ptr(metric.CvssV2_0.BaseScore)
		}
	}
	if record.CVSSV3 == nil {
		for _, metric := range cna.Metrics {
			if metric.CvssV3_0 != nil {
				record.CVSSV3 = ptr(metric.CvssV3_0.BaseScore)
				break
			}
		}
	}
	for _, pick := range []func(cve5Metric) *cve5ScoreBlock{
		func(m cve5Metric) *cve5ScoreBlock { return m.CvssV4_0 },
		func(m cve5Metric) *cve5ScoreBlock { return m.CvssV3_1 },
		func(m cve5Metric) *cve5ScoreBlock { return m.CvssV3_0 },
		func(m cve5Metric) *cve5ScoreBlock { return m.CvssV2_0 },
	} {
		if record.Severity != nil {
			break
		}
		for _, metric := range cna.Metrics {
			if block := pick(metric); block != nil {
				if severity := normalizeSeverity(block.BaseSeverity); severity != nil {
					record.Severity = severity
					break
				}
			}
		}
	}
	backfillSeverity(record)

outer:
	for _, problemType := range cna.ProblemTypes {
		for _, desc := range problemType.Descriptions {
			cwe := strings.TrimSpace(desc.CweID)
			if cwe == "" && strings.HasPrefix(strings.TrimSpace(desc.Description), "CWE-") {
				cwe = strings.TrimSpace(desc.Description)
			}
			if strings.HasPrefix(cwe, "CWE-") {
				record.WeaknessID = ptr(cwe)
				break outer
			}
		}
	}

	record.ReferenceCount = len(cna.References)

	vendors := []string{}
	products := []string{}
	for _, affected := range cna.Affected {
		if vendor := strings.TrimSpace(affected.Vendor); vendor != "" {
			vendors = append(vendors, vendor)
		}
		if product := strings.TrimSpace(affected.Product); product != "" {
			products = append(products, product)
		}
	}
	vendors = utils.UniqBy(vendors, func(v string) string { return v })
	products = utils.UniqBy(products, func(p string) string { return p })
	record.VendorCount = len(vendors)
	record.ProductCount = len(products)
	if len(vendors) > 0 {
		record.PrimaryVendor = ptr(vendors[0])
	}
	if len(products) > 0 {
		record.PrimaryProduct = ptr(products[0])
	}

	record.LifecycleState = canonicalState(meta.State)
	// the marker scan runs on the full text, the stored description may be
	// truncated before the phrase appears
	record.IsRejected = rejected(meta.State, description)
	if record.IsRejected {
		record.LifecycleState = StateRejected
	}
	return Ok(*record)
}
