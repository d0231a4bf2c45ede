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

func fromNVDCurrent(raw []byte) Result {
	var item nvdItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Skip(SkipInvalidJSON, err.Error())
	}
	cve := item.Cve
	if cve.ID == "" {
		return Skip(SkipMissingID, "empty cve.id")
	}

	description := firstEnglish(cve.Descriptions)
	record := &Record{
		ID:          cve.ID,
		PublishedAt: utils.ParseTime(cve.Published),
		ModifiedAt:  utils.ParseTime(cve.LastModified),
		Description: truncateDescription(description),
	}
	record.IDYear = idYear(cve.ID)
	record.AttributionYear = attributionYear(record.PublishedAt, cve.ID)

	// score precedence: v4.0, then v3.1, then v3.0, then v2. Severity is
	// taken from the first version that carries one.
	if len(cve.Metrics.CvssMetricV40) > 0 {
		m := cve.Metrics.CvssMetricV40[0]
		record.CVSSV4 = ptr(m.CvssData.BaseScore)
		record.Severity = normalizeSeverity(m.CvssData.BaseSeverity)
	}
	if len(cve.Metrics.CvssMetricV31) > 0 {
		m := cve.Metrics.CvssMetricV31[0]
		record.CVSSV3 = ptr(m.CvssData.BaseScore)
		if record.Severity == nil {
			record.Severity = normalizeSeverity(m.CvssData.BaseSeverity)
		}
	} else if len(cve.Metrics.CvssMetricV30) > 0 {
		m := cve.Metrics.CvssMetricV30[0]
		record.CVSSV3 = ptr(m.CvssData.BaseScore)
		if record.Severity == nil {
			record.Severity = normalizeSeverity(m.CvssData.BaseSeverity)
		}
	}
	if len(cve.Metrics.CvssMetricV2) > 0 {
		m := cve.Metrics.CvssMetricV2[0]
		record.CVSSV2 = ptr(m.CvssData.BaseScore)
		if record.Severity == nil {
			record.Severity = normalizeSeverity(m.BaseSeverity)
		}
	}
	backfillSeverity(record)

	for _, weakness := range cve.Weaknesses {
		if id := firstCWE(weakness.Description); id != nil {
			record.WeaknessID = id
			break
		}
	}

	record.ReferenceCount = len(cve.References)

	// NVD only tells us whether configuration criteria exist; vendor and
	// product attribution comes from the CVE record corpus alone.
	for _, config := range cve.Configurations {
		for _, node := range config.Nodes {
			if len(node.CpeMatch) > 0 {
				record.HasCPE = true
			}
		}
	}

	record.LifecycleState = canonicalState(cve.VulnStatus)
	// the marker scan runs on the full text, the stored description may be
	// truncated before the phrase appears
	record.IsRejected = rejected(cve.VulnStatus, description)
	if record.IsRejected {
		record.LifecycleState = StateRejected
	}
	return Ok(*record)
}

func fromNVDLegacy(raw []byte) Result {
	var item nvdLegacyItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Skip(SkipInvalidJSON, err.Error())
	}
	id := item.Cve.CVEDataMeta.ID
	if id == "" {
		return Skip(SkipMissingID, "empty CVE_data_meta.ID")
	}

	description := firstEnglish(item.Cve.Description.DescriptionData)
	record := &Record{
		ID:          id,
		PublishedAt: utils.ParseTime(item.PublishedDate),
		ModifiedAt:  utils.ParseTime(item.LastModifiedDate),
		Description: truncateDescription(description),
	}
	record.IDYear = idYear(id)
	record.AttributionYear = attributionYear(record.PublishedAt, id)

	if v3 := item.Impact.BaseMetricV3; v3 != nil {
		record.CVSSV3 = ptr(v3.CvssV3.BaseScore)
		record.Severity = normalizeSeverity(v3.CvssV3.BaseSeverity)
	}
	if v2 := item.Impact.BaseMetricV2; v2 != nil {
		record.CVSSV2 = ptr(v2.CvssV2.BaseScore)
		if record.Severity == nil {
			record.Severity = normalizeSeverity(v2.Severity)
		}
	}
	backfillSeverity(record)

	for _, problemType := range item.Cve.Problemtype.ProblemtypeData {
		if cw := firstCWE(problemType.Description); cw != nil {
			record.WeaknessID = cw
			break
		}
	}

	record.ReferenceCount = len(item.Cve.References.ReferenceData)

	for _, node := range item.Configurations.Nodes {
		if len(node.CpeMatch) > 0 {
			record.HasCPE = true
		}
	}

	// legacy entries carry no explicit status field
	record.LifecycleState = StatePublished
	record.IsRejected = rejected("", description)
	if record.IsRejected {
		record.LifecycleState = StateRejected
	}
	return Ok(*record)
}

// firstCWE returns the first description value that looks like a CWE
// identifier, e.g. "CWE-79". NVD also emits "NVD-CWE-noinfo" style
// placeholders which are ignored.
func firstCWE(descriptions []langValue) *string {
	for _, desc := range descriptions {
		value := strings.TrimSpace(desc.Value)
		if strings.HasPrefix(value, "CWE-") {
			return ptr(value)
		}
	}
	return nil
}

// backfillSeverity derives a severity from the best available score when
// none of the metric blocks carried a usable label.
func backfillSeverity(record *Record) {
	if record.Severity != nil {
		return
	}
	for _, score := range []*float64{record.CVSSV4, record.CVSSV3, record.CVSSV2} {
		if score != nil {
			severity := severityFromScore(*score)
			record.Severity = &severity
			return
		}
	}
}
