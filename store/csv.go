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

package store

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/stats"
)

var csvHeader = []string{
	"cve_id", "attribution_year", "id_year",
	"published_at", "modified_at", "reserved_at",
	"description",
	"cvss_v2", "cvss_v3", "cvss_v4", "severity",
	"cwe_id", "reference_count", "product_count", "vendor_count",
	"primary_vendor", "primary_product", "assigner_id", "assigner_name",
	"lifecycle_state", "is_rejected", "has_cpe",
}

// csv keeps every timestamp in RFC 3339 so the file stays usable outside
// this tool
const csvTimeFormat = time.RFC3339

// WriteCSV writes the records as a headered csv twin of the parquet table.
func WriteCSV(path string, records []normalize.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create csv file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "could not write csv header")
	}
	for _, record := range records {
		if err := w.Write(csvRow(record)); err != nil {
			return errors.Wrapf(err, "could not write record %s", record.ID)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "could not flush csv")
}

func csvRow(record normalize.Record) []string {
	return []string{
		record.ID,
		intField(record.AttributionYear),
		intField(record.IDYear),
		timeField(record.PublishedAt),
		timeField(record.ModifiedAt),
		timeField(record.ReservedAt),
		record.Description,
		floatField(record.CVSSV2),
		floatField(record.CVSSV3),
		floatField(record.CVSSV4),
		stringField(severityPtr(record.Severity)),
		stringField(record.WeaknessID),
		strconv.Itoa(record.ReferenceCount),
		strconv.Itoa(record.ProductCount),
		strconv.Itoa(record.VendorCount),
		stringField(record.PrimaryVendor),
		stringField(record.PrimaryProduct),
		stringField(record.AssignerID),
		stringField(record.AssignerName),
		string(record.LifecycleState),
		strconv.FormatBool(record.IsRejected),
		strconv.FormatBool(record.HasCPE),
	}
}

// ReadCSV loads a csv table written by WriteCSV. Typed columns are resolved
// by header name, so a file with missing columns fails loudly instead of
// being mis-parsed.
func ReadCSV(path string) ([]normalize.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open csv file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "could not read csv")
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("csv file %s has no header", path)
	}

	index := map[string]int{}
	for i, name := range rows[0] {
		index[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := index[name]; !ok {
			return nil, errors.Errorf("csv file %s is missing column %s", path, name)
		}
	}

	records := make([]normalize.Record, 0, len(rows)-1)
	for _, fields := range rows[1:] {
		col := func(name string) string { return fields[index[name]] }
		record := normalize.Record{
			ID:              col("cve_id"),
			AttributionYear: parseIntField(col("attribution_year")),
			IDYear:          parseIntField(col("id_year")),
			PublishedAt:     parseTimeField(col("published_at")),
			ModifiedAt:      parseTimeField(col("modified_at")),
			ReservedAt:      parseTimeField(col("reserved_at")),
			Description:     col("description"),
			CVSSV2:          parseFloatField(col("cvss_v2")),
			CVSSV3:          parseFloatField(col("cvss_v3")),
			CVSSV4:          parseFloatField(col("cvss_v4")),
			WeaknessID:      parseStringField(col("cwe_id")),
			ReferenceCount:  atoiOrZero(col("reference_count")),
			ProductCount:    atoiOrZero(col("product_count")),
			VendorCount:     atoiOrZero(col("vendor_count")),
			PrimaryVendor:   parseStringField(col("primary_vendor")),
			PrimaryProduct:  parseStringField(col("primary_product")),
			AssignerID:      parseStringField(col("assigner_id")),
			AssignerName:    parseStringField(col("assigner_name")),
			LifecycleState:  normalize.LifecycleState(col("lifecycle_state")),
			IsRejected:      col("is_rejected") == "true",
			HasCPE:          col("has_cpe") == "true",
		}
		if severity := parseStringField(col("severity")); severity != nil {
			s := normalize.Severity(*severity)
			record.Severity = &s
		}
		records = append(records, record)
	}
	return records, nil
}

// WriteCNATable exports the per-assigner summary for spreadsheet use.
func WriteCNATable(path string, rows []stats.CNARow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create csv file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"assigner", "total", "published", "rejected", "has_cvss", "has_cwe"}); err != nil {
		return errors.Wrap(err, "could not write csv header")
	}
	for _, cnaRow := range rows {
		record := []string{
			cnaRow.Assigner,
			strconv.Itoa(cnaRow.Total),
			strconv.Itoa(cnaRow.Published),
			strconv.Itoa(cnaRow.Rejected),
			strconv.Itoa(cnaRow.HasCVSS),
			strconv.Itoa(cnaRow.HasCWE),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "could not write assigner %s", cnaRow.Assigner)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "could not flush csv")
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(csvTimeFormat)
}

func stringField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseIntField(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatField(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseTimeField(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(csvTimeFormat, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseStringField(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
