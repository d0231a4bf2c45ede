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

// Package store persists canonical record tables as parquet with a csv
// twin, so the downstream stages can re-run without re-parsing the feeds.
package store

import (
	"time"

	"github.com/jgamblin/2025CVEBlog/normalize"
)

// row is the flat on-disk shape of a canonical record. One superset schema
// covers both tables; columns a feed does not provide stay null.
type row struct {
	ID              string   `parquet:"name=cve_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	AttributionYear *int32   `parquet:"name=attribution_year, type=INT32"`
	IDYear          *int32   `parquet:"name=id_year, type=INT32"`
	PublishedAt     *int64   `parquet:"name=published_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ModifiedAt      *int64   `parquet:"name=modified_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ReservedAt      *int64   `parquet:"name=reserved_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Description     string   `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	CVSSV2          *float64 `parquet:"name=cvss_v2, type=DOUBLE"`
	CVSSV3          *float64 `parquet:"name=cvss_v3, type=DOUBLE"`
	CVSSV4          *float64 `parquet:"name=cvss_v4, type=DOUBLE"`
	Severity        *string  `parquet:"name=severity, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WeaknessID      *string  `parquet:"name=cwe_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ReferenceCount  int32    `parquet:"name=reference_count, type=INT32"`
	ProductCount    int32    `parquet:"name=product_count, type=INT32"`
	VendorCount     int32    `parquet:"name=vendor_count, type=INT32"`
	PrimaryVendor   *string  `parquet:"name=primary_vendor, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PrimaryProduct  *string  `parquet:"name=primary_product, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	AssignerID      *string  `parquet:"name=assigner_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	AssignerName    *string  `parquet:"name=assigner_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LifecycleState  string   `parquet:"name=lifecycle_state, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsRejected      bool     `parquet:"name=is_rejected, type=BOOLEAN"`
	HasCPE          bool     `parquet:"name=has_cpe, type=BOOLEAN"`
}

func toRow(record normalize.Record) row {
	return row{
		ID:              record.ID,
		AttributionYear: intPtr32(record.AttributionYear),
		IDYear:          intPtr32(record.IDYear),
		PublishedAt:     timePtrMillis(record.PublishedAt),
		ModifiedAt:      timePtrMillis(record.ModifiedAt),
		ReservedAt:      timePtrMillis(record.ReservedAt),
		Description:     record.Description,
		CVSSV2:          record.CVSSV2,
		CVSSV3:          record.CVSSV3,
		CVSSV4:          record.CVSSV4,
		Severity:        severityPtr(record.Severity),
		WeaknessID:      record.WeaknessID,
		ReferenceCount:  int32(record.ReferenceCount),
		ProductCount:    int32(record.ProductCount),
		VendorCount:     int32(record.VendorCount),
		PrimaryVendor:   record.PrimaryVendor,
		PrimaryProduct:  record.PrimaryProduct,
		AssignerID:      record.AssignerID,
		AssignerName:    record.AssignerName,
		LifecycleState:  string(record.LifecycleState),
		IsRejected:      record.IsRejected,
		HasCPE:          record.HasCPE,
	}
}

func (r row) toRecord() normalize.Record {
	record := normalize.Record{
		ID:              r.ID,
		AttributionYear: int32Ptr(r.AttributionYear),
		IDYear:          int32Ptr(r.IDYear),
		PublishedAt:     millisPtrTime(r.PublishedAt),
		ModifiedAt:      millisPtrTime(r.ModifiedAt),
		ReservedAt:      millisPtrTime(r.ReservedAt),
		Description:     r.Description,
		CVSSV2:          r.CVSSV2,
		CVSSV3:          r.CVSSV3,
		CVSSV4:          r.CVSSV4,
		WeaknessID:      r.WeaknessID,
		ReferenceCount:  int(r.ReferenceCount),
		ProductCount:    int(r.ProductCount),
		VendorCount:     int(r.VendorCount),
		PrimaryVendor:   r.PrimaryVendor,
		PrimaryProduct:  r.PrimaryProduct,
		AssignerID:      r.AssignerID,
		AssignerName:    r.AssignerName,
		LifecycleState:  normalize.LifecycleState(r.LifecycleState),
		IsRejected:      r.IsRejected,
		HasCPE:          r.HasCPE,
	}
	if r.Severity != nil {
		severity := normalize.Severity(*r.Severity)
		record.Severity = &severity
	}
	return record
}

func intPtr32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

func int32Ptr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func timePtrMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}

func millisPtrTime(millis *int64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(*millis).UTC()
	return &t
}

func severityPtr(s *normalize.Severity) *string {
	if s == nil {
		return nil
	}
	str := string(*s)
	return &str
}
