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
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package normalize

import (
	"strconv"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
)

type LifecycleState string

const (
	StatePublished LifecycleState = "PUBLISHED"
	StateRejected  LifecycleState = "REJECTED"
	StateReserved  LifecycleState = "RESERVED"
	StateUnknown   LifecycleState = "UNKNOWN"
)

// Record is the schema-independent representation every downstream stage
// consumes. A record is immutable once produced; the aggregator only reads.
type Record struct {
	ID              string
	AttributionYear *int
	IDYear          *int

	PublishedAt *time.Time
	ModifiedAt  *time.Time
	ReservedAt  *time.Time

	Description string

	CVSSV2   *float64
	CVSSV3   *float64
	CVSSV4   *float64
	Severity *Severity

	WeaknessID     *string
	ReferenceCount int

	// populated for the per-record corpus only
	ProductCount   int
	VendorCount    int
	PrimaryVendor  *string
	PrimaryProduct *string
	AssignerID     *string
	AssignerName   *string

	LifecycleState LifecycleState
	IsRejected     bool
	HasCPE         bool
}

const descriptionLimit = 500

// truncate on runes, not bytes. Descriptions in the feeds are valid UTF-8.
func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) > descriptionLimit {
		return string(runes[:descriptionLimit])
	}
	return s
}

// firstEnglish returns the first description whose language tag is "en",
// or the empty string.
func firstEnglish(descriptions []langValue) string {
	for _, d := range descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	return ""
}

type langValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

func idYear(id string) *int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return nil
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	return &year
}

// attributionYear prefers the published year over the year segment of the
// id. The two can disagree for records whose publication lagged reservation
// across a year boundary - that is observed behavior, not a bug.
func attributionYear(published *time.Time, id string) *int {
	if published != nil {
		year := published.Year()
		return &year
	}
	return idYear(id)
}

func canonicalState(raw string) LifecycleState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PUBLISHED", "ANALYZED", "MODIFIED", "AWAITING ANALYSIS", "UNDERGOING ANALYSIS", "RECEIVED":
		return StatePublished
	case "REJECTED", "REJECT":
		return StateRejected
	case "RESERVED":
		return StateReserved
	default:
		return StateUnknown
	}
}

var rejectionMarkers = []string{
	// '** reject' also catches the '** REJECTED **' spelling
	"** reject",
	"** disputed **",
	"this cve id has been rejected",
}

// rejected evaluates both signals independently: an explicit REJECTED state
// or a rejection marker phrase in the description is each sufficient on its
// own.
func rejected(rawState string, description string) bool {
	state := strings.ToUpper(strings.TrimSpace(rawState))
	if state == "REJECTED" || state == "REJECT" {
		return true
	}
	lower := strings.ToLower(description)
	for _, marker := range rejectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// severityFromScore backfills a missing severity label from a base score so
// that a record never carries a score without a severity.
func severityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// normalizeSeverity maps a raw label to the canonical upper-cased enum.
// Unknown labels fall back to score derivation by the caller.
func normalizeSeverity(label string) *Severity {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "CRITICAL":
		return ptr(SeverityCritical)
	case "HIGH":
		return ptr(SeverityHigh)
	case "MEDIUM":
		return ptr(SeverityMedium)
	case "LOW":
		return ptr(SeverityLow)
	case "NONE":
		return ptr(SeverityNone)
	default:
		return nil
	}
}

func ptr[T any](t T) *T {
	return &t
}
