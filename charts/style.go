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

// Package charts renders the aggregated tables as png files. All styling
// lives in an immutable Style value that is passed to every renderer, so
// two renders with the same inputs always produce the same image.
package charts

import (
	"image/color"

	"gonum.org/v1/plot/vg"

	"github.com/jgamblin/2025CVEBlog/normalize"
)

// Style bundles the palette, dimensions and naming used across all
// charts. Treat it as a value: copy, never mutate.
type Style struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Alert     color.Color
	Neutral   color.Color
	Grid      color.Color

	SeverityColors map[normalize.Severity]color.Color

	// short display names for the most common weakness ids
	CWENames map[string]string

	Width      vg.Length
	Height     vg.Length
	TallHeight vg.Length

	Watermark string
}

// DefaultStyle is the publication palette: navy and slate with a red
// accent for the subject year.
func DefaultStyle() Style {
	return Style{
		Primary:   hex(0x1e3a5f),
		Secondary: hex(0x64748b),
		Accent:    hex(0x3d6a99),
		Alert:     hex(0xdc2626),
		Neutral:   hex(0x94a3b8),
		Grid:      hex(0xe2e8f0),

		SeverityColors: map[normalize.Severity]color.Color{
			normalize.SeverityCritical: hex(0x0c2340),
			normalize.SeverityHigh:     hex(0x1e3a5f),
			normalize.SeverityMedium:   hex(0x3d6a99),
			normalize.SeverityLow:      hex(0x6b9dc9),
			normalize.SeverityNone:     hex(0x94a3b8),
		},

		CWENames: map[string]string{
			"CWE-79":  "XSS",
			"CWE-89":  "SQL Injection",
			"CWE-787": "OOB Write",
			"CWE-125": "OOB Read",
			"CWE-20":  "Input Validation",
			"CWE-22":  "Path Traversal",
			"CWE-352": "CSRF",
			"CWE-78":  "Command Injection",
			"CWE-416": "Use After Free",
			"CWE-190": "Integer Overflow",
			"CWE-476": "NULL Pointer",
			"CWE-119": "Buffer Overflow",
			"CWE-200": "Info Exposure",
			"CWE-400": "Resource Exhaustion",
			"CWE-434": "File Upload",
			"CWE-863": "Auth Bypass",
			"CWE-918": "SSRF",
			"CWE-94":  "Code Injection",
		},

		Width:      12 * vg.Inch,
		Height:     6 * vg.Inch,
		TallHeight: 8 * vg.Inch,

		Watermark: "@jgamblin",
	}
}

// CWELabel returns the short display name for a weakness id, falling back
// to the id itself.
func (s Style) CWELabel(id string) string {
	if name, ok := s.CWENames[id]; ok {
		return name
	}
	return id
}

func (s Style) severityColor(severity normalize.Severity) color.Color {
	if c, ok := s.SeverityColors[severity]; ok {
		return c
	}
	return s.Neutral
}

func hex(rgb uint32) color.Color {
	return color.RGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 0xff,
	}
}
