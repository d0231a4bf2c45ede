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

// Package enrich rewrites the prose of the generated blog post with an
// LLM while guaranteeing that a failed or drifting rewrite never makes it
// into the output. The worst case is always the unmodified original.
package enrich

import (
	"regexp"
	"strings"
)

// Section is one heading-delimited slice of the blog post. Content
// includes the heading line itself.
type Section struct {
	Title   string
	Content string
	Level   int
}

// ExtractSections splits markdown at heading lines. Text before the first
// heading becomes an untitled header section. Joining the contents in
// order reproduces the document.
func ExtractSections(text string) []Section {
	sections := []Section{}
	current := Section{Title: "Header"}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			if strings.TrimSpace(current.Content) != "" {
				sections = append(sections, current)
			}
			level := len(line) - len(strings.TrimLeft(line, "#"))
			title := strings.TrimSpace(strings.TrimLeft(line, "#"))
			current = Section{Title: title, Content: line + "\n", Level: level}
			continue
		}
		current.Content += line + "\n"
	}
	if strings.TrimSpace(current.Content) != "" {
		sections = append(sections, current)
	}
	return sections
}

// factual sections stay untouched
var skipKeywords = []string{"methodology", "data sources", "thank you", "data collected"}

// Eligible reports whether a section should be sent for enhancement.
// Methodology-like sections and sections that are mostly tables are not.
func Eligible(section Section) bool {
	title := strings.ToLower(section.Title)
	for _, keyword := range skipKeywords {
		if strings.Contains(title, keyword) {
			return false
		}
	}

	tableLines := 0
	totalLines := 0
	for _, line := range strings.Split(section.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		totalLines++
		if strings.HasPrefix(trimmed, "|") {
			tableLines++
		}
	}
	if totalLines > 0 && float64(tableLines)/float64(totalLines) > 0.6 {
		return false
	}
	return true
}

var numberPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d+)?`)

// LostNumbers returns the numeric tokens present in the original but
// missing from the enhanced text. Too many of these means the model
// changed the statistics.
func LostNumbers(original, enhanced string) []string {
	enhancedSet := map[string]bool{}
	for _, token := range numberPattern.FindAllString(enhanced, -1) {
		enhancedSet[token] = true
	}

	seen := map[string]bool{}
	lost := []string{}
	for _, token := range numberPattern.FindAllString(original, -1) {
		if !enhancedSet[token] && !seen[token] {
			seen[token] = true
			lost = append(lost, token)
		}
	}
	return lost
}

// maxLostNumbers is the drift tolerance: up to this many original numeric
// tokens may disappear before the section reverts.
const maxLostNumbers = 3
