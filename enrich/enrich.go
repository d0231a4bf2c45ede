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

package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const introText = `2025 set a new baseline with 48,000+ published CVEs. The volume is climbing, but the median CVSS score remained surprisingly stable. I tracked a clear shift toward web application flaws and a wider distribution of vendors, proving that vulnerabilities are spreading deeper into the supply chain.

This massive growth is exactly why I launched RogoLabs. We are building free tools like [cve.icu](https://cve.icu) (real-time tracking), [cnascorecard.org](https://cnascorecard.org) (CNA performance), and [cveforecast.org](https://cveforecast.org) (predictive modeling) to ensure vulnerability data remains accessible and usable for the community.

The takeaway for engineers is simple: you can't patch everything. With volume at this level, your only move is to ruthlessly prioritize based on exploitability and automate the rest.`

func buildPrompt(section Section) string {
	introInstruction := ""
	switch strings.ToLower(section.Title) {
	case "introduction", "intro", "2025 cve data review", "":
		introInstruction = fmt.Sprintf(`

CRITICAL - INTRODUCTION REPLACEMENT:
You MUST replace the introduction paragraph(s) with this EXACT text (keep the header and byline):

%s

Do NOT modify this text. Use it verbatim.
`, introText)
	}

	return fmt.Sprintf(`You are writing for Senior Security Engineers and CISOs. This is a technical data analysis.

TIME CONTEXT (CRITICAL):
- The current year is 2026. We are analyzing 2025 data.
- NEVER refer to '2023' or '2024' as "current" or "recent trends"
- 2025 is the subject year of this analysis

AUDIENCE RULE (CRITICAL):
- NEVER define 'CVE', 'vulnerability', 'patch', 'zero-day', or 'exploit'. Your readers know these terms.
- NEVER explain what CVSS scores mean. They know.
- NEVER use phrases like "vulnerabilities are security flaws" or "CVEs are identifiers for..."

VOICE & STYLE:
- Authoritative and analytical. Use active verbs: 'The data shows...', 'We observed...', 'I found...'
- DELETE all transition fluff: 'Let's dive in', 'It is important to note', 'As we can see', 'Moving on to'
- DELETE all marketing adjectives: 'staggering', 'unprecedented', 'critical juncture', 'landscape', 'realm'
- Short paragraphs. Dense with insight. If a chart shows it, explain the *implication*, not the bars.
%s
LINKING REQUIREMENT (MANDATORY):
You MUST convert technical terms to Markdown links:
- Every CWE mention: [CWE-79](https://cwe.mitre.org/data/definitions/79.html)
- Every vendor mention: [Linux](https://nvd.nist.gov/vuln/search/results?form_type=Advanced&results_type=overview&search_type=all&isCpeNameSearch=false&cpe_vendor=linux)

RULES:
1. Keep ALL statistics, numbers, percentages EXACTLY as provided
2. Keep ALL markdown formatting (headers, tables, images) intact
3. Do NOT change image paths or table data
4. Do NOT increase text length by more than 10%% (except Introduction)
5. Return ONLY the enhanced markdown, no preamble or explanation

SECTION TITLE: %s

CURRENT CONTENT:
%s

ENHANCED CONTENT:`, introInstruction, section.Title, section.Content)
}

// EnhanceSection runs one section through the model. Any error and any
// statistic drift beyond the tolerance falls back to the original text.
func EnhanceSection(ctx context.Context, client *GeminiClient, section Section) string {
	if !Eligible(section) {
		return section.Content
	}

	enhanced, err := client.Generate(ctx, buildPrompt(section))
	if err != nil {
		slog.Warn("could not enhance section, keeping original", "section", section.Title, "err", err)
		return section.Content
	}

	lost := LostNumbers(section.Content, enhanced)
	if len(lost) > maxLostNumbers {
		slog.Warn("enhanced section dropped too many numbers, reverting", "section", section.Title, "lost", len(lost))
		return section.Content
	}
	if len(lost) > 0 {
		slog.Debug("enhanced section changed some numbers", "section", section.Title, "lost", lost)
	}
	return enhanced
}

// EnhanceBlog reads blog.md from dir, enhances it section by section and
// writes blog_enriched.md, backing up the untouched source to
// blog_original.md. The source file is never modified.
func EnhanceBlog(ctx context.Context, client *GeminiClient, dir string) error {
	source := filepath.Join(dir, "blog.md")
	content, err := os.ReadFile(source)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", source)
	}

	if err := os.WriteFile(filepath.Join(dir, "blog_original.md"), content, 0644); err != nil {
		return errors.Wrap(err, "could not back up original blog")
	}

	sections := ExtractSections(string(content))
	var b strings.Builder
	enhanced := 0
	for _, section := range sections {
		result := EnhanceSection(ctx, client, section)
		if result != section.Content {
			enhanced++
		}
		b.WriteString(result)
		if !strings.HasSuffix(result, "\n") {
			b.WriteString("\n")
		}
	}
	slog.Info("enhanced blog sections", "total", len(sections), "enhanced", enhanced)

	target := filepath.Join(dir, "blog_enriched.md")
	return errors.Wrapf(os.WriteFile(target, []byte(b.String()), 0644), "could not write %s", target)
}
