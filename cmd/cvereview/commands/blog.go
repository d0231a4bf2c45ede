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

package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgamblin/2025CVEBlog/report"
	"github.com/jgamblin/2025CVEBlog/store"
)

func NewBlogCommand() *cobra.Command {
	blogCmd := cobra.Command{
		Use:   "blog",
		Short: "Compose the annual review blog post",
		RunE: func(cmd *cobra.Command, args []string) error {
			processedDir, _ := cmd.Flags().GetString("processed-dir")
			graphsDir, _ := cmd.Flags().GetString("graphs-dir")
			outDir, _ := cmd.Flags().GetString("out-dir")

			fullBulk, err := store.Load(processedDir, store.BulkTable)
			if err != nil {
				slog.Error("no processed tables, run process first", "err", err)
				return nil
			}
			fullCvelist, err := store.Load(processedDir, store.CvelistTable)
			if err != nil {
				slog.Warn("no cvelist table, composing without CNA and vendor sections", "err", err)
			}

			blog, err := report.Compose(report.Input{
				Bulk:        report.Prepare(fullBulk, subjectYear),
				FullBulk:    fullBulk,
				Cvelist:     report.Prepare(fullCvelist, subjectYear),
				SubjectYear: subjectYear,
				Images:      producedImages(graphsDir),
			})
			if err != nil {
				return err
			}

			target := filepath.Join(outDir, "blog.md")
			if err := os.WriteFile(target, []byte(blog), 0644); err != nil {
				return err
			}
			slog.Info("composed blog post", "path", target)
			return nil
		},
	}

	addDirFlags(&blogCmd)
	blogCmd.Flags().String("out-dir", ".", "directory for blog.md")
	return &blogCmd
}

// producedImages lists the chart files that actually exist so the blog
// never references a skipped chart.
func producedImages(graphsDir string) map[string]bool {
	images := map[string]bool{}
	entries, err := os.ReadDir(graphsDir)
	if err != nil {
		return images
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".png") {
			images[entry.Name()] = true
		}
	}
	return images
}
