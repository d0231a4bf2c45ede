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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgamblin/2025CVEBlog/charts"
	"github.com/jgamblin/2025CVEBlog/report"
	"github.com/jgamblin/2025CVEBlog/stats"
	"github.com/jgamblin/2025CVEBlog/store"
)

func NewGraphsCommand() *cobra.Command {
	graphsCmd := cobra.Command{
		Use:   "graphs",
		Short: "Render the charts and the summary digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			processedDir, _ := cmd.Flags().GetString("processed-dir")
			graphsDir, _ := cmd.Flags().GetString("graphs-dir")

			fullBulk, err := store.Load(processedDir, store.BulkTable)
			if err != nil {
				slog.Error("no processed tables, run process first", "err", err)
				return nil
			}
			fullCvelist, err := store.Load(processedDir, store.CvelistTable)
			if err != nil {
				slog.Warn("no cvelist table, rendering bulk charts only", "err", err)
			}

			inputs := charts.Inputs{
				Bulk:        report.Prepare(fullBulk, subjectYear),
				FullBulk:    fullBulk,
				Cvelist:     report.Prepare(fullCvelist, subjectYear),
				SubjectYear: subjectYear,
			}
			produced, err := charts.RenderAll(charts.DefaultStyle(), graphsDir, inputs)
			if err != nil {
				return err
			}
			slog.Info("rendered charts", "count", len(produced))

			summary := stats.BuildSummary(inputs.Bulk, inputs.Cvelist, subjectYear)
			return summary.WriteFile(filepath.Join(graphsDir, "summary_stats.json"))
		},
	}

	addDirFlags(&graphsCmd)
	return &graphsCmd
}
