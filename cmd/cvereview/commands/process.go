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

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jgamblin/2025CVEBlog/download"
	"github.com/jgamblin/2025CVEBlog/normalize"
	"github.com/jgamblin/2025CVEBlog/stats"
	"github.com/jgamblin/2025CVEBlog/store"
)

func NewProcessCommand() *cobra.Command {
	processCmd := cobra.Command{
		Use:   "process",
		Short: "Normalize the raw feeds into canonical record tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			processedDir, _ := cmd.Flags().GetString("processed-dir")

			if err := processBulk(filepath.Join(dataDir, "nvd.json"), processedDir); err != nil {
				return err
			}
			return processCvelist(filepath.Join(dataDir, "cvelistV5"), processedDir)
		},
	}

	addDirFlags(&processCmd)
	return &processCmd
}

func processBulk(bulkPath, processedDir string) error {
	f, err := os.Open(bulkPath)
	if err != nil {
		slog.Error("bulk feed missing, run download first", "path", bulkPath, "err", err)
		return nil
	}
	defer f.Close()

	slog.Info("normalizing bulk feed", "path", bulkPath)
	records, report, err := normalize.ParseBulk(f)
	if err != nil {
		return err
	}
	logReport("nvd", report)

	return store.Save(processedDir, store.BulkTable, records)
}

func processCvelist(cloneDir, processedDir string) error {
	cvelistService := download.NewCvelistService("")
	if err := download.VerifyClone(cloneDir); err != nil {
		slog.Error("cvelist clone missing, run download first", "dir", cloneDir, "err", err)
		return nil
	}

	slog.Info("normalizing cvelist records", "dir", cloneDir)
	bar := progressbar.Default(-1, "normalizing records")
	records := []normalize.Record{}
	report := normalize.NewReport()
	err := cvelistService.WalkRecords(cloneDir, func(path string) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		result := normalize.FromRaw(raw)
		report.Add(result)
		if !result.Skipped() {
			records = append(records, *result.Record)
		}
		bar.Add(1) // nolint:errcheck
		return nil
	})
	if err != nil {
		return err
	}
	logReport("cvelist", report)

	if err := store.Save(processedDir, store.CvelistTable, records); err != nil {
		return err
	}

	if rows, err := stats.CNATable(records); err == nil {
		if err := store.WriteCNATable(filepath.Join(processedDir, "cna_stats.csv"), rows); err != nil {
			return err
		}
	}
	return nil
}

func logReport(source string, report *normalize.Report) {
	slog.Info("normalization done", "source", source, "parsed", report.Parsed, "skipped", report.TotalSkipped())
	for reason, count := range report.Skipped {
		slog.Warn("skipped records", "source", source, "reason", reason, "count", count)
	}
}
