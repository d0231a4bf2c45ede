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

	"github.com/jgamblin/2025CVEBlog/download"
)

func NewDownloadCommand() *cobra.Command {
	downloadCmd := cobra.Command{
		Use:   "download",
		Short: "Fetch the NVD bulk feed and the cvelistV5 repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")
			bulkURL, _ := cmd.Flags().GetString("nvd-url")
			cvelistURL, _ := cmd.Flags().GetString("cvelist-url")

			bulkPath := filepath.Join(dataDir, "nvd.json")
			downloaded, err := download.NewNVDService(bulkURL).Refresh(cmd.Context(), bulkPath, force)
			if err != nil {
				return err
			}
			if !downloaded {
				slog.Info("bulk feed unchanged")
			}

			cloneDir := filepath.Join(dataDir, "cvelistV5")
			if err := download.NewCvelistService(cvelistURL).Refresh(cloneDir); err != nil {
				return err
			}

			if err := download.VerifyBulk(bulkPath); err != nil {
				return err
			}
			if err := download.VerifyClone(cloneDir); err != nil {
				return err
			}
			slog.Info("downloads verified", "bulk", bulkPath, "clone", cloneDir)
			return nil
		},
	}

	addDirFlags(&downloadCmd)
	downloadCmd.Flags().Bool("force", false, "download even when the local copy looks current")
	downloadCmd.Flags().String("nvd-url", download.DefaultBulkURL, "bulk feed url")
	downloadCmd.Flags().String("cvelist-url", download.DefaultCvelistURL, "cvelist repository url")
	return &downloadCmd
}
