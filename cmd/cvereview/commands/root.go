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
	"github.com/spf13/cobra"
)

// the year this review is about
const subjectYear = 2025

var rootCmd = &cobra.Command{
	Use:   "cvereview",
	Short: "Annual CVE data review pipeline",
	Long:  `cvereview downloads the NVD bulk feed and the cvelistV5 repository, normalizes both into canonical record tables and produces the charts and the blog post of the annual CVE data review.`,
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func addDirFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "data", "directory for the raw downloads")
	cmd.Flags().String("processed-dir", "processed", "directory for the normalized tables")
	cmd.Flags().String("graphs-dir", "graphs", "directory for the rendered charts")
}
