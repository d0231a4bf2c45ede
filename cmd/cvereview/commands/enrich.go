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

	"github.com/spf13/cobra"

	"github.com/jgamblin/2025CVEBlog/enrich"
)

func NewEnrichCommand() *cobra.Command {
	enrichCmd := cobra.Command{
		Use:   "enrich",
		Short: "Rewrite the blog prose with Gemini",
		Long:  "Sends the prose sections of blog.md to Gemini for a stylistic rewrite. Tables, methodology and all statistics stay untouched; a failed rewrite keeps the original text.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out-dir")

			apiKey := enrich.APIKeyFromEnv()
			if apiKey == "" {
				slog.Error("no api key found, set GEMINI_API_KEY or GOOGLE_API_KEY")
				return nil
			}

			client := enrich.NewGeminiClient(apiKey)
			return enrich.EnhanceBlog(cmd.Context(), client, outDir)
		},
	}

	enrichCmd.Flags().String("out-dir", ".", "directory containing blog.md")
	return &enrichCmd
}
