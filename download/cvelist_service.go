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

package download

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

const DefaultCvelistURL = "https://github.com/CVEProject/cvelistV5.git"

// CvelistService maintains a shallow clone of the cvelistV5 repository and
// walks the per-record json files inside it.
type CvelistService struct {
	url string
}

func NewCvelistService(url string) CvelistService {
	if url == "" {
		url = DefaultCvelistURL
	}
	return CvelistService{url: url}
}

// Refresh clones the repository shallowly or pulls an existing clone.
// Being already up to date is not an error.
func (cvelistService CvelistService) Refresh(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return cvelistService.pull(dir)
	}

	slog.Info("cloning cvelist repository", "url", cvelistService.url, "dir", dir)
	_, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:          cvelistService.url,
		Depth:        1,
		SingleBranch: true,
		Progress:     os.Stderr,
	})
	if err != nil {
		return errors.Wrap(err, "could not clone cvelist repository")
	}
	return nil
}

func (cvelistService CvelistService) pull(dir string) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return errors.Wrap(err, "could not open cvelist repository")
	}
	w, err := r.Worktree()
	if err != nil {
		return errors.Wrap(err, "could not get worktree")
	}

	slog.Info("pulling cvelist repository", "dir", dir)
	err = w.Pull(&git.PullOptions{
		Depth:        1,
		SingleBranch: true,
		Progress:     os.Stderr,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Info("cvelist repository already up to date")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not pull cvelist repository")
	}
	return nil
}

// WalkRecords visits every CVE-*.json record file below the cves directory
// of the clone and hands its path to fn. Delta and index files are skipped.
func (cvelistService CvelistService) WalkRecords(dir string, fn func(path string) error) error {
	root := filepath.Join(dir, "cves")
	if _, err := os.Stat(root); err != nil {
		// some mirrors keep the records at the repository root
		root = dir
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, "CVE-") || !strings.HasSuffix(name, ".json") {
			return nil
		}
		return fn(path)
	})
}
