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
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

const DefaultBulkURL = "https://nvd.handsonhacking.org/nvd.json"

// a local copy smaller than this is treated as a broken partial download
const minBulkSize = 1 << 20

const maxDownloadTries = 3

// NVDService downloads the consolidated bulk feed to a local file and only
// re-downloads when the remote copy is newer than what is on disk.
type NVDService struct {
	httpClient *http.Client
	url        string
}

func NewNVDService(url string) NVDService {
	if url == "" {
		url = DefaultBulkURL
	}
	return NVDService{
		url: url,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 3,
			},
		},
	}
}

// Refresh makes sure dest holds a current copy of the bulk feed. With force
// set the freshness probe is skipped entirely.
func (nvdService NVDService) Refresh(ctx context.Context, dest string, force bool) (bool, error) {
	if !force {
		fresh, err := nvdService.isFresh(ctx, dest)
		if err != nil {
			// a failed probe is no reason to skip the download
			slog.Warn("could not check bulk feed freshness, downloading anyway", "err", err)
		} else if fresh {
			slog.Info("local bulk feed is up to date", "path", dest)
			return false, nil
		}
	}

	var lastErr error
	for currentTry := 1; currentTry <= maxDownloadTries; currentTry++ {
		if err := nvdService.download(ctx, dest); err != nil {
			lastErr = err
			slog.Error("could not download bulk feed", "try", currentTry, "err", err)
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(time.Duration(currentTry) * 5 * time.Second):
			}
			continue
		}
		return true, nil
	}
	return false, errors.Wrap(lastErr, "bulk feed download failed after retries")
}

// isFresh compares the remote Last-Modified header and size against the
// local copy. A missing or suspiciously small local file is never fresh.
func (nvdService NVDService) isFresh(ctx context.Context, dest string) (bool, error) {
	stat, err := os.Stat(dest)
	if err != nil {
		return false, nil // nolint:nilerr // no local copy means not fresh, not an error
	}
	if stat.Size() < minBulkSize {
		slog.Warn("local bulk feed looks truncated", "path", dest, "size", stat.Size())
		return false, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, nvdService.url, nil)
	if err != nil {
		return false, errors.Wrap(err, "could not create freshness probe request")
	}
	res, err := nvdService.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "freshness probe failed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, errors.Errorf("freshness probe returned status %d", res.StatusCode)
	}

	if length := res.ContentLength; length >= 0 {
		diff := length - stat.Size()
		if diff < 0 {
			diff = -diff
		}
		if diff > minBulkSize {
			slog.Info("remote bulk feed size drifted", "local", stat.Size(), "remote", length)
			return false, nil
		}
	}

	lastModified, err := http.ParseTime(res.Header.Get("Last-Modified"))
	if err != nil {
		// no usable header - assume the remote copy changed
		return false, nil // nolint:nilerr
	}
	return !lastModified.After(stat.ModTime()), nil
}

func (nvdService NVDService) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nvdService.url, nil)
	if err != nil {
		return errors.Wrap(err, "could not create bulk feed request")
	}

	res, err := nvdService.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not fetch bulk feed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("bulk feed returned status %d", res.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrap(err, "could not create data directory")
	}

	// write to a temp file first so a failed download never clobbers a
	// working local copy
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".nvd-*.json")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer os.Remove(tmp.Name())

	bar := progressbar.DefaultBytes(res.ContentLength, "downloading bulk feed")
	if _, err := io.Copy(io.MultiWriter(tmp, bar), res.Body); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write bulk feed to disk")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close temp file")
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return errors.Wrap(err, "could not move bulk feed into place")
	}
	slog.Info("downloaded bulk feed", "path", dest)
	return nil
}
