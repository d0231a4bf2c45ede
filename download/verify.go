package download

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// VerifyBulk checks that the downloaded bulk feed exists and is not an
// obviously truncated file.
func VerifyBulk(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "bulk feed %s is missing", path)
	}
	if stat.Size() < minBulkSize {
		return errors.Errorf("bulk feed %s looks truncated (%d bytes)", path, stat.Size())
	}
	return nil
}

// VerifyClone checks that the cvelist clone exists and contains at least
// one record file.
func VerifyClone(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(err, "cvelist clone %s is missing", dir)
	}

	found := errors.New("found")
	err := NewCvelistService("").WalkRecords(dir, func(path string) error {
		return found
	})
	if err == nil {
		return errors.Errorf("cvelist clone %s contains no record files", dir)
	}
	if errors.Is(err, found) {
		return nil
	}
	return errors.Wrapf(err, "could not walk cvelist clone %s", filepath.Clean(dir))
}
