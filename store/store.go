package store

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jgamblin/2025CVEBlog/normalize"
)

// table base names below the processed directory
const (
	BulkTable    = "nvd_cves"
	CvelistTable = "cvelist_v5"
)

// Save writes a table as parquet plus a csv twin.
func Save(dir, table string, records []normalize.Record) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create processed directory")
	}
	if err := WriteParquet(filepath.Join(dir, table+".parquet"), records); err != nil {
		return err
	}
	if err := WriteCSV(filepath.Join(dir, table+".csv"), records); err != nil {
		return err
	}
	slog.Info("saved table", "table", table, "records", len(records))
	return nil
}

// Load reads a table back, preferring parquet and falling back to the csv
// twin when the parquet file is missing or unreadable.
func Load(dir, table string) ([]normalize.Record, error) {
	parquetPath := filepath.Join(dir, table+".parquet")
	if _, err := os.Stat(parquetPath); err == nil {
		records, err := ReadParquet(parquetPath)
		if err == nil {
			return records, nil
		}
		slog.Warn("could not read parquet, falling back to csv", "table", table, "err", err)
	}

	csvPath := filepath.Join(dir, table+".csv")
	records, err := ReadCSV(csvPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load table %s", table)
	}
	return records, nil
}
