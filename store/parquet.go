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

package store

import (
	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/jgamblin/2025CVEBlog/normalize"
)

// WriteParquet writes the records to a snappy-compressed parquet file.
func WriteParquet(path string, records []normalize.Record) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return errors.Wrapf(err, "could not create parquet file %s", path)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(row), 4)
	if err != nil {
		return errors.Wrap(err, "could not create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		if err := pw.Write(toRow(record)); err != nil {
			return errors.Wrapf(err, "could not write record %s", record.ID)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "could not finalize parquet file")
	}
	return nil
}

// ReadParquet loads a full parquet table back into records.
func ReadParquet(path string) ([]normalize.Record, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open parquet file %s", path)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(row), 4)
	if err != nil {
		return nil, errors.Wrap(err, "could not create parquet reader")
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]row, num)
	if err := pr.Read(&rows); err != nil {
		return nil, errors.Wrap(err, "could not read parquet rows")
	}

	records := make([]normalize.Record, 0, num)
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}
