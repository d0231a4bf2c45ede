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

package normalize

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// the bulk export has shipped in three envelopes over the years: a bare
// array of entries, {"vulnerabilities": [...]} and {"CVE_Items": [...]}.
var bulkEntryKeys = map[string]bool{
	"vulnerabilities": true,
	"CVE_Items":       true,
	"cve_items":       true,
}

// StreamBulk decodes a bulk feed entry by entry without loading the whole
// file into memory and invokes fn for each raw entry.
func StreamBulk(r io.Reader, fn func(raw json.RawMessage) error) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "could not read opening token of bulk feed")
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return errors.Errorf("unexpected top-level token %v in bulk feed", tok)
	}

	switch delim {
	case '[':
		return streamEntries(dec, fn)
	case '{':
		return streamEnvelope(dec, fn)
	default:
		return errors.Errorf("unexpected top-level delimiter %q in bulk feed", delim)
	}
}

func streamEntries(dec *json.Decoder, fn func(raw json.RawMessage) error) error {
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrap(err, "could not decode bulk feed entry")
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	// consume the closing bracket
	_, err := dec.Token()
	return errors.Wrap(err, "could not read closing token of bulk feed")
}

func streamEnvelope(dec *json.Decoder, fn func(raw json.RawMessage) error) error {
	found := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "could not read envelope key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("unexpected envelope token %v", tok)
		}

		if !bulkEntryKeys[key] {
			// skip the metadata value (format, version, timestamp, ...)
			var discard json.RawMessage
			if err := dec.Decode(&discard); err != nil {
				return errors.Wrapf(err, "could not skip envelope field %s", key)
			}
			continue
		}

		tok, err = dec.Token()
		if err != nil {
			return errors.Wrapf(err, "could not read opening token of %s", key)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return errors.Errorf("envelope field %s is not an array", key)
		}
		if err := streamEntries(dec, fn); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return errors.New("bulk feed envelope contains no entry array")
	}
	return nil
}

// ParseBulk normalizes every entry of a bulk feed and reports skips
// alongside the parsed records.
func ParseBulk(r io.Reader) ([]Record, *Report, error) {
	records := []Record{}
	report := NewReport()
	err := StreamBulk(r, func(raw json.RawMessage) error {
		result := FromRaw(raw)
		report.Add(result)
		if !result.Skipped() {
			records = append(records, *result.Record)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return records, report, nil
}
