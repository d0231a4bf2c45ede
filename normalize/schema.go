package normalize

import "encoding/json"

// Schema identifies which of the supported raw shapes a record uses.
// Detection is structural - the feeds do not carry a reliable version flag.
type Schema int

const (
	SchemaUnknown Schema = iota
	// NVD API 2.0 entry: the nested cve object carries a top-level id.
	SchemaNVDCurrent
	// NVD API 1.x entry: the identifier lives under cve.CVE_data_meta.
	SchemaNVDLegacy
	// CVE Record Format v5 file: cveMetadata.cveId plus containers.cna.
	SchemaCVE5
)

func (s Schema) String() string {
	switch s {
	case SchemaNVDCurrent:
		return "nvd-current"
	case SchemaNVDLegacy:
		return "nvd-legacy"
	case SchemaCVE5:
		return "cve5"
	default:
		return "unknown"
	}
}

type schemaProbe struct {
	CveMetadata struct {
		CveID string `json:"cveId"`
	} `json:"cveMetadata"`
	Containers struct {
		Cna json.RawMessage `json:"cna"`
	} `json:"containers"`
	Cve *struct {
		ID          string `json:"id"`
		CVEDataMeta struct {
			ID string `json:"ID"`
		} `json:"CVE_data_meta"`
	} `json:"cve"`
}

// DetectSchema inspects a raw record and returns its schema tag without
// extracting any fields. It is pure: same bytes, same answer.
func DetectSchema(raw []byte) Schema {
	var probe schemaProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return SchemaUnknown
	}

	if probe.CveMetadata.CveID != "" && probe.Containers.Cna != nil {
		return SchemaCVE5
	}
	if probe.Cve != nil {
		if probe.Cve.ID != "" {
			return SchemaNVDCurrent
		}
		if probe.Cve.CVEDataMeta.ID != "" {
			return SchemaNVDLegacy
		}
	}
	return SchemaUnknown
}

// FromRaw detects the schema of a raw record and dispatches to the matching
// mapping function. Unparseable records come back as skips, never as errors
// that would abort the batch.
func FromRaw(raw []byte) Result {
	switch DetectSchema(raw) {
	case SchemaNVDCurrent:
		return fromNVDCurrent(raw)
	case SchemaNVDLegacy:
		return fromNVDLegacy(raw)
	case SchemaCVE5:
		return fromCVE5(raw)
	default:
		return Skip(SkipUnknownSchema, "no known schema shape detected")
	}
}
