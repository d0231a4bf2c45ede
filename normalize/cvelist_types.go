package normalize

// raw shape of a CVE Record Format 5.x file from the cvelistV5 repository.

type cve5ScoreBlock struct {
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type cve5Metric struct {
	CvssV4_0 *cve5ScoreBlock `json:"cvssV4_0"`
	CvssV3_1 *cve5ScoreBlock `json:"cvssV3_1"`
	CvssV3_0 *cve5ScoreBlock `json:"cvssV3_0"`
	CvssV2_0 *cve5ScoreBlock `json:"cvssV2_0"`
}

type cve5Record struct {
	DataType    string `json:"dataType"`
	CveMetadata struct {
		CveID             string `json:"cveId"`
		State             string `json:"state"`
		AssignerOrgID     string `json:"assignerOrgId"`
		AssignerShortName string `json:"assignerShortName"`
		DateReserved      string `json:"dateReserved"`
		DatePublished     string `json:"datePublished"`
		DateUpdated       string `json:"dateUpdated"`
	} `json:"cveMetadata"`
	Containers struct {
		Cna struct {
			Descriptions []langValue `json:"descriptions"`
			Metrics      []cve5Metric `json:"metrics"`
			ProblemTypes []struct {
				Descriptions []struct {
					Lang        string `json:"lang"`
					Description string `json:"description"`
					CweID       string `json:"cweId"`
					Type        string `json:"type"`
				} `json:"descriptions"`
			} `json:"problemTypes"`
			Affected []struct {
				Vendor  string `json:"vendor"`
				Product string `json:"product"`
			} `json:"affected"`
			References []struct {
				URL string `json:"url"`
			} `json:"references"`
			RejectedReasons []langValue `json:"rejectedReasons"`
		} `json:"cna"`
	} `json:"containers"`
}
