package utils

import "time"

const ISO8601Format = "2006-01-02T15:04:05.000"

// the feeds are not consistent about their date formats. ParseTime tries the
// layouts we actually observe and returns nil if none of them match.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	ISO8601Format,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
